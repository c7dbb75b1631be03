package repositories

import (
	"context"
	"time"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *database.MongoDB) repositories.OrderRepository {
	return &orderRepository{
		collection: db.Collection(database.CollectionOrders),
	}
}

// Upsert replaces the stored order with the same (order_id, platform),
// keeping its _id and created_at, or inserts a new one.
func (r *orderRepository) Upsert(ctx context.Context, order *models.Order) error {
	now := time.Now()
	order.SyncedAt = now

	filter := bson.M{"order_id": order.OrderID, "platform": order.Platform}
	existing, err := r.GetByOrderID(ctx, order.Platform, order.OrderID)
	if err != nil {
		return err
	}
	if existing != nil {
		order.ID = existing.ID
		order.CreatedAt = existing.CreatedAt
	} else if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}

	result, err := r.collection.ReplaceOne(ctx, filter, order, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (r *orderRepository) GetByOrderID(ctx context.Context, platform models.Platform, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.collection.FindOne(ctx, bson.M{
		"order_id": orderID,
		"platform": platform,
	}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) DeleteByPlatform(ctx context.Context, platform models.Platform) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"platform": platform})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
