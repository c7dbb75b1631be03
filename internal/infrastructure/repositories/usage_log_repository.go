package repositories

import (
	"context"
	"time"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/infrastructure/database"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type usageLogRepository struct {
	collection *mongo.Collection
}

func NewUsageLogRepository(db *database.MongoDB) repositories.UsageLogRepository {
	return &usageLogRepository{
		collection: db.Collection(database.CollectionUsageLogs),
	}
}

func (r *usageLogRepository) Increment(ctx context.Context, ingredientID primitive.ObjectID, name, date string, source models.Platform, qty decimal.Decimal) error {
	filter := bson.M{"ingredient_id": ingredientID, "date": date, "source": source}
	update := bson.M{
		"$inc": bson.M{"quantity_used": qty},
		"$set": bson.M{
			"ingredient_name":        name,
			"calculated_from_orders": true,
			"updated_at":             time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *usageLogRepository) List(ctx context.Context, filter repositories.UsageLogFilter) ([]*models.IngredientUsageLog, error) {
	query := bson.M{}
	if filter.Date != "" {
		query["date"] = filter.Date
	}
	if filter.Source != "" {
		query["source"] = filter.Source
	}
	if filter.IngredientID != nil {
		query["ingredient_id"] = *filter.IngredientID
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: 1},
		{Key: "ingredient_name", Value: 1},
		{Key: "source", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*models.IngredientUsageLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *usageLogRepository) DeleteBySource(ctx context.Context, source models.Platform) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"source": source})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
