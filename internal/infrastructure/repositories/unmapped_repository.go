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

type unmappedRepository struct {
	collection *mongo.Collection
}

func NewUnmappedRepository(db *database.MongoDB) repositories.UnmappedItemRepository {
	return &unmappedRepository{
		collection: db.Collection(database.CollectionUnmappedItems),
	}
}

func (r *unmappedRepository) Record(ctx context.Context, item *models.UnmappedItem, seen int) error {
	now := time.Now()
	if item.LastSeen.IsZero() {
		item.LastSeen = now
	}

	filter := bson.M{
		"source":                 item.Source,
		"item_type":              item.ItemType,
		"normalized_item":        item.NormalizedItem,
		"normalized_price_point": item.NormalizedPricePoint,
	}
	set := bson.M{
		"item_name":   item.ItemName,
		"last_reason": item.LastReason,
		"last_seen":   item.LastSeen,
	}
	if item.PricePointName != "" {
		set["price_point_name"] = item.PricePointName
	}
	if len(item.LastModifiers) > 0 {
		set["last_modifiers"] = item.LastModifiers
	}
	if len(item.LastRawRow) > 0 {
		set["last_raw_row"] = item.LastRawRow
	}
	update := bson.M{
		"$inc": bson.M{"seen_count": seen},
		"$set": set,
		"$setOnInsert": bson.M{
			"first_seen": now,
			"resolved":   false,
			"ignored":    false,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
		item.ID = id
	}
	return nil
}

func (r *unmappedRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.UnmappedItem, error) {
	var item models.UnmappedItem
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *unmappedRepository) List(ctx context.Context, filter repositories.UnmappedFilter) ([]*models.UnmappedItem, int64, error) {
	query := bson.M{}
	if filter.Source != "" {
		query["source"] = filter.Source
	}
	if filter.ItemType != "" {
		query["item_type"] = filter.ItemType
	}
	if !filter.IncludeResolved {
		query["resolved"] = false
		query["ignored"] = false
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	skip := (page - 1) * limit

	opts := options.Find().
		SetSort(bson.D{{Key: "seen_count", Value: -1}, {Key: "last_seen", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []*models.UnmappedItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *unmappedRepository) Update(ctx context.Context, item *models.UnmappedItem) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": item.ID}, item)
	return err
}

func (r *unmappedRepository) DeleteBySource(ctx context.Context, source models.Platform) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"source": source})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
