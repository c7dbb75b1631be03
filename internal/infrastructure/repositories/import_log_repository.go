package repositories

import (
	"context"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type importLogRepository struct {
	collection *mongo.Collection
}

func NewImportLogRepository(db *database.MongoDB) repositories.ImportLogRepository {
	return &importLogRepository{
		collection: db.Collection(database.CollectionImportLogs),
	}
}

func (r *importLogRepository) Create(ctx context.Context, log *models.ImportLog) error {
	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return err
	}
	log.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *importLogRepository) DeleteBySource(ctx context.Context, source models.Platform) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"source": source})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
