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

type modifierRepository struct {
	collection *mongo.Collection
}

func NewModifierRepository(db *database.MongoDB) repositories.ModifierRepository {
	return &modifierRepository{
		collection: db.Collection(database.CollectionModifiers),
	}
}

func (r *modifierRepository) Create(ctx context.Context, modifier *models.RecipeModifier) error {
	modifier.CreatedAt = time.Now()
	modifier.UpdatedAt = time.Now()
	if modifier.Behavior == "" {
		modifier.Behavior = models.BehaviorAdd
	}

	result, err := r.collection.InsertOne(ctx, modifier)
	if err != nil {
		return err
	}
	modifier.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *modifierRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.RecipeModifier, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *modifierRepository) GetByName(ctx context.Context, name string) (*models.RecipeModifier, error) {
	return r.findOne(ctx, nameFilter(name))
}

func (r *modifierRepository) findOne(ctx context.Context, filter bson.M) (*models.RecipeModifier, error) {
	var modifier models.RecipeModifier
	err := r.collection.FindOne(ctx, filter).Decode(&modifier)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &modifier, nil
}

func (r *modifierRepository) Update(ctx context.Context, modifier *models.RecipeModifier) error {
	modifier.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": modifier.ID}, modifier)
	return err
}

func (r *modifierRepository) List(ctx context.Context) ([]*models.RecipeModifier, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var modifiers []*models.RecipeModifier
	if err := cursor.All(ctx, &modifiers); err != nil {
		return nil, err
	}
	return modifiers, nil
}
