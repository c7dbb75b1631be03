package repositories

import (
	"context"
	"regexp"
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

// nameFilter matches a name field exactly, ignoring case
func nameFilter(name string) bson.M {
	return bson.M{"name": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}}
}

type ingredientTypeRepository struct {
	collection *mongo.Collection
}

func NewIngredientTypeRepository(db *database.MongoDB) repositories.IngredientTypeRepository {
	return &ingredientTypeRepository{
		collection: db.Collection(database.CollectionIngredientTypes),
	}
}

func (r *ingredientTypeRepository) Create(ctx context.Context, t *models.IngredientType) error {
	t.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		return err
	}
	t.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ingredientTypeRepository) GetByName(ctx context.Context, name string) (*models.IngredientType, error) {
	var t models.IngredientType
	err := r.collection.FindOne(ctx, nameFilter(name)).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *ingredientTypeRepository) List(ctx context.Context) ([]*models.IngredientType, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var types []*models.IngredientType
	if err := cursor.All(ctx, &types); err != nil {
		return nil, err
	}
	return types, nil
}

type ingredientRepository struct {
	collection *mongo.Collection
}

func NewIngredientRepository(db *database.MongoDB) repositories.IngredientRepository {
	return &ingredientRepository{
		collection: db.Collection(database.CollectionIngredients),
	}
}

func (r *ingredientRepository) Create(ctx context.Context, ingredient *models.Ingredient) error {
	ingredient.CreatedAt = time.Now()
	ingredient.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, ingredient)
	if err != nil {
		return err
	}
	ingredient.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ingredientRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ingredient, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ingredientRepository) GetByName(ctx context.Context, name string) (*models.Ingredient, error) {
	return r.findOne(ctx, nameFilter(name))
}

func (r *ingredientRepository) findOne(ctx context.Context, filter bson.M) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := r.collection.FindOne(ctx, filter).Decode(&ingredient)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ingredient, nil
}

func (r *ingredientRepository) Update(ctx context.Context, ingredient *models.Ingredient) error {
	ingredient.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": ingredient.ID}, ingredient)
	return err
}

func (r *ingredientRepository) List(ctx context.Context) ([]*models.Ingredient, error) {
	return r.find(ctx, bson.M{})
}

func (r *ingredientRepository) ListLowStock(ctx context.Context) ([]*models.Ingredient, error) {
	query := bson.M{
		"reorder_point": bson.M{"$exists": true, "$ne": nil},
		"$expr":         bson.M{"$lte": bson.A{"$current_stock", "$reorder_point"}},
	}
	return r.find(ctx, query)
}

func (r *ingredientRepository) find(ctx context.Context, query bson.M) ([]*models.Ingredient, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ingredients []*models.Ingredient
	if err := cursor.All(ctx, &ingredients); err != nil {
		return nil, err
	}
	return ingredients, nil
}

// AdjustStock adds delta (negative to consume) to current_stock
func (r *ingredientRepository) AdjustStock(ctx context.Context, id primitive.ObjectID, delta decimal.Decimal) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"current_stock": delta},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	return err
}
