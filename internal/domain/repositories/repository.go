package repositories

import (
	"context"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IngredientTypeRepository defines operations for ingredient type data access
type IngredientTypeRepository interface {
	Create(ctx context.Context, t *models.IngredientType) error
	GetByName(ctx context.Context, name string) (*models.IngredientType, error)
	List(ctx context.Context) ([]*models.IngredientType, error)
}

// IngredientRepository defines operations for ingredient data access
type IngredientRepository interface {
	Create(ctx context.Context, ingredient *models.Ingredient) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ingredient, error)
	GetByName(ctx context.Context, name string) (*models.Ingredient, error)
	Update(ctx context.Context, ingredient *models.Ingredient) error
	List(ctx context.Context) ([]*models.Ingredient, error)
	ListLowStock(ctx context.Context) ([]*models.Ingredient, error)
	AdjustStock(ctx context.Context, id primitive.ObjectID, delta decimal.Decimal) error
}

// ProductRepository defines operations for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
	GetByName(ctx context.Context, name string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	List(ctx context.Context) ([]*models.Product, error)
}

// ModifierRepository defines operations for recipe modifier data access
type ModifierRepository interface {
	Create(ctx context.Context, modifier *models.RecipeModifier) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.RecipeModifier, error)
	GetByName(ctx context.Context, name string) (*models.RecipeModifier, error)
	Update(ctx context.Context, modifier *models.RecipeModifier) error
	List(ctx context.Context) ([]*models.RecipeModifier, error)
}

// OrderRepository defines operations for order data access
type OrderRepository interface {
	// Upsert inserts or replaces the order keyed by (order_id, platform)
	Upsert(ctx context.Context, order *models.Order) error
	GetByOrderID(ctx context.Context, platform models.Platform, orderID string) (*models.Order, error)
	DeleteByPlatform(ctx context.Context, platform models.Platform) (int64, error)
}

// UsageLogRepository defines operations for daily ingredient usage logs
type UsageLogRepository interface {
	// Increment adds qty to the (ingredient, date, source) log, creating it if needed
	Increment(ctx context.Context, ingredientID primitive.ObjectID, name, date string, source models.Platform, qty decimal.Decimal) error
	List(ctx context.Context, filter UsageLogFilter) ([]*models.IngredientUsageLog, error)
	DeleteBySource(ctx context.Context, source models.Platform) (int64, error)
}

type UsageLogFilter struct {
	Date         string
	Source       models.Platform
	IngredientID *primitive.ObjectID
}

// UnmappedItemRepository defines operations for the unmapped item queue
type UnmappedItemRepository interface {
	// Record upserts by (source, item_type, normalized_item,
	// normalized_price_point), adding seen to seen_count
	Record(ctx context.Context, item *models.UnmappedItem, seen int) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.UnmappedItem, error)
	List(ctx context.Context, filter UnmappedFilter) ([]*models.UnmappedItem, int64, error)
	Update(ctx context.Context, item *models.UnmappedItem) error
	DeleteBySource(ctx context.Context, source models.Platform) (int64, error)
}

type UnmappedFilter struct {
	Source          models.Platform
	ItemType        models.UnmappedItemType
	IncludeResolved bool
	Page            int
	Limit           int
}

// ImportLogRepository defines operations for import run logs
type ImportLogRepository interface {
	Create(ctx context.Context, log *models.ImportLog) error
	DeleteBySource(ctx context.Context, source models.Platform) (int64, error)
}

// Transactor runs fn so that every repository write inside it commits or
// rolls back together. ctx passed to fn must be used for those writes.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Provider holds all repository instances
type Provider struct {
	IngredientType IngredientTypeRepository
	Ingredient     IngredientRepository
	Product        ProductRepository
	Modifier       ModifierRepository
	Order          OrderRepository
	UsageLog       UsageLogRepository
	Unmapped       UnmappedItemRepository
	ImportLog      ImportLogRepository
	Transactor     Transactor
}
