package memory

import (
	"context"
	"time"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ingredientTypeName(t *models.IngredientType) string { return t.Name }
func ingredientName(i *models.Ingredient) string         { return i.Name }
func productName(p *models.Product) string               { return p.Name }
func modifierName(m *models.RecipeModifier) string       { return m.Name }

type ingredientTypeRepository struct{ s *Store }

func (r *ingredientTypeRepository) Create(_ context.Context, t *models.IngredientType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.CreatedAt = time.Now()
	r.s.types[t.ID] = *t
	return nil
}

func (r *ingredientTypeRepository) GetByName(_ context.Context, name string) (*models.IngredientType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return findByName(r.s.types, name, ingredientTypeName), nil
}

func (r *ingredientTypeRepository) List(_ context.Context) ([]*models.IngredientType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByName(r.s.types, ingredientTypeName, nil), nil
}

type ingredientRepository struct{ s *Store }

func (r *ingredientRepository) Create(_ context.Context, ingredient *models.Ingredient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ingredient.ID.IsZero() {
		ingredient.ID = primitive.NewObjectID()
	}
	ingredient.CreatedAt = time.Now()
	ingredient.UpdatedAt = ingredient.CreatedAt
	r.s.ingredients[ingredient.ID] = *ingredient
	return nil
}

func (r *ingredientRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Ingredient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if ing, ok := r.s.ingredients[id]; ok {
		return &ing, nil
	}
	return nil, nil
}

func (r *ingredientRepository) GetByName(_ context.Context, name string) (*models.Ingredient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return findByName(r.s.ingredients, name, ingredientName), nil
}

func (r *ingredientRepository) Update(_ context.Context, ingredient *models.Ingredient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ingredient.UpdatedAt = time.Now()
	r.s.ingredients[ingredient.ID] = *ingredient
	return nil
}

func (r *ingredientRepository) List(_ context.Context) ([]*models.Ingredient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByName(r.s.ingredients, ingredientName, nil), nil
}

func (r *ingredientRepository) ListLowStock(_ context.Context) ([]*models.Ingredient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByName(r.s.ingredients, ingredientName, (*models.Ingredient).NeedsReorder), nil
}

func (r *ingredientRepository) AdjustStock(_ context.Context, id primitive.ObjectID, delta decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ing, ok := r.s.ingredients[id]
	if !ok {
		return nil
	}
	ing.CurrentStock = ing.CurrentStock.Add(delta)
	ing.UpdatedAt = time.Now()
	r.s.ingredients[id] = ing
	return nil
}

type productRepository struct{ s *Store }

func (r *productRepository) Create(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	r.s.products[product.ID] = *product
	return nil
}

func (r *productRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := r.s.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r *productRepository) GetBySKU(_ context.Context, sku string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if sku == "" {
		return nil, nil
	}
	for _, p := range sortedByName(r.s.products, productName, nil) {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}

func (r *productRepository) GetByName(_ context.Context, name string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return findByName(r.s.products, name, productName), nil
}

func (r *productRepository) Update(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product.UpdatedAt = time.Now()
	r.s.products[product.ID] = *product
	return nil
}

func (r *productRepository) List(_ context.Context) ([]*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByName(r.s.products, productName, nil), nil
}

type modifierRepository struct{ s *Store }

func (r *modifierRepository) Create(_ context.Context, modifier *models.RecipeModifier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if modifier.ID.IsZero() {
		modifier.ID = primitive.NewObjectID()
	}
	if modifier.Behavior == "" {
		modifier.Behavior = models.BehaviorAdd
	}
	modifier.CreatedAt = time.Now()
	modifier.UpdatedAt = modifier.CreatedAt
	r.s.modifiers[modifier.ID] = *modifier
	return nil
}

func (r *modifierRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.RecipeModifier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if m, ok := r.s.modifiers[id]; ok {
		return &m, nil
	}
	return nil, nil
}

func (r *modifierRepository) GetByName(_ context.Context, name string) (*models.RecipeModifier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return findByName(r.s.modifiers, name, modifierName), nil
}

func (r *modifierRepository) Update(_ context.Context, modifier *models.RecipeModifier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	modifier.UpdatedAt = time.Now()
	r.s.modifiers[modifier.ID] = *modifier
	return nil
}

func (r *modifierRepository) List(_ context.Context) ([]*models.RecipeModifier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByName(r.s.modifiers, modifierName, nil), nil
}
