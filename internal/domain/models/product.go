package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Well-known product categories
const (
	CategoryBaseItem       = "base_item"
	CategoryBaristasChoice = "baristas choice"
	CategoryDrink          = "drink"
	CategoryRetail         = "retail"
)

// drinkCategories mark products that get a cup and size scaling
var drinkCategories = map[string]bool{
	CategoryDrink:          true,
	"drinks":               true,
	"coffee":               true,
	"espresso":             true,
	"tea":                  true,
	CategoryBaristasChoice: true,
}

// Product is a sellable menu item with an optional base recipe
type Product struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	SKU         string               `bson:"sku" json:"sku"`
	Name        string               `bson:"name" json:"name"`
	Categories  []string             `bson:"categories,omitempty" json:"categories,omitempty"`
	RecipeItems []RecipeItem         `bson:"recipe_items" json:"recipe_items"`
	ModifierIDs []primitive.ObjectID `bson:"modifier_ids,omitempty" json:"modifier_ids,omitempty"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

// RecipeItem is one ingredient line of a product's base recipe
type RecipeItem struct {
	IngredientID primitive.ObjectID `bson:"ingredient_id" json:"ingredient_id"`
	Quantity     decimal.Decimal    `bson:"quantity" json:"quantity"`
	Unit         string             `bson:"unit,omitempty" json:"unit,omitempty"`
}

// HasCategory reports whether the product is tagged with category (case-insensitive)
func (p *Product) HasCategory(category string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(strings.TrimSpace(c), category) {
			return true
		}
	}
	return false
}

// IsDrink reports whether the product is served in a cup
func (p *Product) IsDrink() bool {
	for _, c := range p.Categories {
		if drinkCategories[strings.ToLower(strings.TrimSpace(c))] {
			return true
		}
	}
	return false
}

// Validate checks recipe invariants: non-negative quantities and one line per ingredient
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	seen := make(map[primitive.ObjectID]bool, len(p.RecipeItems))
	for _, item := range p.RecipeItems {
		if item.Quantity.IsNegative() {
			return fmt.Errorf("product %q: negative quantity for ingredient %s", p.Name, item.IngredientID.Hex())
		}
		if seen[item.IngredientID] {
			return fmt.Errorf("product %q: duplicate recipe item for ingredient %s", p.Name, item.IngredientID.Hex())
		}
		seen[item.IngredientID] = true
	}
	return nil
}
