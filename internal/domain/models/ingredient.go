package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnitType is how an ingredient is counted
type UnitType string

const (
	UnitTypeUnit    UnitType = "unit"     // cups, cookies, shots
	UnitTypeFluidOz UnitType = "fluid_oz" // milk, syrup, brew
	UnitTypeGrams   UnitType = "grams"
)

// IngredientType is a named category used for modifier targeting
type IngredientType struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"` // MILK, SYRUP, COFFEE, PACKAGING...
	UnitType  UnitType           `bson:"unit_type,omitempty" json:"unit_type,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Ingredient is a stocked inventory item
type Ingredient struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	TypeID       *primitive.ObjectID `bson:"type_id,omitempty" json:"type_id,omitempty"`
	UnitType     UnitType            `bson:"unit_type" json:"unit_type"`
	CurrentStock decimal.Decimal     `bson:"current_stock" json:"current_stock"`
	AverageCost  decimal.Decimal     `bson:"average_cost" json:"average_cost"` // per unit
	ReorderPoint *decimal.Decimal    `bson:"reorder_point,omitempty" json:"reorder_point,omitempty"`
	CaseSize     *decimal.Decimal    `bson:"case_size,omitempty" json:"case_size,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

// NeedsReorder reports whether stock has fallen to or below the reorder point.
// Ingredients without a reorder point never need one.
func (i *Ingredient) NeedsReorder() bool {
	if i.ReorderPoint == nil {
		return false
	}
	return i.CurrentStock.LessThanOrEqual(*i.ReorderPoint)
}

// CasesOnHand converts current stock to cases, rounded to 2 places.
func (i *Ingredient) CasesOnHand() (decimal.Decimal, bool) {
	if i.CaseSize == nil || i.CaseSize.IsZero() {
		return decimal.Zero, false
	}
	return i.CurrentStock.Div(*i.CaseSize).Round(2), true
}

// SameName compares ingredient names the way recipe lookups do.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
