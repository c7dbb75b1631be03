package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModifierBehavior is the operation a recipe modifier performs
type ModifierBehavior string

const (
	BehaviorAdd     ModifierBehavior = "ADD"
	BehaviorReplace ModifierBehavior = "REPLACE"
	BehaviorScale   ModifierBehavior = "SCALE"
	BehaviorExpand  ModifierBehavior = "EXPAND"
)

// Valid reports whether b is one of the known behaviors
func (b ModifierBehavior) Valid() bool {
	switch b {
	case BehaviorAdd, BehaviorReplace, BehaviorScale, BehaviorExpand:
		return true
	}
	return false
}

// ParseBehavior normalizes a behavior label. Empty means ADD.
func ParseBehavior(s string) (ModifierBehavior, error) {
	b := ModifierBehavior(strings.ToUpper(strings.TrimSpace(s)))
	if b == "" {
		return BehaviorAdd, nil
	}
	if !b.Valid() {
		return "", fmt.Errorf("unknown modifier behavior %q", s)
	}
	return b, nil
}

// RecipeModifier is a rule that changes a recipe when a sales line carries it.
// TargetSelector and Replaces are stored exactly as entered by admins
// ({by_type: [...], by_name: [...]} and {to: [[name, proportion], ...]})
// and are parsed by the engine when the catalog is loaded.
type RecipeModifier struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"name" json:"name"`
	Type           string               `bson:"type,omitempty" json:"type,omitempty"`
	Behavior       ModifierBehavior     `bson:"behavior" json:"behavior"`
	QuantityFactor decimal.Decimal      `bson:"quantity_factor" json:"quantity_factor"`
	BaseQuantity   decimal.Decimal      `bson:"base_quantity" json:"base_quantity"`
	Unit           string               `bson:"unit,omitempty" json:"unit,omitempty"`
	IngredientID   *primitive.ObjectID  `bson:"ingredient_id,omitempty" json:"ingredient_id,omitempty"`
	TargetSelector any                  `bson:"target_selector,omitempty" json:"target_selector,omitempty"`
	Replaces       any                  `bson:"replaces,omitempty" json:"replaces,omitempty"`
	ExpandsTo      []primitive.ObjectID `bson:"expands_to,omitempty" json:"expands_to,omitempty"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}
