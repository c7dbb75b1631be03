package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IngredientUsageLog is the persisted usage of one ingredient on one
// business date from one source. Updates add to QuantityUsed.
type IngredientUsageLog struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IngredientID         primitive.ObjectID `bson:"ingredient_id" json:"ingredient_id"`
	IngredientName       string             `bson:"ingredient_name" json:"ingredient_name"`
	Date                 string             `bson:"date" json:"date"` // YYYY-MM-DD in the business time zone
	Source               Platform           `bson:"source" json:"source"`
	QuantityUsed         decimal.Decimal    `bson:"quantity_used" json:"quantity_used"`
	CalculatedFromOrders bool               `bson:"calculated_from_orders" json:"calculated_from_orders"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

// ImportLog summarizes one committed import run
type ImportLog struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RunID             string             `bson:"run_id" json:"run_id"`
	Source            Platform           `bson:"source" json:"source"`
	Rows              int                `bson:"rows" json:"rows"`
	Matched           int                `bson:"matched" json:"matched"`
	Unmapped          int                `bson:"unmapped" json:"unmapped"`
	ModifiersApplied  int                `bson:"modifiers_applied" json:"modifiers_applied"`
	ModifiersUnmapped int                `bson:"modifiers_unmapped" json:"modifiers_unmapped"`
	Skipped           int                `bson:"skipped" json:"skipped"`
	Errors            int                `bson:"errors" json:"errors"`
	StartedAt         time.Time          `bson:"started_at" json:"started_at"`
	FinishedAt        time.Time          `bson:"finished_at" json:"finished_at"`
}
