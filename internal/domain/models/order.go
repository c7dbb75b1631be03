package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Platform is the sales system an order came from
type Platform string

const (
	PlatformSquare  Platform = "square"
	PlatformShopify Platform = "shopify"
)

// ParsePlatform validates a platform label
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformSquare, PlatformShopify:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

func (p Platform) Valid() bool {
	return p == PlatformSquare || p == PlatformShopify
}

// Order is an imported sales order. Unique on (order_id, platform);
// items are rewritten on every import of the same order.
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID     string             `bson:"order_id" json:"order_id"` // platform transaction id
	Platform    Platform           `bson:"platform" json:"platform"`
	OrderDate   time.Time          `bson:"order_date" json:"order_date"`
	TotalAmount decimal.Decimal    `bson:"total_amount" json:"total_amount"`
	Items       []OrderItem        `bson:"items" json:"items"`
	SyncedAt    time.Time          `bson:"synced_at" json:"synced_at"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// OrderItem is one sold line of an order
type OrderItem struct {
	ProductID   *primitive.ObjectID `bson:"product_id,omitempty" json:"product_id,omitempty"` // nil when unmapped
	ProductName string              `bson:"product_name,omitempty" json:"product_name,omitempty"`
	ItemName    string              `bson:"item_name" json:"item_name"`
	PricePoint  string              `bson:"price_point,omitempty" json:"price_point,omitempty"`
	SKU         string              `bson:"sku,omitempty" json:"sku,omitempty"`
	Modifiers   []string            `bson:"modifiers,omitempty" json:"modifiers,omitempty"`
	Quantity    int                 `bson:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal     `bson:"unit_price" json:"unit_price"`
	MatchReason string              `bson:"match_reason" json:"match_reason"`
}
