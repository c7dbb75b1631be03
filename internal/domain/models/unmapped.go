package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnmappedItemType says what could not be resolved
type UnmappedItemType string

const (
	UnmappedProduct    UnmappedItemType = "product"
	UnmappedIngredient UnmappedItemType = "ingredient"
	UnmappedModifier   UnmappedItemType = "modifier"
)

// UnmappedItem records a sales token that matched nothing.
// Identity is (source, item_type, normalized_item, normalized_price_point);
// repeated sightings increment SeenCount.
type UnmappedItem struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Source               Platform            `bson:"source" json:"source"`
	ItemType             UnmappedItemType    `bson:"item_type" json:"item_type"`
	ItemName             string              `bson:"item_name" json:"item_name"`
	PricePointName       string              `bson:"price_point_name,omitempty" json:"price_point_name,omitempty"`
	NormalizedItem       string              `bson:"normalized_item" json:"normalized_item"`
	NormalizedPricePoint string              `bson:"normalized_price_point" json:"normalized_price_point"`
	LastModifiers        []string            `bson:"last_modifiers,omitempty" json:"last_modifiers,omitempty"`
	LastReason           string              `bson:"last_reason" json:"last_reason"`
	LastRawRow           map[string]string   `bson:"last_raw_row,omitempty" json:"last_raw_row,omitempty"`
	SeenCount            int                 `bson:"seen_count" json:"seen_count"`
	FirstSeen            time.Time           `bson:"first_seen" json:"first_seen"`
	LastSeen             time.Time           `bson:"last_seen" json:"last_seen"`
	Resolved             bool                `bson:"resolved" json:"resolved"`
	Ignored              bool                `bson:"ignored" json:"ignored"`
	ResolvedTo           *primitive.ObjectID `bson:"resolved_to,omitempty" json:"resolved_to,omitempty"`
	ResolvedAt           *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	Note                 string              `bson:"item_note,omitempty" json:"item_note,omitempty"`
}

// Key returns the identity tuple as a single string
func (u *UnmappedItem) Key() string {
	return string(u.Source) + "|" + string(u.ItemType) + "|" + u.NormalizedItem + "|" + u.NormalizedPricePoint
}
