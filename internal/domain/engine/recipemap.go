package engine

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FallbackType labels ingredients that have no ingredient type
const FallbackType = "MISC"

// Source labels attached to recipe map entries
const (
	SourceBaseRecipe = "base_recipe"
	SourcePreset     = "preset"
	SourceAdd        = "modifier_add"
	SourceScale      = "modifier_scale"
	SourceReplace    = "modifier_replace"
	SourceAutoCup    = "auto_cup"
	SourceSizeScale  = "size_scale"
)

// Entry is one ingredient in a recipe map
type Entry struct {
	IngredientID primitive.ObjectID  `json:"ingredient_id"`
	Name         string              `json:"name"`
	Type         string              `json:"type"`
	TypeID       *primitive.ObjectID `json:"type_id,omitempty"`
	Quantity     decimal.Decimal     `json:"quantity"`
	Sources      []string            `json:"sources"`
}

func (e *Entry) addSource(label string) {
	e.Sources = append(e.Sources, label)
}

// RecipeMap is the per-line working set the rule engine mutates. It is
// keyed by ingredient id and remembers insertion order so output is
// deterministic.
type RecipeMap struct {
	entries map[primitive.ObjectID]*Entry
	order   []primitive.ObjectID
}

// NewRecipeMap returns an empty map
func NewRecipeMap() *RecipeMap {
	return &RecipeMap{entries: make(map[primitive.ObjectID]*Entry)}
}

// Len returns the number of entries
func (m *RecipeMap) Len() int { return len(m.order) }

// Get looks up an entry by ingredient id
func (m *RecipeMap) Get(id primitive.ObjectID) (*Entry, bool) {
	e, ok := m.entries[id]
	return e, ok
}

// Entries returns entries in insertion order
func (m *RecipeMap) Entries() []*Entry {
	out := make([]*Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id])
	}
	return out
}

// Add increments (or inserts) an entry's quantity
func (m *RecipeMap) Add(ing IngredientRef, qty decimal.Decimal, source string) *Entry {
	e, ok := m.entries[ing.ID]
	if !ok {
		e = &Entry{IngredientID: ing.ID, Name: ing.Name, Type: ing.Type, TypeID: ing.TypeID, Quantity: decimal.Zero}
		m.entries[ing.ID] = e
		m.order = append(m.order, ing.ID)
	}
	e.Quantity = e.Quantity.Add(qty)
	if source != "" {
		e.addSource(source)
	}
	return e
}

// Set overwrites (or inserts) an entry's quantity
func (m *RecipeMap) Set(ing IngredientRef, qty decimal.Decimal, source string) *Entry {
	e := m.Add(ing, decimal.Zero, source)
	e.Quantity = qty
	return e
}

// Remove deletes an entry; missing ids are ignored
func (m *RecipeMap) Remove(id primitive.ObjectID) {
	if _, ok := m.entries[id]; !ok {
		return
	}
	delete(m.entries, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Select returns the entries a selector picks, in map order
func (m *RecipeMap) Select(sel Selector) []*Entry {
	var out []*Entry
	for _, id := range m.order {
		if e := m.entries[id]; sel.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// RemoveByName removes every entry whose name equals name ignoring case.
// It returns the removed quantity.
func (m *RecipeMap) RemoveByName(name string) decimal.Decimal {
	removed := decimal.Zero
	target := NormalizeToken(name)
	for _, e := range m.Entries() {
		if NormalizeToken(e.Name) == target {
			removed = removed.Add(e.Quantity)
			m.Remove(e.IngredientID)
		}
	}
	return removed
}

// Total sums every entry's quantity
func (m *RecipeMap) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range m.entries {
		total = total.Add(e.Quantity)
	}
	return total
}

// Clone deep-copies the map
func (m *RecipeMap) Clone() *RecipeMap {
	c := NewRecipeMap()
	for _, id := range m.order {
		e := *m.entries[id]
		e.Sources = append([]string(nil), e.Sources...)
		c.entries[id] = &e
		c.order = append(c.order, id)
	}
	return c
}
