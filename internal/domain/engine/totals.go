package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BusinessDate is the café's calendar day for t
func BusinessDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

// UsageTotals accumulates ingredient usage for one import run. It is not
// safe for concurrent use; give each worker its own and Merge them.
type UsageTotals struct {
	ByIngredient map[primitive.ObjectID]decimal.Decimal
	ByDate       map[string]map[primitive.ObjectID]decimal.Decimal
	Breakdown    map[primitive.ObjectID]map[string]decimal.Decimal
	Names        map[primitive.ObjectID]string
}

// NewUsageTotals returns empty totals
func NewUsageTotals() *UsageTotals {
	t := &UsageTotals{}
	t.Reset()
	return t
}

// Reset clears everything
func (t *UsageTotals) Reset() {
	t.ByIngredient = make(map[primitive.ObjectID]decimal.Decimal)
	t.ByDate = make(map[string]map[primitive.ObjectID]decimal.Decimal)
	t.Breakdown = make(map[primitive.ObjectID]map[string]decimal.Decimal)
	t.Names = make(map[primitive.ObjectID]string)
}

// AddLine multiplies per-unit usage by the sold quantity and folds it in
func (t *UsageTotals) AddLine(usage LineUsage, sold decimal.Decimal, date, label string) {
	for _, item := range usage.Items {
		t.add(item.IngredientID, item.Name, item.Quantity.Mul(sold), date, label)
	}
}

func (t *UsageTotals) add(id primitive.ObjectID, name string, qty decimal.Decimal, date, label string) {
	if qty.IsZero() {
		return
	}
	t.Names[id] = name
	t.ByIngredient[id] = t.ByIngredient[id].Add(qty)

	day, ok := t.ByDate[date]
	if !ok {
		day = make(map[primitive.ObjectID]decimal.Decimal)
		t.ByDate[date] = day
	}
	day[id] = day[id].Add(qty)

	sources, ok := t.Breakdown[id]
	if !ok {
		sources = make(map[string]decimal.Decimal)
		t.Breakdown[id] = sources
	}
	sources[label] = sources[label].Add(qty)
}

// Merge adds other into t
func (t *UsageTotals) Merge(other *UsageTotals) {
	for id, name := range other.Names {
		t.Names[id] = name
	}
	for id, qty := range other.ByIngredient {
		t.ByIngredient[id] = t.ByIngredient[id].Add(qty)
	}
	for date, day := range other.ByDate {
		mine, ok := t.ByDate[date]
		if !ok {
			mine = make(map[primitive.ObjectID]decimal.Decimal, len(day))
			t.ByDate[date] = mine
		}
		for id, qty := range day {
			mine[id] = mine[id].Add(qty)
		}
	}
	for id, labels := range other.Breakdown {
		mine, ok := t.Breakdown[id]
		if !ok {
			mine = make(map[string]decimal.Decimal, len(labels))
			t.Breakdown[id] = mine
		}
		for label, qty := range labels {
			mine[label] = mine[label].Add(qty)
		}
	}
}

// Total returns the run total for one ingredient
func (t *UsageTotals) Total(id primitive.ObjectID) decimal.Decimal {
	return t.ByIngredient[id]
}

// Dates returns the business dates seen, ascending
func (t *UsageTotals) Dates() []string {
	dates := make([]string, 0, len(t.ByDate))
	for d := range t.ByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// UsageSummary is one ingredient's totals in report form
type UsageSummary struct {
	IngredientID primitive.ObjectID         `json:"ingredient_id"`
	Name         string                     `json:"name"`
	Total        decimal.Decimal            `json:"total"`
	ByDate       map[string]decimal.Decimal `json:"by_date"`
	Breakdown    map[string]decimal.Decimal `json:"breakdown"`
}

// Summary flattens the totals, sorted by ingredient name
func (t *UsageTotals) Summary() []UsageSummary {
	out := make([]UsageSummary, 0, len(t.ByIngredient))
	for id, total := range t.ByIngredient {
		s := UsageSummary{
			IngredientID: id,
			Name:         t.Names[id],
			Total:        total,
			ByDate:       make(map[string]decimal.Decimal),
			Breakdown:    make(map[string]decimal.Decimal),
		}
		for date, day := range t.ByDate {
			if qty, ok := day[id]; ok {
				s.ByDate[date] = qty
			}
		}
		for label, qty := range t.Breakdown[id] {
			s.Breakdown[label] = qty
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].IngredientID.Hex() < out[j].IngredientID.Hex()
	})
	return out
}
