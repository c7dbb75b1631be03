package engine

import (
	"strings"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Temperatures and sizes used for cup selection
const (
	TempHot  = "hot"
	TempCold = "cold"

	SizeSmall   = "small"
	SizeMedium  = "medium"
	SizeLarge   = "large"
	SizeXL      = "xl"
	SizeGrowler = "growler"
)

// PackagingType is the ingredient type label for cups and containers
const PackagingType = "PACKAGING"

var cupMap = map[string]map[string]string{
	TempHot: {
		SizeSmall:  "12oz Cup",
		SizeMedium: "16oz Cup",
		SizeLarge:  "20oz Cup",
		SizeXL:     "20oz Cup",
	},
	TempCold: {
		SizeSmall:   "16oz Cup",
		SizeMedium:  "24oz Cup",
		SizeLarge:   "24oz Cup",
		SizeXL:      "32oz Cup",
		SizeGrowler: "64oz Growler",
	},
}

// base recipes are written for a 12oz drink
var sizeScale = map[string]map[string]decimal.Decimal{
	TempHot: {
		SizeSmall: decimal.NewFromInt(1),
		SizeLarge: decimal.RequireFromString("1.67"),
	},
	TempCold: {
		SizeSmall:   decimal.RequireFromString("1.34"),
		SizeXL:      decimal.NewFromInt(2),
		SizeGrowler: decimal.NewFromInt(4),
	},
}

var (
	coldKeywords = []string{"iced", "ice", "cold", "coldbrew", "nitro", "frappe", "smoothie", "refresher"}
	hotKeywords  = []string{"hot", "steamed", "espresso", "latte", "americano", "tea"}

	// checked in order; first hit wins
	sizePatterns = []struct {
		label    string
		patterns []string
	}{
		{SizeGrowler, []string{"growler", "64oz", "64 oz"}},
		{SizeXL, []string{"xl", "extra large", "xlarge", "32oz", "32 oz"}},
		{SizeLarge, []string{"large", "20oz", "20 oz"}},
		{SizeMedium, []string{"medium", "med"}},
		{SizeSmall, []string{"small", "short", "12oz", "12 oz", "16oz", "16 oz", "10oz"}},
	}
)

// CupFor returns the default cup ingredient name for a drink
func CupFor(temp, size string) (string, bool) {
	name, ok := cupMap[temp][size]
	return name, ok
}

// SizeScale returns the recipe multiplier for a temperature and size
func SizeScale(temp, size string) decimal.Decimal {
	if f, ok := sizeScale[temp][size]; ok {
		return f
	}
	return decimal.NewFromInt(1)
}

// InferTempAndSize guesses temperature and size from the product name and
// descriptor words. Defaults are hot and small.
func InferTempAndSize(productName string, descriptors []string) (temp, size string) {
	name := NormalizeName(productName)
	desc := NormalizeName(strings.Join(descriptors, " "))
	either := func(k string) bool { return strings.Contains(name, k) || strings.Contains(desc, k) }

	temp = TempHot
	for _, k := range coldKeywords {
		if either(k) {
			temp = TempCold
			break
		}
	}
	for _, d := range descriptors {
		if strings.TrimSpace(strings.ToLower(d)) == "iced" {
			temp = TempCold
		}
	}
	explicitCold := either("iced") || either("cold")
	for _, k := range hotKeywords {
		if either(k) && !explicitCold {
			temp = TempHot
			break
		}
	}

	size = SizeSmall
	for _, sp := range sizePatterns {
		for _, p := range sp.patterns {
			if containsWords(name, p) || containsWords(desc, p) {
				return temp, sp.label
			}
		}
	}
	return temp, size
}

// LineContext carries the packaging and sizing facts for one line
type LineContext struct {
	IsDrink     bool   `json:"is_drink"`
	IncludeCup  bool   `json:"include_cup"`
	ScaleBySize bool   `json:"scale_by_size"`
	Temp        string `json:"temp"`
	Size        string `json:"size"`
}

// IngredientUsage is the per-unit usage of one ingredient on a line
type IngredientUsage struct {
	IngredientID primitive.ObjectID `json:"ingredient_id"`
	Name         string             `json:"name"`
	Type         string             `json:"type"`
	Quantity     decimal.Decimal    `json:"quantity"`
	Sources      []string           `json:"sources"`
}

// LineUsage is the per-unit ingredient usage of a line, before the sold
// quantity is applied
type LineUsage struct {
	Items   []IngredientUsage `json:"items"`
	Context LineContext       `json:"context"`
	Missing []string          `json:"missing,omitempty"`
}

// Get finds an item by ingredient name ignoring case
func (u LineUsage) Get(name string) (IngredientUsage, bool) {
	for _, it := range u.Items {
		if models.SameName(it.Name, name) {
			return it, true
		}
	}
	return IngredientUsage{}, false
}

// Aggregate finalizes a recipe map into line usage: optional size
// scaling, the automatic cup for drinks, and de-duplicated sources.
// A resolved modifier typed PACKAGING (own mug, growler fill) or a
// packaging ingredient already in the map replaces the automatic cup.
// m itself is not modified.
func (e *Engine) Aggregate(m *RecipeMap, mods []*models.RecipeModifier, ctx LineContext) LineUsage {
	work := m.Clone()
	usage := LineUsage{Context: ctx}

	if ctx.IsDrink && ctx.ScaleBySize {
		factor := SizeScale(ctx.Temp, ctx.Size)
		if !factor.Equal(decimal.NewFromInt(1)) {
			for _, entry := range work.Entries() {
				entry.Quantity = entry.Quantity.Mul(factor).Round(quantityPlaces)
				entry.addSource(SourceSizeScale)
			}
		}
	}

	if ctx.IsDrink && ctx.IncludeCup && !hasContainer(work, mods) {
		if cup, ok := CupFor(ctx.Temp, ctx.Size); ok {
			if ing, ok := e.catalog.IngredientByName(cup); ok {
				work.Add(ing, decimal.NewFromInt(1), SourceAutoCup)
			} else {
				usage.Missing = append(usage.Missing, cup)
			}
		}
	}

	for _, entry := range work.Entries() {
		usage.Items = append(usage.Items, IngredientUsage{
			IngredientID: entry.IngredientID,
			Name:         entry.Name,
			Type:         entry.Type,
			Quantity:     entry.Quantity,
			Sources:      dedupe(entry.Sources),
		})
	}
	return usage
}

func hasContainer(m *RecipeMap, mods []*models.RecipeModifier) bool {
	for _, mod := range mods {
		if strings.EqualFold(mod.Type, PackagingType) {
			return true
		}
	}
	for _, entry := range m.Entries() {
		if strings.EqualFold(entry.Type, PackagingType) {
			return true
		}
	}
	return false
}

// dedupe keeps the first occurrence of every label
func dedupe(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
