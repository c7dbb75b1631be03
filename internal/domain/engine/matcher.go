package engine

import (
	"strings"

	"github.com/ak/cafeinv/internal/domain/models"
)

// MatchReason is the stable code describing how (or why not) a line
// was matched. Persisted as the unmapped item's last_reason.
type MatchReason string

const (
	ReasonSKU             MatchReason = "sku"
	ReasonExact           MatchReason = "exact"
	ReasonPartial         MatchReason = "partial"
	ReasonExactCombo      MatchReason = "exact_combo"
	ReasonPartialCombo    MatchReason = "partial_combo"
	ReasonBaseFallback    MatchReason = "base_fallback"
	ReasonPartialCore     MatchReason = "partial_core"
	ReasonVariantExact    MatchReason = "variant_exact"
	ReasonVariantPartial  MatchReason = "variant_partial"
	ReasonVariantUnmapped MatchReason = "variant_unmapped"
	ReasonEmptyName       MatchReason = "empty_name"
	ReasonUnmapped        MatchReason = "unmapped"
)

// Matched reports whether the reason carries a product
func (r MatchReason) Matched() bool {
	switch r {
	case ReasonEmptyName, ReasonUnmapped, ReasonVariantUnmapped, "":
		return false
	}
	return true
}

// genericMenuPrefixes are menu containers whose price point names the real drink
var genericMenuPrefixes = []string{
	"baristas choice",
	"barista s choice",
	"barista choice",
	"build your own",
	"custom drink",
}

// price points that mean "no variant"
var blankPricePoints = map[string]bool{"": true, "none": true, "nan": true, "regular": true}

type matchResult struct {
	product *models.Product
	reason  MatchReason
}

// Match resolves a raw item name and price point to a product.
//
// Tiers: generic menu container via price point, exact normalized
// name, partial on the core name, core+price point combo, base_item
// fallback, any product containing the core, unmapped. Ties always break on name length then lexical
// order. Modifier tokens do not take part in matching; they are part of
// the signature so callers pass the whole line.
func (c *Catalog) Match(itemName, pricePoint string, modifiers []string) (*models.Product, MatchReason) {
	name := Normalize(itemName)
	pp := NormalizeName(pricePoint)

	key := name.Full + "\x00" + pp
	if hit, ok := c.matches[key]; ok {
		return hit.product, hit.reason
	}
	product, reason := c.match(name, pp)
	c.matches[key] = matchResult{product: product, reason: reason}
	return product, reason
}

// MatchSKU finds a product by SKU ignoring case
func (c *Catalog) MatchSKU(sku string) (*models.Product, MatchReason) {
	key := strings.ToLower(strings.TrimSpace(sku))
	if key == "" {
		return nil, ReasonUnmapped
	}
	if p, ok := c.productsBySKU[key]; ok {
		return p, ReasonSKU
	}
	return nil, ReasonUnmapped
}

func (c *Catalog) match(name Normalized, pp string) (*models.Product, MatchReason) {
	if name.Core == "" {
		return nil, ReasonEmptyName
	}

	for _, prefix := range genericMenuPrefixes {
		if strings.HasPrefix(name.Full, prefix) {
			return c.matchVariant(pp)
		}
	}

	// 1. exact
	for _, pe := range c.products {
		if pe.normalized == name.Full {
			return pe.product, ReasonExact
		}
	}

	// 2. partial on the core name
	if p := c.pick(longest, func(pe productEntry) bool {
		return pe.normalized == name.Core || containsWords(name.Core, pe.normalized)
	}); p != nil {
		return p, ReasonPartial
	}

	// 3. core + price point
	if !blankPricePoints[pp] {
		combo := name.Core + " " + pp
		if combo != name.Core {
			for _, pe := range c.products {
				if pe.normalized == combo {
					return pe.product, ReasonExactCombo
				}
			}
			if p := c.pick(shortest, func(pe productEntry) bool {
				return strings.Contains(pe.normalized, combo)
			}); p != nil {
				return p, ReasonPartialCombo
			}
		}
	}

	// 4. base items containing the core, most generic first
	if p := c.pick(shortest, func(pe productEntry) bool {
		return pe.product.HasCategory(models.CategoryBaseItem) && strings.Contains(pe.normalized, name.Core)
	}); p != nil {
		return p, ReasonBaseFallback
	}

	// 5. any product containing the core, most generic first
	if p := c.pick(shortest, func(pe productEntry) bool {
		return strings.Contains(pe.normalized, name.Core)
	}); p != nil {
		return p, ReasonPartialCore
	}

	return nil, ReasonUnmapped
}

func (c *Catalog) matchVariant(pp string) (*models.Product, MatchReason) {
	if blankPricePoints[pp] {
		return nil, ReasonVariantUnmapped
	}
	for _, pe := range c.products {
		if pe.normalized == pp {
			return pe.product, ReasonVariantExact
		}
	}
	if p := c.pick(shortest, func(pe productEntry) bool {
		return strings.Contains(pe.normalized, pp)
	}); p != nil {
		return p, ReasonVariantPartial
	}
	return nil, ReasonVariantUnmapped
}

type preference func(candidate, best string) bool

func shortest(candidate, best string) bool {
	if len(candidate) != len(best) {
		return len(candidate) < len(best)
	}
	return candidate < best
}

func longest(candidate, best string) bool {
	if len(candidate) != len(best) {
		return len(candidate) > len(best)
	}
	return candidate < best
}

func (c *Catalog) pick(better preference, keep func(productEntry) bool) *models.Product {
	var best *productEntry
	for i := range c.products {
		pe := &c.products[i]
		if pe.normalized == "" || !keep(*pe) {
			continue
		}
		if best == nil || better(pe.normalized, best.normalized) {
			best = pe
		}
	}
	if best == nil {
		return nil
	}
	return best.product
}

// containsWords reports whether phrase occurs in text on word boundaries
func containsWords(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
