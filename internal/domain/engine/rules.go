package engine

import (
	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// quantityPlaces is the precision every rule rounds to (half-up)
const quantityPlaces = 2

// Outcome reasons
const (
	OutcomeApplied           = "applied"
	OutcomeUnmappedModifier  = "unmapped_modifier"
	OutcomeExpandPreset      = "expand_preset"
	OutcomeMalformedRule     = "malformed_rule"
	OutcomeMissingIngredient = "missing_ingredient"
	OutcomeEmptyToken        = "empty_token"
)

// Outcome reports what one modifier token did to a recipe map
type Outcome struct {
	Token    string                  `json:"token"`
	Modifier string                  `json:"modifier,omitempty"`
	Behavior models.ModifierBehavior `json:"behavior,omitempty"`
	Applied  bool                    `json:"applied"`
	Reason   string                  `json:"reason"`
	Resolved []string                `json:"resolved,omitempty"`
	// Missing lists ingredient names a rule referenced but the catalog lacks
	Missing   []string                 `json:"missing,omitempty"`
	Modifiers []*models.RecipeModifier `json:"-"`
}

// Engine applies modifier rules against recipe maps using one catalog
type Engine struct {
	catalog *Catalog
	log     *logger.Logger
}

// New creates an engine. A nil logger discards diagnostics.
func New(catalog *Catalog, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{catalog: catalog, log: log.WithComponent("engine")}
}

// Catalog returns the engine's catalog
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Apply resolves a raw modifier token and folds it into m. Unknown
// tokens leave m untouched and report Applied=false; a token that names
// a barista's choice product expands that product's recipe instead.
// Lookup order: exact modifier name, preset product, then the shortest
// modifier whose name contains the token.
func (e *Engine) Apply(m *RecipeMap, token string) Outcome {
	out := Outcome{Token: token}
	if NormalizeToken(token) == "" {
		out.Reason = OutcomeEmptyToken
		return out
	}

	mod, ok := e.catalog.ModifierByName(token)
	if !ok {
		if preset, ok := e.catalog.Preset(token); ok {
			e.expandPreset(m, preset)
			out.Applied = true
			out.Reason = OutcomeExpandPreset
			out.Modifier = preset.Name
			return out
		}
		if mod, ok := e.catalog.ModifierContaining(token); ok {
			return e.ApplyModifier(m, mod, token)
		}
		e.log.Debug("Modifier not found", zap.String("token", token))
		out.Reason = OutcomeUnmappedModifier
		return out
	}

	return e.ApplyModifier(m, mod, token)
}

// ApplyModifier applies mod and its expands_to closure in resolved order.
// EXPAND nodes are containers and change nothing themselves, so every
// ADD child adds once and nested SCALE/REPLACE children run their full rule.
// A root that could not change the map (malformed rule, no usable
// ingredient) is reported as not applied.
func (e *Engine) ApplyModifier(m *RecipeMap, mod *models.RecipeModifier, token string) Outcome {
	out := Outcome{Token: token, Modifier: mod.Name, Behavior: mod.Behavior, Reason: OutcomeApplied, Applied: true}

	tree := ResolveTree(mod, e.catalog)
	out.Modifiers = tree
	for _, node := range tree {
		out.Resolved = append(out.Resolved, node.Name)
		missing, status := e.applyNode(m, node)
		out.Missing = append(out.Missing, missing...)
		if node.ID != mod.ID {
			continue
		}
		switch status {
		case nodeMalformed:
			out.Applied = false
			out.Reason = OutcomeMalformedRule
		case nodeNoIngredient:
			out.Applied = false
			out.Reason = OutcomeMissingIngredient
		}
	}
	return out
}

type nodeStatus int

const (
	nodeOK nodeStatus = iota
	nodeMalformed
	nodeNoIngredient // the rule needs its own ingredient and has none
)

func (e *Engine) applyNode(m *RecipeMap, mod *models.RecipeModifier) ([]string, nodeStatus) {
	var (
		selector Selector
		plan     ReplacementPlan
	)
	if cm := e.catalog.compiled(mod.ID); cm != nil {
		selector, plan = cm.selector, cm.plan
	} else {
		selector, plan = ParseSelector(mod.TargetSelector), ParseReplacementPlan(mod.Replaces)
	}
	label := mod.Name

	switch mod.Behavior {
	case models.BehaviorExpand:
		return nil, nodeOK

	case models.BehaviorScale:
		for _, entry := range m.Select(selector) {
			entry.Quantity = entry.Quantity.Mul(mod.QuantityFactor).Round(quantityPlaces)
			entry.addSource(SourceScale + ":" + label)
		}
		return nil, nodeOK

	case models.BehaviorReplace:
		return e.replace(m, mod, selector, plan)

	default: // ADD, and anything stored without a behavior
		ing, ok := e.ownIngredient(mod)
		if !ok {
			return []string{mod.Name}, nodeNoIngredient
		}
		entry := m.Add(ing, mod.BaseQuantity, SourceAdd+":"+label)
		entry.Quantity = entry.Quantity.Round(quantityPlaces)
		return nil, nodeOK
	}
}

// replace moves the selected volume onto the plan's ingredients so the
// total stays the same. With no selected targets nothing is inserted,
// not even zero-quantity plan entries.
func (e *Engine) replace(m *RecipeMap, mod *models.RecipeModifier, selector Selector, plan ReplacementPlan) ([]string, nodeStatus) {
	if plan.Status == PlanMalformed {
		e.log.Debug("Malformed replacement plan, skipping", zap.String("modifier", mod.Name))
		return nil, nodeMalformed
	}

	steps := plan.Targets
	if plan.Status == PlanAbsent {
		ing, ok := e.ownIngredient(mod)
		if !ok {
			return []string{mod.Name}, nodeNoIngredient
		}
		steps = []Replacement{{Name: ing.Name, Proportion: decimal.NewFromInt(1)}}
	}

	targets := m.Select(selector)
	if len(targets) == 0 {
		return nil, nodeOK
	}

	total := decimal.Zero
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		total = total.Add(t.Quantity)
		names = append(names, t.Name)
	}
	for _, n := range names {
		m.RemoveByName(n)
	}

	var missing []string
	for _, step := range steps {
		ing, ok := e.catalog.IngredientByName(step.Name)
		if !ok {
			missing = append(missing, step.Name)
			continue
		}
		entry := m.Add(ing, step.Proportion.Mul(total).Round(quantityPlaces), SourceReplace+":"+mod.Name)
		entry.Quantity = entry.Quantity.Round(quantityPlaces)
	}
	return missing, nodeOK
}

func (e *Engine) ownIngredient(mod *models.RecipeModifier) (IngredientRef, bool) {
	if mod.IngredientID == nil {
		return IngredientRef{}, false
	}
	ing, ok := e.catalog.Ingredient(*mod.IngredientID)
	if !ok {
		return IngredientRef{}, false
	}
	if ing.Type == FallbackType && mod.Type != "" {
		ing.Type = mod.Type
	}
	return ing, true
}

// expandPreset overlays a preset product's recipe onto m
func (e *Engine) expandPreset(m *RecipeMap, preset *models.Product) {
	for _, item := range preset.RecipeItems {
		m.Set(e.catalog.ingredientRef(item.IngredientID), item.Quantity, SourcePreset+":"+preset.Name)
	}
}
