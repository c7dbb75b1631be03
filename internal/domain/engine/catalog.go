package engine

import (
	"sort"
	"strings"

	"github.com/ak/cafeinv/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogData is the reference data one run works against
type CatalogData struct {
	Types       []*models.IngredientType
	Ingredients []*models.Ingredient
	Products    []*models.Product
	Modifiers   []*models.RecipeModifier
}

// IngredientRef is the slice of an ingredient the engine needs
type IngredientRef struct {
	ID       primitive.ObjectID  `json:"id"`
	Name     string              `json:"name"`
	Type     string              `json:"type"`
	TypeID   *primitive.ObjectID `json:"type_id,omitempty"`
	UnitType models.UnitType     `json:"unit_type"`
}

type compiledModifier struct {
	*models.RecipeModifier
	selector Selector
	plan     ReplacementPlan
}

type productEntry struct {
	product    *models.Product
	normalized string
}

// Catalog is an immutable snapshot of products, ingredients and
// modifiers plus the match cache for a single import run. Selectors and
// replacement plans are parsed once here.
type Catalog struct {
	ingredients       map[primitive.ObjectID]IngredientRef
	ingredientsByName map[string]IngredientRef
	products          []productEntry
	productsBySKU     map[string]*models.Product
	modifiers         map[primitive.ObjectID]*compiledModifier
	modifiersByName   map[string]*compiledModifier
	modifiersByNorm   map[string]*compiledModifier
	matches           map[string]matchResult
}

// NewCatalog indexes reference data. When names collide the first one
// in input order wins.
func NewCatalog(data CatalogData) *Catalog {
	c := &Catalog{
		ingredients:       make(map[primitive.ObjectID]IngredientRef, len(data.Ingredients)),
		ingredientsByName: make(map[string]IngredientRef, len(data.Ingredients)),
		productsBySKU:     make(map[string]*models.Product, len(data.Products)),
		modifiers:         make(map[primitive.ObjectID]*compiledModifier, len(data.Modifiers)),
		modifiersByName:   make(map[string]*compiledModifier, len(data.Modifiers)),
		modifiersByNorm:   make(map[string]*compiledModifier, len(data.Modifiers)),
		matches:           make(map[string]matchResult),
	}

	types := make(map[primitive.ObjectID]*models.IngredientType, len(data.Types))
	for _, t := range data.Types {
		if t != nil {
			types[t.ID] = t
		}
	}

	for _, ing := range data.Ingredients {
		if ing == nil {
			continue
		}
		ref := IngredientRef{ID: ing.ID, Name: ing.Name, Type: FallbackType, UnitType: ing.UnitType}
		if ing.TypeID != nil {
			if t, ok := types[*ing.TypeID]; ok {
				ref.Type = t.Name
				ref.TypeID = ing.TypeID
				if ref.UnitType == "" {
					ref.UnitType = t.UnitType
				}
			}
		}
		c.ingredients[ing.ID] = ref
		key := NormalizeToken(ing.Name)
		if _, dup := c.ingredientsByName[key]; !dup {
			c.ingredientsByName[key] = ref
		}
	}

	for _, p := range data.Products {
		if p == nil {
			continue
		}
		c.products = append(c.products, productEntry{product: p, normalized: NormalizeName(p.Name)})
		if sku := strings.ToLower(strings.TrimSpace(p.SKU)); sku != "" {
			if _, dup := c.productsBySKU[sku]; !dup {
				c.productsBySKU[sku] = p
			}
		}
	}
	sort.SliceStable(c.products, func(i, j int) bool {
		return c.products[i].normalized < c.products[j].normalized
	})

	for _, m := range data.Modifiers {
		if m == nil {
			continue
		}
		cm := &compiledModifier{
			RecipeModifier: m,
			selector:       ParseSelector(m.TargetSelector),
			plan:           ParseReplacementPlan(m.Replaces),
		}
		c.modifiers[m.ID] = cm
		if key := NormalizeToken(m.Name); key != "" {
			if _, dup := c.modifiersByName[key]; !dup {
				c.modifiersByName[key] = cm
			}
		}
		if key := NormalizeName(m.Name); key != "" {
			if _, dup := c.modifiersByNorm[key]; !dup {
				c.modifiersByNorm[key] = cm
			}
		}
	}

	return c
}

// Ingredient looks up an ingredient by id
func (c *Catalog) Ingredient(id primitive.ObjectID) (IngredientRef, bool) {
	ref, ok := c.ingredients[id]
	return ref, ok
}

// IngredientByName looks up an ingredient by case-insensitive name
func (c *Catalog) IngredientByName(name string) (IngredientRef, bool) {
	ref, ok := c.ingredientsByName[NormalizeToken(name)]
	return ref, ok
}

// Modifier implements ModifierGraph
func (c *Catalog) Modifier(id primitive.ObjectID) *models.RecipeModifier {
	if cm, ok := c.modifiers[id]; ok {
		return cm.RecipeModifier
	}
	return nil
}

// ModifierByName resolves a raw modifier token: exact name ignoring case
// first, then the punctuation-free normalized form.
func (c *Catalog) ModifierByName(token string) (*models.RecipeModifier, bool) {
	if cm, ok := c.modifiersByName[NormalizeToken(token)]; ok {
		return cm.RecipeModifier, true
	}
	if key := NormalizeName(token); key != "" {
		if cm, ok := c.modifiersByNorm[key]; ok {
			return cm.RecipeModifier, true
		}
	}
	return nil, false
}

// ModifierContaining is the loose lookup for shortened POS tokens: the
// shortest modifier whose normalized name contains the token, ties broken
// lexically.
func (c *Catalog) ModifierContaining(token string) (*models.RecipeModifier, bool) {
	key := NormalizeName(token)
	if key == "" {
		return nil, false
	}
	var (
		best     *compiledModifier
		bestName string
	)
	for name, cm := range c.modifiersByNorm {
		if !strings.Contains(name, key) {
			continue
		}
		if best == nil || shortest(name, bestName) {
			best, bestName = cm, name
		}
	}
	if best == nil {
		return nil, false
	}
	return best.RecipeModifier, true
}

// Preset finds a "baristas choice" product named by a modifier token
func (c *Catalog) Preset(token string) (*models.Product, bool) {
	key := NormalizeName(token)
	if key == "" {
		return nil, false
	}
	for _, pe := range c.products {
		if pe.normalized == key && pe.product.HasCategory(models.CategoryBaristasChoice) {
			return pe.product, true
		}
	}
	return nil, false
}

func (c *Catalog) compiled(id primitive.ObjectID) *compiledModifier {
	return c.modifiers[id]
}

// ingredientRef resolves an id, falling back to a MISC placeholder so a
// recipe line pointing at a deleted ingredient is still visible.
func (c *Catalog) ingredientRef(id primitive.ObjectID) IngredientRef {
	if ref, ok := c.ingredients[id]; ok {
		return ref
	}
	return IngredientRef{ID: id, Name: id.Hex(), Type: FallbackType}
}

// Build seeds a recipe map from the product's base recipe. A nil product
// is a caller bug; unmapped lines should start from NewRecipeMap.
func (c *Catalog) Build(product *models.Product) *RecipeMap {
	if product == nil {
		panic("engine: Build called with nil product")
	}
	m := NewRecipeMap()
	for _, item := range product.RecipeItems {
		m.Add(c.ingredientRef(item.IngredientID), item.Quantity, SourceBaseRecipe)
	}
	return m
}
