package engine

import (
	"testing"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture is a small café catalog shared by the engine tests
type fixture struct {
	types       map[string]*models.IngredientType
	ingredients map[string]*models.Ingredient
	products    map[string]*models.Product
	modifiers   map[string]*models.RecipeModifier
	data        CatalogData
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		types:       map[string]*models.IngredientType{},
		ingredients: map[string]*models.Ingredient{},
		products:    map[string]*models.Product{},
		modifiers:   map[string]*models.RecipeModifier{},
	}

	for _, name := range []string{"MILK", "SYRUP", "COFFEE", "TEA", "PACKAGING"} {
		f.addType(name)
	}

	f.addIngredient("Whole Milk", "MILK")
	f.addIngredient("Oat Milk", "MILK")
	f.addIngredient("Almond Milk", "MILK")
	f.addIngredient("Espresso", "COFFEE")
	f.addIngredient("Cold Brew", "COFFEE")
	f.addIngredient("Vanilla Syrup", "SYRUP")
	f.addIngredient("Caramel Syrup", "SYRUP")
	f.addIngredient("Chai Concentrate", "TEA")
	f.addIngredient("Whipped Cream", "")
	f.addIngredient("Banana Bread", "")
	for _, cup := range []string{"12oz Cup", "16oz Cup", "20oz Cup", "24oz Cup", "32oz Cup", "64oz Growler"} {
		f.addIngredient(cup, "PACKAGING")
	}

	f.addProduct("Latte", []string{"drink"}, "Espresso", "2", "Whole Milk", "8")
	f.addProduct("Oat Latte", []string{"drink"}, "Espresso", "2", "Oat Milk", "8")
	f.addProduct("Chai Latte", []string{"drink"}, "Chai Concentrate", "4", "Whole Milk", "6")
	f.addProduct("Cold Brew", []string{"drink", "base_item"}, "Cold Brew", "12")
	f.addProduct("Banana Bread", []string{"base_item"}, "Banana Bread", "1")
	f.addProduct("Banana Bread Loaf Deluxe", []string{"base_item"}, "Banana Bread", "4")
	f.addProduct("Muffin Blueberry", []string{"bakery"})
	f.addProduct("Cherry Dipped Vanilla", []string{"baristas choice"}, "Cold Brew", "10", "Vanilla Syrup", "2")

	f.addModifier(&models.RecipeModifier{Name: "Oat Milk", Behavior: models.BehaviorReplace,
		TargetSelector: map[string]any{"by_type": []any{"MILK"}},
		Replaces:       map[string]any{"to": []any{[]any{"Oat Milk", 1.0}}}}, "Oat Milk")
	f.addModifier(&models.RecipeModifier{Name: "Half Oat Half Almond", Behavior: models.BehaviorReplace,
		TargetSelector: bson.D{{Key: "by_name", Value: bson.A{"WHOLE MILK"}}},
		Replaces:       bson.D{{Key: "to", Value: bson.A{bson.A{"Oat Milk", 0.5}, bson.A{"Almond Milk", 0.5}}}}}, "")
	f.addModifier(&models.RecipeModifier{Name: "Almond Swap", Behavior: models.BehaviorReplace,
		TargetSelector: `{"by_type": ["milk"]}`}, "Almond Milk")
	f.addModifier(&models.RecipeModifier{Name: "Extra Shot", Behavior: models.BehaviorAdd, BaseQuantity: dec("1")}, "Espresso")
	f.addModifier(&models.RecipeModifier{Name: "Vanilla", Behavior: models.BehaviorAdd, BaseQuantity: dec("1")}, "Vanilla Syrup")
	f.addModifier(&models.RecipeModifier{Name: "Whip", Behavior: models.BehaviorAdd, BaseQuantity: dec("1.005"), Type: "TOPPING"}, "Whipped Cream")
	f.addModifier(&models.RecipeModifier{Name: "Double Syrup", Behavior: models.BehaviorScale, QuantityFactor: dec("2"),
		TargetSelector: map[string]any{"by_type": []any{"syrup"}}}, "")
	f.addModifier(&models.RecipeModifier{Name: "Double Everything", Behavior: models.BehaviorScale, QuantityFactor: dec("2")}, "")
	f.addModifier(&models.RecipeModifier{Name: "Bad Selector", Behavior: models.BehaviorScale, QuantityFactor: dec("3"),
		TargetSelector: []any{"by_type", "MILK"}}, "")
	f.addModifier(&models.RecipeModifier{Name: "Broken Replace", Behavior: models.BehaviorReplace,
		Replaces: "{not json"}, "Oat Milk")
	f.addModifier(&models.RecipeModifier{Name: "Unicorn Milk", Behavior: models.BehaviorReplace,
		TargetSelector: map[string]any{"by_type": []any{"MILK"}},
		Replaces:       map[string]any{"to": []any{[]any{"Unicorn Milk", 1}}}}, "")
	f.addModifier(&models.RecipeModifier{Name: "Own Mug", Behavior: models.BehaviorExpand, Type: "PACKAGING"}, "")
	f.addModifier(&models.RecipeModifier{Name: "Dirty", Behavior: models.BehaviorExpand}, "", "Extra Shot")
	f.addModifier(&models.RecipeModifier{Name: "Dirty Vanilla Oat", Behavior: models.BehaviorExpand}, "", "Extra Shot", "Vanilla", "Oat Milk", "Dirty")

	return f
}

func (f *fixture) addType(name string) {
	t := &models.IngredientType{ID: primitive.NewObjectID(), Name: name}
	f.types[name] = t
	f.data.Types = append(f.data.Types, t)
}

func (f *fixture) addIngredient(name, typeName string) {
	ing := &models.Ingredient{ID: primitive.NewObjectID(), Name: name, UnitType: models.UnitTypeFluidOz}
	if t, ok := f.types[typeName]; ok {
		id := t.ID
		ing.TypeID = &id
	}
	f.ingredients[name] = ing
	f.data.Ingredients = append(f.data.Ingredients, ing)
}

// addProduct takes alternating ingredient name / quantity pairs
func (f *fixture) addProduct(name string, categories []string, recipe ...string) {
	p := &models.Product{ID: primitive.NewObjectID(), Name: name, SKU: "SKU-" + name, Categories: categories}
	for i := 0; i+1 < len(recipe); i += 2 {
		p.RecipeItems = append(p.RecipeItems, models.RecipeItem{
			IngredientID: f.ingredients[recipe[i]].ID,
			Quantity:     dec(recipe[i+1]),
		})
	}
	f.products[name] = p
	f.data.Products = append(f.data.Products, p)
}

func (f *fixture) addModifier(m *models.RecipeModifier, ingredient string, expandsTo ...string) {
	m.ID = primitive.NewObjectID()
	if ing, ok := f.ingredients[ingredient]; ok {
		id := ing.ID
		m.IngredientID = &id
	}
	for _, child := range expandsTo {
		m.ExpandsTo = append(m.ExpandsTo, f.modifiers[child].ID)
	}
	f.modifiers[m.Name] = m
	f.data.Modifiers = append(f.data.Modifiers, m)
}

func (f *fixture) engine() *Engine {
	return New(NewCatalog(f.data), nil)
}

// qty returns the quantity of the named ingredient, failing if absent
func qty(t *testing.T, m *RecipeMap, name string) decimal.Decimal {
	t.Helper()
	for _, e := range m.Entries() {
		if e.Name == name {
			return e.Quantity
		}
	}
	t.Fatalf("ingredient %q not in recipe map", name)
	return decimal.Zero
}

func has(m *RecipeMap, name string) bool {
	for _, e := range m.Entries() {
		if e.Name == name {
			return true
		}
	}
	return false
}
