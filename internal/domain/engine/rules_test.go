package engine

import (
	"testing"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/shopspring/decimal"
)

func TestReplacePreservesVolume(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := NewRecipeMap()
	whole, _ := e.Catalog().IngredientByName("Whole Milk")
	m.Add(whole, dec("8.0"), SourceBaseRecipe)

	out := e.Apply(m, "Half Oat Half Almond")
	if !out.Applied {
		t.Fatalf("outcome = %+v", out)
	}
	if has(m, "Whole Milk") {
		t.Fatal("replaced ingredient should be removed")
	}
	if got := qty(t, m, "Oat Milk"); !got.Equal(dec("4.00")) {
		t.Fatalf("Oat Milk = %s, want 4.00", got)
	}
	if got := qty(t, m, "Almond Milk"); !got.Equal(dec("4.00")) {
		t.Fatalf("Almond Milk = %s, want 4.00", got)
	}
	if !m.Total().Equal(dec("8")) {
		t.Fatalf("total = %s, want 8", m.Total())
	}
}

func TestReplaceByTypeWithOwnIngredientFallback(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Chai Latte"])

	// Almond Swap has a selector but no plan, so its own ingredient takes the volume
	e.Apply(m, "almond swap")
	if has(m, "Whole Milk") {
		t.Fatal("Whole Milk should be gone")
	}
	if got := qty(t, m, "Almond Milk"); !got.Equal(dec("6")) {
		t.Fatalf("Almond Milk = %s, want 6", got)
	}
	if got := qty(t, m, "Chai Concentrate"); !got.Equal(dec("4")) {
		t.Fatalf("Chai Concentrate = %s, want untouched 4", got)
	}
}

func TestReplaceRemovesCaseInsensitiveNames(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := NewRecipeMap()
	whole, _ := e.Catalog().IngredientByName("Whole Milk")
	m.Add(whole, dec("3"), SourceBaseRecipe)
	// a second ingredient id whose name differs only by case
	shadow := whole
	shadow.ID = f.ingredients["Banana Bread"].ID
	shadow.Name = "WHOLE MILK"
	shadow.Type = FallbackType
	shadow.TypeID = nil
	m.Add(shadow, dec("2"), SourceBaseRecipe)

	e.Apply(m, "Half Oat Half Almond")
	if m.Len() != 2 || has(m, "WHOLE MILK") || has(m, "Whole Milk") {
		t.Fatalf("entries = %+v", m.Entries())
	}
	if got := qty(t, m, "Oat Milk"); !got.Equal(dec("2.5")) {
		t.Fatalf("Oat Milk = %s, want 2.5", got)
	}
}

func TestScaleWithEmptySelectorsDoublesEverything(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Latte"])

	e.Apply(m, "Double Everything")
	if got := qty(t, m, "Espresso"); !got.Equal(dec("4")) {
		t.Fatalf("Espresso = %s", got)
	}
	if got := qty(t, m, "Whole Milk"); !got.Equal(dec("16")) {
		t.Fatalf("Whole Milk = %s", got)
	}
}

func TestScaleByTypeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Latte"])
	e.Apply(m, "Vanilla")
	e.Apply(m, "Double Syrup")

	if got := qty(t, m, "Vanilla Syrup"); !got.Equal(dec("2")) {
		t.Fatalf("Vanilla Syrup = %s, want 2", got)
	}
	if got := qty(t, m, "Whole Milk"); !got.Equal(dec("8")) {
		t.Fatalf("Whole Milk = %s, want 8", got)
	}
}

func TestSelectorUnionAndTypeID(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Chai Latte"])

	sel := ParseSelector(map[string]any{
		"by_type": []any{f.types["TEA"].ID},
		"by_name": []any{"whole milk"},
	})
	if got := len(m.Select(sel)); got != 2 {
		t.Fatalf("union selected %d entries, want 2", got)
	}
	if got := len(m.Select(ParseSelector(map[string]any{"by_name": "espresso"}))); got != 0 {
		t.Fatalf("selected %d, want 0", got)
	}
}

func TestAddThenScaleRoundsHalfUp(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := NewRecipeMap()
	whip, _ := e.Catalog().IngredientByName("Whipped Cream")
	m.Add(whip, dec("0.00"), SourceBaseRecipe)

	e.Apply(m, "Whip")
	if got := qty(t, m, "Whipped Cream"); got.String() != "1.01" {
		t.Fatalf("after ADD = %s, want 1.01", got)
	}
	e.Apply(m, "Double Everything")
	got := qty(t, m, "Whipped Cream")
	if got.String() != "2.02" {
		t.Fatalf("after SCALE = %s, want 2.02", got)
	}
	if got.Exponent() < -2 {
		t.Fatalf("quantity %s carries more than 2 places", got)
	}
}

func TestAddUsesModifierTypeWhenIngredientUntyped(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := NewRecipeMap()
	e.Apply(m, "whip")
	entries := m.Entries()
	if len(entries) != 1 || entries[0].Type != "TOPPING" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestUnknownModifierIsNoop(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Latte"])
	before := m.Clone()

	out := e.Apply(m, "Extra Sprinkles")
	if out.Applied || out.Reason != OutcomeUnmappedModifier {
		t.Fatalf("outcome = %+v", out)
	}
	if m.Len() != before.Len() || !m.Total().Equal(before.Total()) {
		t.Fatal("unknown modifier changed the map")
	}

	if out := e.Apply(m, "   "); out.Applied || out.Reason != OutcomeEmptyToken {
		t.Fatalf("blank token outcome = %+v", out)
	}
}

func TestMalformedRulesDoNotCrash(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Latte"])

	// a list where a document belongs reads as "no selector": everything is scaled
	e.Apply(m, "Bad Selector")
	if got := qty(t, m, "Espresso"); !got.Equal(dec("6")) {
		t.Fatalf("Espresso = %s, want 6", got)
	}

	before := m.Clone()
	out := e.Apply(m, "Broken Replace")
	if out.Applied || out.Reason != OutcomeMalformedRule {
		t.Fatalf("outcome = %+v", out)
	}
	if !m.Total().Equal(before.Total()) || m.Len() != before.Len() {
		t.Fatal("malformed replace changed the map")
	}
}

func TestReplaceWithUnknownIngredientIsReported(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Latte"])

	out := e.Apply(m, "Unicorn Milk")
	if len(out.Missing) != 1 || out.Missing[0] != "Unicorn Milk" {
		t.Fatalf("missing = %v", out.Missing)
	}
	if has(m, "Whole Milk") {
		t.Fatal("targets are still removed")
	}
}

func TestExpandAppliesChildrenOnce(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Latte"])

	out := e.Apply(m, "Dirty Vanilla Oat")
	if !out.Applied {
		t.Fatalf("outcome = %+v", out)
	}
	want := []string{"Dirty Vanilla Oat", "Extra Shot", "Vanilla", "Oat Milk", "Dirty"}
	if len(out.Resolved) != len(want) {
		t.Fatalf("resolved = %v, want %v", out.Resolved, want)
	}
	if got := qty(t, m, "Espresso"); !got.Equal(dec("3")) {
		t.Fatalf("Espresso = %s, want 3 (one extra shot)", got)
	}
	if got := qty(t, m, "Vanilla Syrup"); !got.Equal(dec("1")) {
		t.Fatalf("Vanilla Syrup = %s", got)
	}
	if has(m, "Whole Milk") || !qty(t, m, "Oat Milk").Equal(dec("8")) {
		t.Fatalf("milk not replaced: %+v", m.Entries())
	}
}

func TestPresetExpandsRecipe(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := NewRecipeMap()

	out := e.Apply(m, "Cherry Dipped Vanilla")
	if !out.Applied || out.Reason != OutcomeExpandPreset {
		t.Fatalf("outcome = %+v", out)
	}
	if got := qty(t, m, "Cold Brew"); !got.Equal(dec("10")) {
		t.Fatalf("Cold Brew = %s", got)
	}
}

func TestBuildSeedsFromRecipe(t *testing.T) {
	f := newFixture(t)
	cat := NewCatalog(f.data)
	m := cat.Build(f.products["Banana Bread"])
	entries := m.Entries()
	if len(entries) != 1 || entries[0].Type != FallbackType || entries[0].Sources[0] != SourceBaseRecipe {
		t.Fatalf("entries = %+v", entries)
	}

	retail := cat.Build(&models.Product{Name: "Tote"})
	if retail.Len() != 0 || !retail.Total().Equal(decimal.Zero) {
		t.Fatal("product without recipe builds an empty map")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Build(nil) should panic")
		}
	}()
	cat.Build(nil)
}

func TestRuleWithoutIngredientIsNotApplied(t *testing.T) {
	f := newFixture(t)
	f.addModifier(&models.RecipeModifier{Name: "Ghost Shot", Behavior: models.BehaviorAdd, BaseQuantity: dec("1")}, "")
	f.addModifier(&models.RecipeModifier{Name: "Nothing Swap", Behavior: models.BehaviorReplace,
		TargetSelector: map[string]any{"by_type": []any{"MILK"}}}, "")
	e := f.engine()

	for _, token := range []string{"Ghost Shot", "Nothing Swap"} {
		t.Run(token, func(t *testing.T) {
			m := e.Catalog().Build(f.products["Latte"])
			before := m.Clone()

			out := e.Apply(m, token)
			if out.Applied || out.Reason != OutcomeMissingIngredient {
				t.Fatalf("outcome = %+v", out)
			}
			if len(out.Missing) != 1 || out.Missing[0] != token {
				t.Fatalf("missing = %v", out.Missing)
			}
			if m.Len() != before.Len() || !m.Total().Equal(before.Total()) || !has(m, "Whole Milk") {
				t.Fatalf("map changed: %+v", m.Entries())
			}
		})
	}
}

func TestReplaceWithoutTargetsInsertsNothing(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Cold Brew"])
	before := m.Clone()

	for _, token := range []string{"Half Oat Half Almond", "Oat Milk"} {
		out := e.Apply(m, token)
		if !out.Applied || out.Reason != OutcomeApplied {
			t.Fatalf("%s outcome = %+v", token, out)
		}
	}
	if has(m, "Oat Milk") || has(m, "Almond Milk") {
		t.Fatalf("zero-quantity entries inserted: %+v", m.Entries())
	}
	if m.Len() != before.Len() || !m.Total().Equal(before.Total()) {
		t.Fatal("replace without targets changed the map")
	}
}

func TestApplyFallsBackToShortestContainingModifier(t *testing.T) {
	f := newFixture(t)
	e := f.engine()

	tests := []struct {
		token    string
		modifier string
	}{
		{"Milk", "Oat Milk"},
		{"ALMOND", "Almond Swap"},
		{"half oat", "Half Oat Half Almond"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			m := e.Catalog().Build(f.products["Latte"])
			out := e.Apply(m, tt.token)
			if !out.Applied || out.Modifier != tt.modifier || out.Token != tt.token {
				t.Fatalf("outcome = %+v", out)
			}
			if has(m, "Whole Milk") {
				t.Fatal("milk not replaced")
			}
		})
	}

	m := e.Catalog().Build(f.products["Latte"])
	if out := e.Apply(m, "Oat Milk Sub"); out.Applied || out.Reason != OutcomeUnmappedModifier {
		t.Fatalf("token longer than any modifier name: %+v", out)
	}

	// an exact name still wins over a longer containing one
	if mod, ok := e.Catalog().ModifierContaining("dirty"); !ok || mod.Name != "Dirty" {
		t.Fatalf("ModifierContaining(dirty) = %v, %v", mod, ok)
	}
}
