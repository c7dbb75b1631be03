package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProductValidate(t *testing.T) {
	milk := primitive.NewObjectID()

	ok := &Product{Name: "Latte", RecipeItems: []RecipeItem{{IngredientID: milk, Quantity: decimal.NewFromInt(8)}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	dup := &Product{Name: "Latte", RecipeItems: []RecipeItem{
		{IngredientID: milk, Quantity: decimal.NewFromInt(8)},
		{IngredientID: milk, Quantity: decimal.NewFromInt(2)},
	}}
	if err := dup.Validate(); err == nil {
		t.Fatal("expected duplicate ingredient error")
	}

	neg := &Product{Name: "Latte", RecipeItems: []RecipeItem{{IngredientID: milk, Quantity: decimal.NewFromInt(-1)}}}
	if err := neg.Validate(); err == nil {
		t.Fatal("expected negative quantity error")
	}

	if err := (&Product{Name: "Tote Bag"}).Validate(); err != nil {
		t.Fatalf("product without recipe should be legal: %v", err)
	}
}

func TestProductCategories(t *testing.T) {
	p := &Product{Name: "Cold Brew", Categories: []string{"Drink", "base_item"}}
	if !p.IsDrink() {
		t.Fatal("expected drink")
	}
	if !p.HasCategory("BASE_ITEM") {
		t.Fatal("category match should ignore case")
	}
	if (&Product{Name: "Muffin", Categories: []string{"bakery"}}).IsDrink() {
		t.Fatal("muffin is not a drink")
	}
}

func TestParseBehaviorAndPlatform(t *testing.T) {
	if b, err := ParseBehavior(" scale "); err != nil || b != BehaviorScale {
		t.Fatalf("ParseBehavior = %v, %v", b, err)
	}
	if b, _ := ParseBehavior(""); b != BehaviorAdd {
		t.Fatalf("empty behavior = %v", b)
	}
	if _, err := ParseBehavior("MULTIPLY"); err == nil {
		t.Fatal("expected error")
	}
	if p, err := ParsePlatform("Square"); err != nil || p != PlatformSquare {
		t.Fatalf("ParsePlatform = %v, %v", p, err)
	}
	if _, err := ParsePlatform("clover"); err == nil {
		t.Fatal("expected error")
	}
}

func TestIngredientReorder(t *testing.T) {
	point := decimal.NewFromInt(10)
	caseSize := decimal.NewFromInt(4)
	ing := &Ingredient{Name: "Oat Milk", CurrentStock: decimal.NewFromInt(10), ReorderPoint: &point, CaseSize: &caseSize}
	if !ing.NeedsReorder() {
		t.Fatal("stock equal to reorder point should need reorder")
	}
	cases, ok := ing.CasesOnHand()
	if !ok || !cases.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("cases = %s, %v", cases, ok)
	}
	if (&Ingredient{CurrentStock: decimal.Zero}).NeedsReorder() {
		t.Fatal("no reorder point means never")
	}
}
