package seed

import (
	"strings"
	"testing"

	"github.com/ak/cafeinv/internal/domain/engine"
	"github.com/shopspring/decimal"
)

const catalogYAML = `
ingredient_types:
  - name: MILK
    unit_type: fluid_oz
ingredients:
  - name: Whole Milk
    type: MILK
    current_stock: 1000
    reorder_point: "120.5"
  - name: Oat Milk
    type: MILK
products:
  - name: Latte
    sku: LAT-1
    categories: [drink]
    recipe:
      - ingredient: Whole Milk
        quantity: 8
modifiers:
  - name: Oat Milk
    behavior: REPLACE
    ingredient: Oat Milk
    target_selector:
      by_type: [MILK]
    replaces:
      to:
        - [Oat Milk, 0.75]
        - [Whole Milk, 0.25]
`

func TestLoad(t *testing.T) {
	catalog, err := Load(strings.NewReader(catalogYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(catalog.Types) != 1 || len(catalog.Ingredients) != 2 || len(catalog.Products) != 1 || len(catalog.Modifiers) != 1 {
		t.Fatalf("catalog = %+v", catalog)
	}

	milk := catalog.Ingredients[0]
	if !milk.CurrentStock.Equal(decimal.NewFromInt(1000)) || milk.ReorderPoint == nil || !milk.ReorderPoint.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("whole milk = %+v", milk)
	}
	if !catalog.Products[0].Recipe[0].Quantity.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("recipe = %+v", catalog.Products[0].Recipe)
	}

	mod := catalog.Modifiers[0]
	sel := engine.ParseSelector(mod.TargetSelector)
	if len(sel.ByType) != 1 || sel.ByType[0] != "milk" {
		t.Fatalf("selector = %+v", sel)
	}
	plan := engine.ParseReplacementPlan(mod.Replaces)
	if plan.Status != engine.PlanValid || len(plan.Targets) != 2 || !plan.Targets[0].Proportion.Equal(decimal.RequireFromString("0.75")) {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("ingredients:\n  - name: Milk\n    stock: 3\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestLoadEmpty(t *testing.T) {
	catalog, err := Load(strings.NewReader(""))
	if err != nil || catalog == nil || len(catalog.Products) != 0 {
		t.Fatalf("Load(empty) = %+v, %v", catalog, err)
	}
}
