package engine

import (
	"testing"
	"time"

	"github.com/ak/cafeinv/internal/domain/models"
)

func TestInferTempAndSize(t *testing.T) {
	tests := []struct {
		name        string
		product     string
		descriptors []string
		temp, size  string
	}{
		{"defaults", "Banana Bread", nil, TempHot, SizeSmall},
		{"hot drink", "Latte", []string{"small"}, TempHot, SizeSmall},
		{"iced descriptor", "Latte", []string{"Iced", "Medium"}, TempCold, SizeMedium},
		{"iced in name beats latte", "Iced Latte", []string{"large"}, TempCold, SizeLarge},
		{"growler wins over xl", "Cold Brew Growler", []string{"xl"}, TempCold, SizeGrowler},
		{"xl", "Chai Tea", []string{"XL"}, TempHot, SizeXL},
		{"ounce size", "Americano 20oz", nil, TempHot, SizeLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, size := InferTempAndSize(tt.product, tt.descriptors)
			if temp != tt.temp || size != tt.size {
				t.Errorf("InferTempAndSize(%q, %v) = %s/%s, want %s/%s",
					tt.product, tt.descriptors, temp, size, tt.temp, tt.size)
			}
		})
	}
}

func TestCupForAndSizeScale(t *testing.T) {
	if cup, ok := CupFor(TempCold, SizeGrowler); !ok || cup != "64oz Growler" {
		t.Fatalf("cold growler cup = %q", cup)
	}
	if _, ok := CupFor(TempHot, SizeGrowler); ok {
		t.Fatal("hot growler has no cup")
	}
	if f := SizeScale(TempHot, SizeMedium); !f.Equal(dec("1")) {
		t.Fatalf("unlisted size scale = %s, want 1", f)
	}
	if f := SizeScale(TempHot, SizeLarge); !f.Equal(dec("1.67")) {
		t.Fatalf("hot large scale = %s", f)
	}
}

func TestAggregateAddsCupForDrinks(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Latte"])

	usage := e.Aggregate(m, nil, LineContext{IsDrink: true, IncludeCup: true, Temp: TempCold, Size: SizeLarge})
	cup, ok := usage.Get("24oz cup")
	if !ok {
		t.Fatalf("no cup in %+v", usage.Items)
	}
	if !cup.Quantity.Equal(dec("1")) || cup.Sources[0] != SourceAutoCup {
		t.Fatalf("cup = %+v", cup)
	}
	if has(m, "24oz Cup") {
		t.Fatal("Aggregate modified its input map")
	}
}

func TestAggregateCupSuppression(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	ctx := LineContext{IsDrink: true, IncludeCup: true, Temp: TempHot, Size: SizeSmall}

	m := e.Catalog().Build(f.products["Latte"])
	out := e.Apply(m, "Own Mug")
	usage := e.Aggregate(m, out.Modifiers, ctx)
	if _, ok := usage.Get("12oz Cup"); ok {
		t.Fatal("own mug should suppress the automatic cup")
	}

	m = e.Catalog().Build(f.products["Latte"])
	growler, _ := e.Catalog().IngredientByName("64oz Growler")
	m.Add(growler, dec("1"), SourceBaseRecipe)
	usage = e.Aggregate(m, nil, ctx)
	if _, ok := usage.Get("12oz Cup"); ok {
		t.Fatal("a packaging entry should suppress the automatic cup")
	}

	for name, c := range map[string]LineContext{
		"not a drink": {IncludeCup: true, Temp: TempHot, Size: SizeSmall},
		"cups off":    {IsDrink: true, Temp: TempHot, Size: SizeSmall},
	} {
		usage := e.Aggregate(e.Catalog().Build(f.products["Latte"]), nil, c)
		if len(usage.Items) != 2 {
			t.Errorf("%s: items = %+v", name, usage.Items)
		}
	}
}

func TestAggregateReportsMissingCup(t *testing.T) {
	f := newFixture(t)
	data := f.data
	data.Ingredients = []*models.Ingredient{f.ingredients["Cold Brew"]}
	e := New(NewCatalog(data), nil)

	usage := e.Aggregate(NewRecipeMap(), nil, LineContext{IsDrink: true, IncludeCup: true, Temp: TempCold, Size: SizeGrowler})
	if len(usage.Items) != 0 || len(usage.Missing) != 1 || usage.Missing[0] != "64oz Growler" {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestAggregateScalesBySize(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Cold Brew"])

	usage := e.Aggregate(m, nil, LineContext{IsDrink: true, ScaleBySize: true, Temp: TempCold, Size: SizeSmall})
	item, ok := usage.Get("Cold Brew")
	if !ok || !item.Quantity.Equal(dec("16.08")) {
		t.Fatalf("Cold Brew = %+v", item)
	}
	if item.Sources[len(item.Sources)-1] != SourceSizeScale {
		t.Fatalf("sources = %v", item.Sources)
	}
}

func TestAggregateDedupesSources(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := e.Catalog().Build(f.products["Latte"])
	e.Apply(m, "Extra Shot")
	e.Apply(m, "extra shot")

	usage := e.Aggregate(m, nil, LineContext{})
	espresso, _ := usage.Get("Espresso")
	if !espresso.Quantity.Equal(dec("4")) {
		t.Fatalf("Espresso = %s, want 4", espresso.Quantity)
	}
	want := []string{SourceBaseRecipe, SourceAdd + ":Extra Shot"}
	if len(espresso.Sources) != len(want) || espresso.Sources[0] != want[0] || espresso.Sources[1] != want[1] {
		t.Fatalf("sources = %v, want %v", espresso.Sources, want)
	}
}

func TestUsageTotals(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	latte := e.Aggregate(e.Catalog().Build(f.products["Latte"]), nil, LineContext{})
	espressoID := f.ingredients["Espresso"].ID
	milkID := f.ingredients["Whole Milk"].ID

	a := NewUsageTotals()
	a.AddLine(latte, dec("3"), "2024-03-01", "Latte")
	a.AddLine(latte, dec("1"), "2024-03-02", "Latte (iced)")

	if got := a.Total(espressoID); !got.Equal(dec("8")) {
		t.Fatalf("espresso total = %s, want 8", got)
	}
	if got := a.ByDate["2024-03-01"][milkID]; !got.Equal(dec("24")) {
		t.Fatalf("milk on 03-01 = %s, want 24", got)
	}
	if got := a.Breakdown[espressoID]["Latte (iced)"]; !got.Equal(dec("2")) {
		t.Fatalf("breakdown = %s", got)
	}

	b := NewUsageTotals()
	b.AddLine(latte, dec("2"), "2024-03-01", "Latte")
	a.Merge(b)
	if got := a.Total(espressoID); !got.Equal(dec("12")) {
		t.Fatalf("merged espresso = %s, want 12", got)
	}
	if dates := a.Dates(); len(dates) != 2 || dates[0] != "2024-03-01" {
		t.Fatalf("dates = %v", dates)
	}

	summary := a.Summary()
	if len(summary) != 2 || summary[0].Name != "Espresso" || !summary[1].ByDate["2024-03-01"].Equal(dec("40")) {
		t.Fatalf("summary = %+v", summary)
	}

	a.Reset()
	if len(a.ByIngredient) != 0 || len(a.Dates()) != 0 {
		t.Fatal("Reset left data behind")
	}
}

func TestUsageTotalsSkipsZero(t *testing.T) {
	f := newFixture(t)
	e := f.engine()
	m := NewRecipeMap()
	espresso, _ := e.Catalog().IngredientByName("Espresso")
	m.Add(espresso, dec("0"), SourceBaseRecipe)

	totals := NewUsageTotals()
	totals.AddLine(e.Aggregate(m, nil, LineContext{}), dec("5"), "2024-03-01", "x")
	if len(totals.Names) != 0 {
		t.Fatalf("zero usage recorded: %+v", totals.ByIngredient)
	}
}

func TestBusinessDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	ts := time.Date(2024, 3, 2, 3, 30, 0, 0, time.UTC)
	if got := BusinessDate(ts, ny); got != "2024-03-01" {
		t.Fatalf("BusinessDate = %s, want 2024-03-01", got)
	}
	if got := BusinessDate(ts, nil); got != "2024-03-02" {
		t.Fatalf("BusinessDate(nil loc) = %s", got)
	}
}
