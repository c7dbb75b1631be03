package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ak/cafeinv/internal/domain/engine"
	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/infrastructure/repositories/memory"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testCatalog() *SeedCatalog {
	return &SeedCatalog{
		Types: []SeedType{{Name: "MILK"}, {Name: "COFFEE"}, {Name: "PACKAGING"}},
		Ingredients: []SeedIngredient{
			{Name: "Whole Milk", Type: "MILK", CurrentStock: dec("1000")},
			{Name: "Oat Milk", Type: "MILK", CurrentStock: dec("500"), ReorderPoint: decPtr("490"), CaseSize: decPtr("64")},
			{Name: "Espresso", Type: "COFFEE", CurrentStock: dec("100")},
			{Name: "12oz Cup", Type: "PACKAGING", CurrentStock: dec("50")},
			{Name: "16oz Cup", Type: "PACKAGING", CurrentStock: dec("50")},
			{Name: "24oz Cup", Type: "PACKAGING", CurrentStock: dec("50")},
		},
		Modifiers: []SeedModifier{
			{
				Name: "Oat Milk", Behavior: "replace", Ingredient: "Oat Milk",
				TargetSelector: map[string]any{"by_type": []any{"MILK"}},
				Replaces:       map[string]any{"to": []any{[]any{"Oat Milk", 1}}},
			},
			{Name: "Extra Shot", Behavior: "ADD", Ingredient: "Espresso", BaseQuantity: dec("1")},
			{Name: "Make It Dirty", Behavior: "EXPAND", ExpandsTo: []string{"Extra Shot"}},
		},
		Products: []SeedProduct{{
			Name: "Latte", SKU: "LAT-1", Categories: []string{"drink"},
			Recipe: []SeedRecipeItem{
				{Ingredient: "Espresso", Quantity: dec("2")},
				{Ingredient: "Whole Milk", Quantity: dec("8")},
			},
			Modifiers: []string{"Oat Milk", "Extra Shot"},
		}},
	}
}

var saleDay = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func testLines() []LineItem {
	return []LineItem{
		{OrderID: "A", OrderDate: saleDay, ItemName: "Latte", PricePoint: "Small", Modifiers: []string{"Oat Milk"}, Quantity: 2, GrossSales: dec("9.00")},
		{OrderID: "A", OrderDate: saleDay, ItemName: "Pumpkin Scone", Quantity: 1, GrossSales: dec("3.50")},
		{OrderID: "B", OrderDate: saleDay, ItemName: "Latte", Modifiers: []string{"Extra Shot", "Sprinkles"}, Quantity: 1, GrossSales: dec("5.25")},
		{OrderID: "B", OrderDate: saleDay, ItemName: "Pumpkin Scone", Quantity: 1, GrossSales: dec("3.50")},
	}
}

type harness struct {
	store     *memory.Store
	repos     *repositories.Provider
	imports   ImportService
	inventory InventoryService
	unmapped  UnmappedService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	repos := memory.NewProvider(store)
	h := &harness{
		store:     store,
		repos:     repos,
		imports:   NewImportService(repos, ImportOptions{Location: time.UTC, IncludeCup: true, MaxErrors: 5}, nil),
		inventory: NewInventoryService(repos, nil),
		unmapped:  NewUnmappedService(repos),
	}
	if _, err := h.inventory.Seed(context.Background(), testCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return h
}

func (h *harness) run(t *testing.T, dryRun bool) *ImportReport {
	t.Helper()
	report, err := h.imports.Run(context.Background(), ImportRequest{
		Platform: models.PlatformSquare,
		Source:   NewSliceSource(testLines()),
		DryRun:   dryRun,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return report
}

// usage returns the logged usage of one ingredient on saleDay
func (h *harness) usage(t *testing.T, name string) decimal.Decimal {
	t.Helper()
	logs, err := h.repos.UsageLog.List(context.Background(), repositories.UsageLogFilter{Date: "2024-03-01", Source: models.PlatformSquare})
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range logs {
		if l.IngredientName == name {
			return l.QuantityUsed
		}
	}
	return decimal.Zero
}

func (h *harness) stock(t *testing.T, name string) decimal.Decimal {
	t.Helper()
	ing, err := h.repos.Ingredient.GetByName(context.Background(), name)
	if err != nil || ing == nil {
		t.Fatalf("ingredient %s: %v", name, err)
	}
	return ing.CurrentStock
}

func TestImportRunCountersAndTotals(t *testing.T) {
	h := newHarness(t)
	report := h.run(t, false)

	want := ImportCounters{Rows: 4, Matched: 2, Unmapped: 2, ModifiersApplied: 2, ModifiersUnmapped: 1}
	if report.Counters != want {
		t.Fatalf("counters = %+v, want %+v", report.Counters, want)
	}

	for name, qty := range map[string]string{"Espresso": "7", "Oat Milk": "16", "Whole Milk": "8", "12oz Cup": "3"} {
		if got := h.usage(t, name); !got.Equal(dec(qty)) {
			t.Errorf("%s usage = %s, want %s", name, got, qty)
		}
	}
	if got := h.stock(t, "Espresso"); !got.Equal(dec("93")) {
		t.Errorf("Espresso stock = %s, want 93", got)
	}

	orders := h.store.Orders(models.PlatformSquare)
	if len(orders) != 2 || len(orders[0].Items) != 2 || !orders[0].TotalAmount.Equal(dec("12.50")) {
		t.Fatalf("orders = %+v", orders)
	}
	if orders[0].Items[1].MatchReason != string(engine.ReasonUnmapped) || orders[0].Items[0].ProductID == nil {
		t.Fatalf("order items = %+v", orders[0].Items)
	}

	logs := h.store.ImportLogs()
	if len(logs) != 1 || logs[0].RunID != report.RunID || logs[0].Rows != 4 {
		t.Fatalf("import logs = %+v", logs)
	}
}

func TestImportSkipsModifierWithoutIngredient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.inventory.Seed(ctx, &SeedCatalog{
		Modifiers: []SeedModifier{{Name: "Ghost Shot", Behavior: "ADD", BaseQuantity: dec("1")}},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	report, err := h.imports.Run(ctx, ImportRequest{
		Platform: models.PlatformSquare,
		Source: NewSliceSource([]LineItem{
			{OrderID: "C", OrderDate: saleDay, ItemName: "Latte", Modifiers: []string{"Ghost Shot", "Extra Shot"}, Quantity: 1, GrossSales: dec("5.00")},
		}),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := ImportCounters{Rows: 1, Matched: 1, ModifiersApplied: 1}
	if report.Counters != want {
		t.Fatalf("counters = %+v, want %+v", report.Counters, want)
	}
	if got := h.usage(t, "Espresso"); !got.Equal(dec("3")) {
		t.Fatalf("Espresso usage = %s, want 3", got)
	}
}

func TestImportRerunDoublesAndPurgeResets(t *testing.T) {
	h := newHarness(t)
	h.run(t, false)
	h.run(t, false)

	if got := h.usage(t, "Espresso"); !got.Equal(dec("14")) {
		t.Fatalf("Espresso after rerun = %s, want 14", got)
	}
	if got := len(h.store.Orders(models.PlatformSquare)); got != 2 {
		t.Fatalf("orders after rerun = %d, want 2 (upserted)", got)
	}

	res, err := h.imports.Purge(context.Background(), PurgeRequest{Platform: models.PlatformSquare})
	if err != nil {
		t.Fatal(err)
	}
	if res.Orders != 2 || res.Imports != 2 || res.Unmapped != 0 {
		t.Fatalf("purge = %+v", res)
	}
	if got := h.stock(t, "Espresso"); !got.Equal(dec("100")) {
		t.Fatalf("stock after purge = %s, want 100", got)
	}

	h.run(t, false)
	if got := h.usage(t, "Espresso"); !got.Equal(dec("7")) {
		t.Fatalf("Espresso after purge+rerun = %s, want 7", got)
	}
	if got := h.stock(t, "Espresso"); !got.Equal(dec("93")) {
		t.Fatalf("stock after purge+rerun = %s, want 93", got)
	}
}

func TestImportUnmappedSeenCount(t *testing.T) {
	h := newHarness(t)
	h.run(t, false)

	items, _, err := h.unmapped.List(context.Background(), repositories.UnmappedFilter{ItemType: models.UnmappedProduct})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].SeenCount != 2 || items[0].NormalizedItem != "pumpkin scone" {
		t.Fatalf("unmapped products = %+v", items)
	}

	mods, _, _ := h.unmapped.List(context.Background(), repositories.UnmappedFilter{ItemType: models.UnmappedModifier})
	if len(mods) != 1 || mods[0].ItemName != "Sprinkles" || mods[0].SeenCount != 1 {
		t.Fatalf("unmapped modifiers = %+v", mods)
	}

	h.run(t, false)
	items, _, _ = h.unmapped.List(context.Background(), repositories.UnmappedFilter{ItemType: models.UnmappedProduct})
	if items[0].SeenCount != 4 {
		t.Fatalf("seen_count after rerun = %d, want 4", items[0].SeenCount)
	}
}

func TestImportDryRunWritesNothing(t *testing.T) {
	h := newHarness(t)
	report := h.run(t, true)

	if !report.DryRun || len(report.Totals) == 0 {
		t.Fatalf("report = %+v", report)
	}
	if got := h.usage(t, "Espresso"); !got.IsZero() {
		t.Fatalf("dry run logged usage %s", got)
	}
	if len(h.store.Orders(models.PlatformSquare)) != 0 || len(h.store.ImportLogs()) != 0 {
		t.Fatal("dry run saved orders or logs")
	}
	if got := h.stock(t, "Espresso"); !got.Equal(dec("100")) {
		t.Fatalf("dry run changed stock to %s", got)
	}
}

type step struct {
	line LineItem
	err  error
}

type scriptedSource struct {
	steps []step
	pos   int
}

func (s *scriptedSource) Next(context.Context) (LineItem, error) {
	if s.pos >= len(s.steps) {
		return LineItem{}, io.EOF
	}
	st := s.steps[s.pos]
	s.pos++
	return st.line, st.err
}

func TestImportRowErrorsContinue(t *testing.T) {
	h := newHarness(t)
	latte := testLines()[0]
	src := &scriptedSource{steps: []step{
		{err: &RowError{Row: 1, Err: errors.New("bad qty")}},
		{line: latte},
		{line: LineItem{ItemName: "Latte", Quantity: 0}},
	}}

	report, err := h.imports.Run(context.Background(), ImportRequest{Platform: models.PlatformSquare, Source: src, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	c := report.Counters
	if c.Errors != 1 || c.Rows != 2 || c.Skipped != 1 || c.Matched != 1 || len(report.Errors) != 1 {
		t.Fatalf("counters = %+v errors = %v", c, report.Errors)
	}

	broken := &scriptedSource{steps: []step{{err: errors.New("disk gone")}}}
	if _, err := h.imports.Run(context.Background(), ImportRequest{Platform: models.PlatformSquare, Source: broken}); err == nil {
		t.Fatal("a non-row error should abort the run")
	}
}

func TestImportRejectsBadRequests(t *testing.T) {
	h := newHarness(t)
	if _, err := h.imports.Run(context.Background(), ImportRequest{Platform: "toast", Source: NewSliceSource(nil)}); !errors.Is(err, ErrInvalidPlatform) {
		t.Fatalf("err = %v", err)
	}
	if _, err := h.imports.Run(context.Background(), ImportRequest{Platform: models.PlatformShopify}); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v", err)
	}
}

func TestResolveLinePreview(t *testing.T) {
	h := newHarness(t)
	res, err := h.imports.ResolveLine(context.Background(), LineItem{
		ItemName:   "Iced Latte",
		PricePoint: "Large",
		Modifiers:  []string{"make it dirty"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Product != "Latte" || res.MatchReason != engine.ReasonPartial || res.Quantity != 1 {
		t.Fatalf("result = %+v", res)
	}
	if cup, ok := res.Usage.Get("24oz Cup"); !ok || !cup.Quantity.Equal(dec("1")) {
		t.Fatalf("usage = %+v", res.Usage.Items)
	}
	if espresso, _ := res.Usage.Get("Espresso"); !espresso.Quantity.Equal(dec("3")) {
		t.Fatalf("Espresso = %s, want 3", espresso.Quantity)
	}
	if got := h.usage(t, "Espresso"); !got.IsZero() {
		t.Fatal("preview wrote usage")
	}
}

func TestUnmappedResolveAndIgnore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.run(t, false)

	items, _, _ := h.unmapped.List(ctx, repositories.UnmappedFilter{ItemType: models.UnmappedProduct})
	scone := items[0]
	latte, _ := h.repos.Product.GetByName(ctx, "Latte")
	milk, _ := h.repos.Ingredient.GetByName(ctx, "Whole Milk")

	if _, err := h.unmapped.Resolve(ctx, scone.ID, ResolveUnmappedRequest{TargetID: milk.ID}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("resolving a product to an ingredient: err = %v", err)
	}
	got, err := h.unmapped.Resolve(ctx, scone.ID, ResolveUnmappedRequest{TargetID: latte.ID, Note: "seasonal"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Resolved || got.ResolvedTo == nil || *got.ResolvedTo != latte.ID || got.ResolvedAt == nil || got.Note != "seasonal" {
		t.Fatalf("resolved = %+v", got)
	}
	if _, err := h.unmapped.Resolve(ctx, scone.ID, ResolveUnmappedRequest{TargetID: latte.ID}); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("err = %v", err)
	}

	mods, _, _ := h.unmapped.List(ctx, repositories.UnmappedFilter{ItemType: models.UnmappedModifier})
	if _, err := h.unmapped.Ignore(ctx, mods[0].ID, "not an ingredient"); err != nil {
		t.Fatal(err)
	}
	if _, total, _ := h.unmapped.List(ctx, repositories.UnmappedFilter{}); total != 0 {
		t.Fatalf("open items = %d, want 0", total)
	}

	if _, err := h.unmapped.Ignore(ctx, latte.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestInventoryLowStockAndSeedIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	low, err := h.inventory.LowStock(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) != 0 {
		t.Fatalf("low stock before import = %+v", low)
	}

	h.run(t, false)
	low, _ = h.inventory.LowStock(ctx)
	if len(low) != 1 || low[0].Name != "Oat Milk" || !low[0].CurrentStock.Equal(dec("484")) {
		t.Fatalf("low stock = %+v", low)
	}
	if low[0].CasesOnHand == nil || !low[0].CasesOnHand.Equal(dec("7.56")) {
		t.Fatalf("cases on hand = %v", low[0].CasesOnHand)
	}

	res, err := h.inventory.Seed(ctx, testCatalog())
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 0 || res.Updated != 10 {
		t.Fatalf("reseed = %+v, want 0 created / 10 updated", res)
	}

	dirty, _ := h.repos.Modifier.GetByName(ctx, "make it dirty")
	if dirty == nil || len(dirty.ExpandsTo) != 1 {
		t.Fatalf("expands_to not linked: %+v", dirty)
	}
}

func TestSeedRejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	inv := NewInventoryService(memory.NewProvider(store), nil)

	bad := testCatalog()
	bad.Products[0].Recipe = append(bad.Products[0].Recipe, SeedRecipeItem{Ingredient: "Unobtainium", Quantity: dec("1")})
	if _, err := inv.Seed(ctx, bad); err == nil {
		t.Fatal("expected unknown ingredient error")
	}
	if types, _ := memory.NewProvider(store).IngredientType.List(ctx); len(types) != 0 {
		t.Fatalf("failed seed left %d types behind", len(types))
	}
}

func TestUsageLogsRejectsUnknownSource(t *testing.T) {
	h := newHarness(t)
	if _, err := h.inventory.UsageLogs(context.Background(), repositories.UsageLogFilter{Source: "toast"}); !errors.Is(err, ErrInvalidPlatform) {
		t.Fatalf("err = %v", err)
	}
}
