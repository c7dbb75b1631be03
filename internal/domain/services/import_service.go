package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ak/cafeinv/internal/domain/engine"
	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// LineItem is one sales line as a platform adapter reads it
type LineItem struct {
	OrderID    string            `json:"order_id"`
	OrderDate  time.Time         `json:"order_date"`
	ItemName   string            `json:"item_name" binding:"required"`
	PricePoint string            `json:"price_point,omitempty"`
	Modifiers  []string          `json:"modifiers,omitempty"`
	Quantity   int               `json:"quantity"`
	GrossSales decimal.Decimal   `json:"gross_sales"`
	UnitPrice  decimal.Decimal   `json:"unit_price"`
	SKU        string            `json:"sku,omitempty"`
	RawRow     map[string]string `json:"raw_row,omitempty"`
}

// LineSource streams sales lines. Next returns io.EOF when done and a
// *RowError for a line it could not parse; any other error aborts the run.
type LineSource interface {
	Next(ctx context.Context) (LineItem, error)
}

// RowError marks a single unreadable input row
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// SliceSource serves lines from memory
type SliceSource struct {
	lines []LineItem
	pos   int
}

func NewSliceSource(lines []LineItem) *SliceSource {
	return &SliceSource{lines: lines}
}

func (s *SliceSource) Next(ctx context.Context) (LineItem, error) {
	if err := ctx.Err(); err != nil {
		return LineItem{}, err
	}
	if s.pos >= len(s.lines) {
		return LineItem{}, io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

type ImportRequest struct {
	Platform models.Platform
	Source   LineSource
	DryRun   bool
}

type PurgeRequest struct {
	Platform        models.Platform `json:"platform"`
	IncludeUnmapped bool            `json:"include_unmapped"`
}

type PurgeResult struct {
	Orders    int64 `json:"orders"`
	UsageLogs int64 `json:"usage_logs"`
	Unmapped  int64 `json:"unmapped"`
	Imports   int64 `json:"imports"`
}

// LineResult is how one line resolved
type LineResult struct {
	Row         int                 `json:"row"`
	OrderID     string              `json:"order_id,omitempty"`
	ItemName    string              `json:"item_name"`
	PricePoint  string              `json:"price_point,omitempty"`
	Quantity    int                 `json:"quantity"`
	ProductID   *primitive.ObjectID `json:"product_id,omitempty"`
	Product     string              `json:"product,omitempty"`
	MatchReason engine.MatchReason  `json:"match_reason"`
	Modifiers   []engine.Outcome    `json:"modifiers,omitempty"`
	Usage       engine.LineUsage    `json:"usage"`
	Date        string              `json:"date"`
}

type ImportCounters struct {
	Rows              int `json:"rows"`
	Matched           int `json:"matched"`
	Unmapped          int `json:"unmapped"`
	ModifiersApplied  int `json:"modifiers_applied"`
	ModifiersUnmapped int `json:"modifiers_unmapped"`
	Skipped           int `json:"skipped"`
	Errors            int `json:"errors"`
}

type ImportReport struct {
	RunID      string                `json:"run_id"`
	Platform   models.Platform       `json:"platform"`
	DryRun     bool                  `json:"dry_run"`
	Counters   ImportCounters        `json:"counters"`
	Lines      []LineResult          `json:"lines"`
	Totals     []engine.UsageSummary `json:"totals"`
	Errors     []string              `json:"errors,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// ImportOptions control usage aggregation
type ImportOptions struct {
	Location    *time.Location
	IncludeCup  bool
	ScaleBySize bool
	MaxErrors   int
}

// ImportService turns sales lines into ingredient usage
type ImportService interface {
	Run(ctx context.Context, req ImportRequest) (*ImportReport, error)
	ResolveLine(ctx context.Context, line LineItem) (*LineResult, error)
	Purge(ctx context.Context, req PurgeRequest) (*PurgeResult, error)
}

type importService struct {
	repos *repositories.Provider
	opts  ImportOptions
	log   *logger.Logger
}

// NewImportService creates a new import service
func NewImportService(repos *repositories.Provider, opts ImportOptions, log *logger.Logger) ImportService {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &importService{
		repos: repos,
		opts:  opts,
		log:   log.WithComponent("import"),
	}
}

// pendingUnmapped collects repeat sightings within a run so each key is
// written once with its total count
type pendingUnmapped struct {
	item *models.UnmappedItem
	seen int
}

type run struct {
	platform models.Platform
	engine   *engine.Engine
	totals   *engine.UsageTotals
	report   *ImportReport
	orders   []*models.Order
	byOrder  map[string]*models.Order
	unmapped map[string]*pendingUnmapped
	keys     []string
	log      *logger.Logger
}

func (s *importService) Run(ctx context.Context, req ImportRequest) (*ImportReport, error) {
	if !req.Platform.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlatform, req.Platform)
	}
	if req.Source == nil {
		return nil, ErrNoSource
	}

	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := s.log.WithRun(runID).WithPlatform(string(req.Platform))
	r := &run{
		platform: req.Platform,
		engine:   engine.New(cat, log),
		totals:   engine.NewUsageTotals(),
		report: &ImportReport{
			RunID:     runID,
			Platform:  req.Platform,
			DryRun:    req.DryRun,
			Lines:     []LineResult{},
			StartedAt: time.Now(),
		},
		byOrder:  make(map[string]*models.Order),
		unmapped: make(map[string]*pendingUnmapped),
		log:      log,
	}
	log.Info("Import started", zap.Bool("dry_run", req.DryRun))

	row := 0
	for {
		line, err := req.Source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				return nil, fmt.Errorf("failed to read %s lines: %w", req.Platform, err)
			}
			r.report.Counters.Errors++
			if s.opts.MaxErrors <= 0 || len(r.report.Errors) < s.opts.MaxErrors {
				r.report.Errors = append(r.report.Errors, rowErr.Error())
			}
			log.Warn("Skipping unreadable row", zap.Int("row", rowErr.Row), zap.Error(rowErr.Err))
			continue
		}
		row++
		s.processLine(r, row, line)
	}

	r.report.Totals = r.totals.Summary()
	r.report.FinishedAt = time.Now()

	if !req.DryRun {
		if err := s.commit(ctx, r); err != nil {
			log.Error("Import commit failed", zap.Error(err))
			return nil, fmt.Errorf("failed to commit import: %w", err)
		}
	}

	c := r.report.Counters
	log.Info("Import finished",
		zap.Int("rows", c.Rows),
		zap.Int("matched", c.Matched),
		zap.Int("unmapped", c.Unmapped),
		zap.Int("modifiers_applied", c.ModifiersApplied),
		zap.Int("modifiers_unmapped", c.ModifiersUnmapped),
		zap.Int("skipped", c.Skipped),
		zap.Int("errors", c.Errors))
	return r.report, nil
}

func (s *importService) processLine(r *run, row int, line LineItem) {
	r.report.Counters.Rows++
	if line.Quantity <= 0 {
		r.report.Counters.Skipped++
		r.log.Debug("Skipping line without quantity", zap.Int("row", row), zap.String("item", line.ItemName))
		return
	}

	res, product := s.resolve(r.engine, line)
	res.Row = row
	if line.OrderDate.IsZero() {
		res.Date = engine.BusinessDate(r.report.StartedAt, s.opts.Location)
	}
	r.report.Lines = append(r.report.Lines, res)

	if product != nil {
		r.report.Counters.Matched++
	} else {
		r.report.Counters.Unmapped++
		r.recordUnmapped(&models.UnmappedItem{
			Source:               r.platform,
			ItemType:             models.UnmappedProduct,
			ItemName:             line.ItemName,
			PricePointName:       line.PricePoint,
			NormalizedItem:       engine.NormalizeName(line.ItemName),
			NormalizedPricePoint: engine.NormalizeName(line.PricePoint),
			LastModifiers:        line.Modifiers,
			LastReason:           string(res.MatchReason),
			LastRawRow:           line.RawRow,
		})
	}

	for _, out := range res.Modifiers {
		switch {
		case out.Applied:
			r.report.Counters.ModifiersApplied++
		case out.Reason == engine.OutcomeUnmappedModifier:
			r.report.Counters.ModifiersUnmapped++
			r.recordUnmapped(&models.UnmappedItem{
				Source:         r.platform,
				ItemType:       models.UnmappedModifier,
				ItemName:       strings.TrimSpace(out.Token),
				NormalizedItem: engine.NormalizeName(out.Token),
				LastReason:     out.Reason,
				LastRawRow:     line.RawRow,
			})
		}
	}

	r.totals.AddLine(res.Usage, decimal.NewFromInt(int64(line.Quantity)), res.Date, lineLabel(res))
	r.addOrderItem(row, line, res)
}

// resolve runs one line through match, build, modifiers and aggregation
func (s *importService) resolve(e *engine.Engine, line LineItem) (LineResult, *models.Product) {
	cat := e.Catalog()
	res := LineResult{
		OrderID:    line.OrderID,
		ItemName:   line.ItemName,
		PricePoint: line.PricePoint,
		Quantity:   line.Quantity,
		Date:       engine.BusinessDate(line.OrderDate, s.opts.Location),
	}

	product, reason := cat.MatchSKU(line.SKU)
	if product == nil {
		product, reason = cat.Match(line.ItemName, line.PricePoint, line.Modifiers)
	}
	res.MatchReason = reason

	m := engine.NewRecipeMap()
	name := line.ItemName
	if product != nil {
		id := product.ID
		res.ProductID = &id
		res.Product = product.Name
		name = product.Name
		m = cat.Build(product)
	}

	var mods []*models.RecipeModifier
	for _, token := range line.Modifiers {
		if strings.TrimSpace(token) == "" {
			continue
		}
		out := e.Apply(m, token)
		mods = append(mods, out.Modifiers...)
		res.Modifiers = append(res.Modifiers, out)
	}

	item := engine.Normalize(line.ItemName)
	descriptors := append(append([]string{}, item.Descriptors...), strings.Fields(engine.NormalizeName(line.PricePoint))...)
	temp, size := engine.InferTempAndSize(name, descriptors)
	res.Usage = e.Aggregate(m, mods, engine.LineContext{
		IsDrink:     product != nil && product.IsDrink(),
		IncludeCup:  s.opts.IncludeCup,
		ScaleBySize: s.opts.ScaleBySize,
		Temp:        temp,
		Size:        size,
	})
	return res, product
}

// lineLabel names a line in the per-ingredient breakdown
func lineLabel(res LineResult) string {
	label := res.Product
	if label == "" {
		label = strings.TrimSpace(res.ItemName)
	}
	if pp := strings.TrimSpace(res.PricePoint); pp != "" && !strings.EqualFold(pp, "regular") {
		label += " (" + pp + ")"
	}
	return label
}

func (r *run) recordUnmapped(item *models.UnmappedItem) {
	key := item.Key()
	if p, ok := r.unmapped[key]; ok {
		p.seen++
		p.item = item
		return
	}
	r.unmapped[key] = &pendingUnmapped{item: item, seen: 1}
	r.keys = append(r.keys, key)
}

func (r *run) addOrderItem(row int, line LineItem, res LineResult) {
	orderID := strings.TrimSpace(line.OrderID)
	if orderID == "" {
		orderID = fmt.Sprintf("%s-%d", r.report.RunID, row)
	}
	order, ok := r.byOrder[orderID]
	if !ok {
		order = &models.Order{
			OrderID:     orderID,
			Platform:    r.platform,
			OrderDate:   line.OrderDate,
			TotalAmount: decimal.Zero,
		}
		r.byOrder[orderID] = order
		r.orders = append(r.orders, order)
	}
	order.TotalAmount = order.TotalAmount.Add(line.GrossSales)
	order.Items = append(order.Items, models.OrderItem{
		ProductID:   res.ProductID,
		ProductName: res.Product,
		ItemName:    line.ItemName,
		PricePoint:  line.PricePoint,
		SKU:         line.SKU,
		Modifiers:   line.Modifiers,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		MatchReason: string(res.MatchReason),
	})
}

// commit persists everything a run produced in one transaction
func (s *importService) commit(ctx context.Context, r *run) error {
	return s.repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		for _, order := range r.orders {
			if err := s.repos.Order.Upsert(ctx, order); err != nil {
				return fmt.Errorf("failed to save order %s: %w", order.OrderID, err)
			}
		}

		for _, date := range r.totals.Dates() {
			day := r.totals.ByDate[date]
			for _, id := range sortedIDs(day) {
				if err := s.repos.UsageLog.Increment(ctx, id, r.totals.Names[id], date, r.platform, day[id]); err != nil {
					return fmt.Errorf("failed to update usage log: %w", err)
				}
			}
		}

		for _, id := range sortedIDs(r.totals.ByIngredient) {
			if err := s.repos.Ingredient.AdjustStock(ctx, id, r.totals.ByIngredient[id].Neg()); err != nil {
				return fmt.Errorf("failed to adjust stock: %w", err)
			}
		}

		for _, key := range r.keys {
			p := r.unmapped[key]
			if err := s.repos.Unmapped.Record(ctx, p.item, p.seen); err != nil {
				return fmt.Errorf("failed to record unmapped item: %w", err)
			}
		}

		c := r.report.Counters
		return s.repos.ImportLog.Create(ctx, &models.ImportLog{
			RunID:             r.report.RunID,
			Source:            r.platform,
			Rows:              c.Rows,
			Matched:           c.Matched,
			Unmapped:          c.Unmapped,
			ModifiersApplied:  c.ModifiersApplied,
			ModifiersUnmapped: c.ModifiersUnmapped,
			Skipped:           c.Skipped,
			Errors:            c.Errors,
			StartedAt:         r.report.StartedAt,
			FinishedAt:        r.report.FinishedAt,
		})
	})
}

func sortedIDs(m map[primitive.ObjectID]decimal.Decimal) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids
}

func (s *importService) ResolveLine(ctx context.Context, line LineItem) (*LineResult, error) {
	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if line.Quantity <= 0 {
		line.Quantity = 1
	}
	res, _ := s.resolve(engine.New(cat, s.log), line)
	res.Row = 1
	if line.OrderDate.IsZero() {
		res.Date = engine.BusinessDate(time.Now(), s.opts.Location)
	}
	return &res, nil
}

// Purge removes everything imported from a platform and gives the
// recorded usage back to stock, so a rerun starts clean.
func (s *importService) Purge(ctx context.Context, req PurgeRequest) (*PurgeResult, error) {
	if !req.Platform.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlatform, req.Platform)
	}

	result := &PurgeResult{}
	err := s.repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		*result = PurgeResult{}
		logs, err := s.repos.UsageLog.List(ctx, repositories.UsageLogFilter{Source: req.Platform})
		if err != nil {
			return fmt.Errorf("failed to list usage logs: %w", err)
		}
		restore := make(map[primitive.ObjectID]decimal.Decimal)
		for _, l := range logs {
			restore[l.IngredientID] = restore[l.IngredientID].Add(l.QuantityUsed)
		}
		for _, id := range sortedIDs(restore) {
			if err := s.repos.Ingredient.AdjustStock(ctx, id, restore[id]); err != nil {
				return fmt.Errorf("failed to restore stock: %w", err)
			}
		}

		if result.UsageLogs, err = s.repos.UsageLog.DeleteBySource(ctx, req.Platform); err != nil {
			return fmt.Errorf("failed to delete usage logs: %w", err)
		}
		if result.Orders, err = s.repos.Order.DeleteByPlatform(ctx, req.Platform); err != nil {
			return fmt.Errorf("failed to delete orders: %w", err)
		}
		if result.Imports, err = s.repos.ImportLog.DeleteBySource(ctx, req.Platform); err != nil {
			return fmt.Errorf("failed to delete import logs: %w", err)
		}
		if req.IncludeUnmapped {
			if result.Unmapped, err = s.repos.Unmapped.DeleteBySource(ctx, req.Platform); err != nil {
				return fmt.Errorf("failed to delete unmapped items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Purged imported data",
		zap.String("platform", string(req.Platform)),
		zap.Int64("orders", result.Orders),
		zap.Int64("usage_logs", result.UsageLogs),
		zap.Int64("unmapped", result.Unmapped))
	return result, nil
}

// loadCatalog snapshots the reference data for one run
func (s *importService) loadCatalog(ctx context.Context) (*engine.Catalog, error) {
	types, err := s.repos.IngredientType.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredient types: %w", err)
	}
	ingredients, err := s.repos.Ingredient.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	products, err := s.repos.Product.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	modifiers, err := s.repos.Modifier.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load modifiers: %w", err)
	}
	return engine.NewCatalog(engine.CatalogData{
		Types:       types,
		Ingredients: ingredients,
		Products:    products,
		Modifiers:   modifiers,
	}), nil
}
