package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type orderRepository struct{ s *Store }

func (r *orderRepository) Upsert(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	order.SyncedAt = now
	for id, existing := range r.s.orders {
		if existing.OrderID == order.OrderID && existing.Platform == order.Platform {
			order.ID = id
			order.CreatedAt = existing.CreatedAt
			r.s.orders[id] = *order
			return nil
		}
	}
	order.ID = primitive.NewObjectID()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	r.s.orders[order.ID] = *order
	return nil
}

func (r *orderRepository) GetByOrderID(_ context.Context, platform models.Platform, orderID string) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.orders {
		if o.OrderID == orderID && o.Platform == platform {
			return &o, nil
		}
	}
	return nil, nil
}

func (r *orderRepository) DeleteByPlatform(_ context.Context, platform models.Platform) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, o := range r.s.orders {
		if o.Platform == platform {
			delete(r.s.orders, id)
			n++
		}
	}
	return n, nil
}

type usageLogRepository struct{ s *Store }

func (r *usageLogRepository) Increment(_ context.Context, ingredientID primitive.ObjectID, name, date string, source models.Platform, qty decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, l := range r.s.usage {
		if l.IngredientID == ingredientID && l.Date == date && l.Source == source {
			l.QuantityUsed = l.QuantityUsed.Add(qty)
			l.IngredientName = name
			l.UpdatedAt = time.Now()
			r.s.usage[id] = l
			return nil
		}
	}
	l := models.IngredientUsageLog{
		ID:                   primitive.NewObjectID(),
		IngredientID:         ingredientID,
		IngredientName:       name,
		Date:                 date,
		Source:               source,
		QuantityUsed:         qty,
		CalculatedFromOrders: true,
		UpdatedAt:            time.Now(),
	}
	r.s.usage[l.ID] = l
	return nil
}

func (r *usageLogRepository) List(_ context.Context, filter repositories.UsageLogFilter) ([]*models.IngredientUsageLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.IngredientUsageLog
	for _, l := range r.s.usage {
		if filter.Date != "" && l.Date != filter.Date {
			continue
		}
		if filter.Source != "" && l.Source != filter.Source {
			continue
		}
		if filter.IngredientID != nil && l.IngredientID != *filter.IngredientID {
			continue
		}
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.IngredientName != b.IngredientName {
			return a.IngredientName < b.IngredientName
		}
		return a.Source < b.Source
	})
	return out, nil
}

func (r *usageLogRepository) DeleteBySource(_ context.Context, source models.Platform) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, l := range r.s.usage {
		if l.Source == source {
			delete(r.s.usage, id)
			n++
		}
	}
	return n, nil
}

type unmappedRepository struct{ s *Store }

func (r *unmappedRepository) Record(_ context.Context, item *models.UnmappedItem, seen int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	if item.LastSeen.IsZero() {
		item.LastSeen = now
	}
	for id, existing := range r.s.unmapped {
		if existing.Key() != item.Key() {
			continue
		}
		existing.SeenCount += seen
		existing.ItemName = item.ItemName
		existing.LastReason = item.LastReason
		existing.LastSeen = item.LastSeen
		if item.PricePointName != "" {
			existing.PricePointName = item.PricePointName
		}
		if len(item.LastModifiers) > 0 {
			existing.LastModifiers = item.LastModifiers
		}
		if len(item.LastRawRow) > 0 {
			existing.LastRawRow = item.LastRawRow
		}
		r.s.unmapped[id] = existing
		item.ID = id
		return nil
	}
	stored := *item
	stored.ID = primitive.NewObjectID()
	stored.SeenCount = seen
	stored.FirstSeen = now
	stored.Resolved = false
	stored.Ignored = false
	r.s.unmapped[stored.ID] = stored
	item.ID = stored.ID
	return nil
}

func (r *unmappedRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.UnmappedItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if item, ok := r.s.unmapped[id]; ok {
		return &item, nil
	}
	return nil, nil
}

func (r *unmappedRepository) List(_ context.Context, filter repositories.UnmappedFilter) ([]*models.UnmappedItem, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []*models.UnmappedItem
	for _, item := range r.s.unmapped {
		if filter.Source != "" && item.Source != filter.Source {
			continue
		}
		if filter.ItemType != "" && item.ItemType != filter.ItemType {
			continue
		}
		if !filter.IncludeResolved && (item.Resolved || item.Ignored) {
			continue
		}
		all = append(all, &item)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SeenCount != all[j].SeenCount {
			return all[i].SeenCount > all[j].SeenCount
		}
		return all[i].Key() < all[j].Key()
	})

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []*models.UnmappedItem{}, total, nil
	}
	end := min(start+limit, len(all))
	return all[start:end], total, nil
}

func (r *unmappedRepository) Update(_ context.Context, item *models.UnmappedItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.unmapped[item.ID] = *item
	return nil
}

func (r *unmappedRepository) DeleteBySource(_ context.Context, source models.Platform) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, item := range r.s.unmapped {
		if item.Source == source {
			delete(r.s.unmapped, id)
			n++
		}
	}
	return n, nil
}

type importLogRepository struct{ s *Store }

func (r *importLogRepository) Create(_ context.Context, log *models.ImportLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	r.s.imports[log.ID] = *log
	return nil
}

func (r *importLogRepository) DeleteBySource(_ context.Context, source models.Platform) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, l := range r.s.imports {
		if l.Source == source {
			delete(r.s.imports, id)
			n++
		}
	}
	return n, nil
}

// ImportLogs returns every stored import log, oldest first
func (s *Store) ImportLogs() []models.ImportLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ImportLog, 0, len(s.imports))
	for _, l := range s.imports {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Orders returns every stored order for a platform
func (s *Store) Orders(platform models.Platform) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.Platform == platform {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}
