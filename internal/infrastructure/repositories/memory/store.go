// Package memory holds in-process repository implementations. They back
// the service tests and the CLI's --in-memory mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the shared state behind every memory repository. Records are
// kept by value so callers never alias stored data.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	types       map[primitive.ObjectID]models.IngredientType
	ingredients map[primitive.ObjectID]models.Ingredient
	products    map[primitive.ObjectID]models.Product
	modifiers   map[primitive.ObjectID]models.RecipeModifier
	orders      map[primitive.ObjectID]models.Order
	usage       map[primitive.ObjectID]models.IngredientUsageLog
	unmapped    map[primitive.ObjectID]models.UnmappedItem
	imports     map[primitive.ObjectID]models.ImportLog
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		types:       make(map[primitive.ObjectID]models.IngredientType),
		ingredients: make(map[primitive.ObjectID]models.Ingredient),
		products:    make(map[primitive.ObjectID]models.Product),
		modifiers:   make(map[primitive.ObjectID]models.RecipeModifier),
		orders:      make(map[primitive.ObjectID]models.Order),
		usage:       make(map[primitive.ObjectID]models.IngredientUsageLog),
		unmapped:    make(map[primitive.ObjectID]models.UnmappedItem),
		imports:     make(map[primitive.ObjectID]models.ImportLog),
	}
}

// NewProvider wires every repository to one store
func NewProvider(s *Store) *repositories.Provider {
	return &repositories.Provider{
		IngredientType: &ingredientTypeRepository{s},
		Ingredient:     &ingredientRepository{s},
		Product:        &productRepository{s},
		Modifier:       &modifierRepository{s},
		Order:          &orderRepository{s},
		UsageLog:       &usageLogRepository{s},
		Unmapped:       &unmappedRepository{s},
		ImportLog:      &importLogRepository{s},
		Transactor:     s,
	}
}

// WithTransaction serializes transactions and restores a snapshot when fn
// fails. Writes made outside a transaction while one is running are lost
// on rollback.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) snapshot() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Store{
		types:       cloneMap(s.types),
		ingredients: cloneMap(s.ingredients),
		products:    cloneMap(s.products),
		modifiers:   cloneMap(s.modifiers),
		orders:      cloneMap(s.orders),
		usage:       cloneMap(s.usage),
		unmapped:    cloneMap(s.unmapped),
		imports:     cloneMap(s.imports),
	}
}

func (s *Store) restore(snap *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = snap.types
	s.ingredients = snap.ingredients
	s.products = snap.products
	s.modifiers = snap.modifiers
	s.orders = snap.orders
	s.usage = snap.usage
	s.unmapped = snap.unmapped
	s.imports = snap.imports
}

func cloneMap[V any](m map[primitive.ObjectID]V) map[primitive.ObjectID]V {
	out := make(map[primitive.ObjectID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sortedByName copies values out of m ordered by name, then id
func sortedByName[V any](m map[primitive.ObjectID]V, name func(*V) string, keep func(*V) bool) []*V {
	out := make([]*V, 0, len(m))
	ids := make(map[*V]primitive.ObjectID, len(m))
	for id, v := range m {
		v := v
		if keep != nil && !keep(&v) {
			continue
		}
		out = append(out, &v)
		ids[&v] = id
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(name(out[i])), strings.ToLower(name(out[j]))
		if ni != nj {
			return ni < nj
		}
		return ids[out[i]].Hex() < ids[out[j]].Hex()
	})
	return out
}

// findByName returns a copy of the first value whose name matches ignoring case
func findByName[V any](m map[primitive.ObjectID]V, target string, name func(*V) string) *V {
	for _, v := range sortedByName(m, name, nil) {
		if models.SameName(name(v), target) {
			return v
		}
	}
	return nil
}
