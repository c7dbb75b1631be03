package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// InventoryService reports usage and stock and loads the catalog
type InventoryService interface {
	UsageLogs(ctx context.Context, filter repositories.UsageLogFilter) ([]*models.IngredientUsageLog, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
	Seed(ctx context.Context, catalog *SeedCatalog) (*SeedResult, error)
}

type LowStockItem struct {
	IngredientID primitive.ObjectID `json:"ingredient_id"`
	Name         string             `json:"name"`
	CurrentStock decimal.Decimal    `json:"current_stock"`
	ReorderPoint decimal.Decimal    `json:"reorder_point"`
	CasesOnHand  *decimal.Decimal   `json:"cases_on_hand,omitempty"`
}

// SeedCatalog is a whole reference catalog keyed by names. Seeding is
// an upsert by name, so the same file can be applied repeatedly.
type SeedCatalog struct {
	Types       []SeedType       `yaml:"ingredient_types" json:"ingredient_types"`
	Ingredients []SeedIngredient `yaml:"ingredients" json:"ingredients"`
	Products    []SeedProduct    `yaml:"products" json:"products"`
	Modifiers   []SeedModifier   `yaml:"modifiers" json:"modifiers"`
}

type SeedType struct {
	Name     string          `yaml:"name" json:"name"`
	UnitType models.UnitType `yaml:"unit_type" json:"unit_type"`
}

type SeedIngredient struct {
	Name         string           `yaml:"name" json:"name"`
	Type         string           `yaml:"type" json:"type"`
	UnitType     models.UnitType  `yaml:"unit_type" json:"unit_type"`
	CurrentStock decimal.Decimal  `yaml:"current_stock" json:"current_stock"`
	AverageCost  decimal.Decimal  `yaml:"average_cost" json:"average_cost"`
	ReorderPoint *decimal.Decimal `yaml:"reorder_point" json:"reorder_point"`
	CaseSize     *decimal.Decimal `yaml:"case_size" json:"case_size"`
}

type SeedProduct struct {
	Name       string           `yaml:"name" json:"name"`
	SKU        string           `yaml:"sku" json:"sku"`
	Categories []string         `yaml:"categories" json:"categories"`
	Recipe     []SeedRecipeItem `yaml:"recipe" json:"recipe"`
	Modifiers  []string         `yaml:"modifiers" json:"modifiers"`
}

type SeedRecipeItem struct {
	Ingredient string          `yaml:"ingredient" json:"ingredient"`
	Quantity   decimal.Decimal `yaml:"quantity" json:"quantity"`
	Unit       string          `yaml:"unit" json:"unit"`
}

type SeedModifier struct {
	Name           string          `yaml:"name" json:"name"`
	Type           string          `yaml:"type" json:"type"`
	Behavior       string          `yaml:"behavior" json:"behavior"`
	Ingredient     string          `yaml:"ingredient" json:"ingredient"`
	BaseQuantity   decimal.Decimal `yaml:"base_quantity" json:"base_quantity"`
	QuantityFactor decimal.Decimal `yaml:"quantity_factor" json:"quantity_factor"`
	Unit           string          `yaml:"unit" json:"unit"`
	TargetSelector any             `yaml:"target_selector" json:"target_selector"`
	Replaces       any             `yaml:"replaces" json:"replaces"`
	ExpandsTo      []string        `yaml:"expands_to" json:"expands_to"`
}

type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type inventoryService struct {
	repos *repositories.Provider
	log   *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(repos *repositories.Provider, log *logger.Logger) InventoryService {
	if log == nil {
		log = logger.Nop()
	}
	return &inventoryService{repos: repos, log: log.WithComponent("inventory")}
}

func (s *inventoryService) UsageLogs(ctx context.Context, filter repositories.UsageLogFilter) ([]*models.IngredientUsageLog, error) {
	if filter.Source != "" && !filter.Source.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlatform, filter.Source)
	}
	return s.repos.UsageLog.List(ctx, filter)
}

func (s *inventoryService) LowStock(ctx context.Context) ([]LowStockItem, error) {
	ingredients, err := s.repos.Ingredient.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]LowStockItem, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing.ReorderPoint == nil {
			continue
		}
		item := LowStockItem{
			IngredientID: ing.ID,
			Name:         ing.Name,
			CurrentStock: ing.CurrentStock,
			ReorderPoint: *ing.ReorderPoint,
		}
		if cases, ok := ing.CasesOnHand(); ok {
			item.CasesOnHand = &cases
		}
		items = append(items, item)
	}
	return items, nil
}

// Seed upserts types, ingredients, products and modifiers by name inside
// one transaction. Unknown references fail the whole seed.
func (s *inventoryService) Seed(ctx context.Context, catalog *SeedCatalog) (*SeedResult, error) {
	if catalog == nil {
		return nil, errors.New("seed catalog is required")
	}
	result := &SeedResult{}
	err := s.repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		*result = SeedResult{}
		sd := &seeder{repos: s.repos, result: result}
		if err := sd.types(ctx, catalog.Types); err != nil {
			return err
		}
		if err := sd.ingredients(ctx, catalog.Ingredients); err != nil {
			return err
		}
		if err := sd.modifiers(ctx, catalog.Modifiers); err != nil {
			return err
		}
		return sd.products(ctx, catalog.Products)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Catalog seeded", zap.Int("created", result.Created), zap.Int("updated", result.Updated))
	return result, nil
}

type seeder struct {
	repos  *repositories.Provider
	result *SeedResult
}

func (sd *seeder) types(ctx context.Context, types []SeedType) error {
	for _, st := range types {
		name := strings.TrimSpace(st.Name)
		if name == "" {
			return fmt.Errorf("ingredient type name is required")
		}
		existing, err := sd.repos.IngredientType.GetByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := sd.repos.IngredientType.Create(ctx, &models.IngredientType{Name: name, UnitType: st.UnitType}); err != nil {
			return fmt.Errorf("failed to create ingredient type %s: %w", name, err)
		}
		sd.result.Created++
	}
	return nil
}

func (sd *seeder) ingredients(ctx context.Context, ingredients []SeedIngredient) error {
	for _, si := range ingredients {
		name := strings.TrimSpace(si.Name)
		if name == "" {
			return fmt.Errorf("ingredient name is required")
		}
		var typeID *primitive.ObjectID
		if si.Type != "" {
			t, err := sd.repos.IngredientType.GetByName(ctx, si.Type)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("ingredient %s: unknown type %q", name, si.Type)
			}
			id := t.ID
			typeID = &id
		}

		existing, err := sd.repos.Ingredient.GetByName(ctx, name)
		if err != nil {
			return err
		}
		ing := existing
		if ing == nil {
			ing = &models.Ingredient{Name: name}
		}
		ing.TypeID = typeID
		ing.UnitType = si.UnitType
		ing.CurrentStock = si.CurrentStock
		ing.AverageCost = si.AverageCost
		ing.ReorderPoint = si.ReorderPoint
		ing.CaseSize = si.CaseSize
		if err := sd.save(existing != nil,
			func() error { return sd.repos.Ingredient.Update(ctx, ing) },
			func() error { return sd.repos.Ingredient.Create(ctx, ing) }); err != nil {
			return fmt.Errorf("failed to save ingredient %s: %w", name, err)
		}
	}
	return nil
}

// modifiers runs two passes so expands_to may name modifiers defined later
func (sd *seeder) modifiers(ctx context.Context, modifiers []SeedModifier) error {
	saved := make([]*models.RecipeModifier, len(modifiers))
	for i, sm := range modifiers {
		name := strings.TrimSpace(sm.Name)
		if name == "" {
			return fmt.Errorf("modifier name is required")
		}
		behavior, err := models.ParseBehavior(sm.Behavior)
		if err != nil {
			return fmt.Errorf("modifier %s: %w", name, err)
		}

		existing, err := sd.repos.Modifier.GetByName(ctx, name)
		if err != nil {
			return err
		}
		mod := existing
		if mod == nil {
			mod = &models.RecipeModifier{Name: name}
		}
		mod.Type = sm.Type
		mod.Behavior = behavior
		mod.BaseQuantity = sm.BaseQuantity
		mod.QuantityFactor = sm.QuantityFactor
		mod.Unit = sm.Unit
		mod.TargetSelector = sm.TargetSelector
		mod.Replaces = sm.Replaces
		mod.IngredientID = nil
		mod.ExpandsTo = nil
		if sm.Ingredient != "" {
			ing, err := sd.repos.Ingredient.GetByName(ctx, sm.Ingredient)
			if err != nil {
				return err
			}
			if ing == nil {
				return fmt.Errorf("modifier %s: unknown ingredient %q", name, sm.Ingredient)
			}
			id := ing.ID
			mod.IngredientID = &id
		}
		if err := sd.save(existing != nil,
			func() error { return sd.repos.Modifier.Update(ctx, mod) },
			func() error { return sd.repos.Modifier.Create(ctx, mod) }); err != nil {
			return fmt.Errorf("failed to save modifier %s: %w", name, err)
		}
		saved[i] = mod
	}

	for i, sm := range modifiers {
		if len(sm.ExpandsTo) == 0 {
			continue
		}
		mod := saved[i]
		for _, child := range sm.ExpandsTo {
			c, err := sd.repos.Modifier.GetByName(ctx, child)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("modifier %s: unknown expands_to %q", mod.Name, child)
			}
			mod.ExpandsTo = append(mod.ExpandsTo, c.ID)
		}
		if err := sd.repos.Modifier.Update(ctx, mod); err != nil {
			return fmt.Errorf("failed to link modifier %s: %w", mod.Name, err)
		}
	}
	return nil
}

func (sd *seeder) products(ctx context.Context, products []SeedProduct) error {
	for _, sp := range products {
		name := strings.TrimSpace(sp.Name)
		existing, err := sd.repos.Product.GetByName(ctx, name)
		if err != nil {
			return err
		}
		p := existing
		if p == nil {
			p = &models.Product{Name: name}
		}
		p.SKU = strings.TrimSpace(sp.SKU)
		p.Categories = sp.Categories
		p.RecipeItems = nil
		p.ModifierIDs = nil

		for _, item := range sp.Recipe {
			ing, err := sd.repos.Ingredient.GetByName(ctx, item.Ingredient)
			if err != nil {
				return err
			}
			if ing == nil {
				return fmt.Errorf("product %s: unknown ingredient %q", name, item.Ingredient)
			}
			p.RecipeItems = append(p.RecipeItems, models.RecipeItem{
				IngredientID: ing.ID,
				Quantity:     item.Quantity,
				Unit:         item.Unit,
			})
		}
		for _, modName := range sp.Modifiers {
			m, err := sd.repos.Modifier.GetByName(ctx, modName)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("product %s: unknown modifier %q", name, modName)
			}
			p.ModifierIDs = append(p.ModifierIDs, m.ID)
		}

		if err := p.Validate(); err != nil {
			return fmt.Errorf("product %s: %w", name, err)
		}
		if err := sd.save(existing != nil,
			func() error { return sd.repos.Product.Update(ctx, p) },
			func() error { return sd.repos.Product.Create(ctx, p) }); err != nil {
			return fmt.Errorf("failed to save product %s: %w", name, err)
		}
	}
	return nil
}

func (sd *seeder) save(exists bool, update, create func() error) error {
	if exists {
		if err := update(); err != nil {
			return err
		}
		sd.result.Updated++
		return nil
	}
	if err := create(); err != nil {
		return err
	}
	sd.result.Created++
	return nil
}
