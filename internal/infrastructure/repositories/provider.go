package repositories

import (
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/infrastructure/database"
)

// NewProvider wires the MongoDB repositories. db also serves as the
// transactor, so import commits run in one multi-document transaction.
func NewProvider(db *database.MongoDB) *repositories.Provider {
	return &repositories.Provider{
		IngredientType: NewIngredientTypeRepository(db),
		Ingredient:     NewIngredientRepository(db),
		Product:        NewProductRepository(db),
		Modifier:       NewModifierRepository(db),
		Order:          NewOrderRepository(db),
		UsageLog:       NewUsageLogRepository(db),
		Unmapped:       NewUnmappedRepository(db),
		ImportLog:      NewImportLogRepository(db),
		Transactor:     db,
	}
}
