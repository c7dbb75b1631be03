package app

import (
	"net/http"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/domain/services"
	"github.com/ak/cafeinv/internal/infrastructure/seed"
	apperrors "github.com/ak/cafeinv/internal/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (a *Application) listUsage(c *gin.Context) {
	filter := repositories.UsageLogFilter{
		Date:   c.Query("date"),
		Source: models.Platform(c.Query("source")),
	}
	if raw := c.Query("ingredient_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			errorResponse(c, apperrors.InvalidInput("invalid ingredient_id"))
			return
		}
		filter.IngredientID = &id
	}

	logs, err := a.inventory.UsageLogs(c.Request.Context(), filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	if logs == nil {
		logs = []*models.IngredientUsageLog{}
	}
	successResponse(c, logs)
}

func (a *Application) lowStock(c *gin.Context) {
	items, err := a.inventory.LowStock(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	if items == nil {
		items = []services.LowStockItem{}
	}
	successResponse(c, items)
}

// seedCatalog accepts the same YAML (or JSON) document as the seed command
func (a *Application) seedCatalog(c *gin.Context) {
	catalog, err := seed.Load(c.Request.Body)
	if err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	result, err := a.inventory.Seed(c.Request.Context(), catalog)
	if err != nil {
		a.fail(c, apperrors.New(apperrors.ErrSeedFailed, err.Error(), http.StatusUnprocessableEntity))
		return
	}
	successResponse(c, result)
}
