package app

import (
	"strconv"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/domain/services"
	apperrors "github.com/ak/cafeinv/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

type IgnoreUnmappedRequest struct {
	Note string `json:"note"`
}

func (a *Application) listUnmapped(c *gin.Context) {
	page, limit := getPagination(c)
	includeResolved, _ := strconv.ParseBool(c.DefaultQuery("include_resolved", "false"))

	filter := repositories.UnmappedFilter{
		Source:          models.Platform(c.Query("source")),
		ItemType:        models.UnmappedItemType(c.Query("item_type")),
		IncludeResolved: includeResolved,
		Page:            page,
		Limit:           limit,
	}
	if filter.Source != "" && !filter.Source.Valid() {
		errorResponse(c, apperrors.UnknownPlatform(string(filter.Source)))
		return
	}

	items, total, err := a.unmapped.List(c.Request.Context(), filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	if items == nil {
		items = []*models.UnmappedItem{}
	}
	paginatedResponse(c, items, page, limit, total)
}

func (a *Application) resolveUnmapped(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.ResolveUnmappedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	item, err := a.unmapped.Resolve(c.Request.Context(), id, req)
	if err != nil {
		a.fail(c, err)
		return
	}
	successResponse(c, item)
}

func (a *Application) ignoreUnmapped(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req IgnoreUnmappedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, apperrors.InvalidInput(err.Error()))
			return
		}
	}

	item, err := a.unmapped.Ignore(c.Request.Context(), id, req.Note)
	if err != nil {
		a.fail(c, err)
		return
	}
	successResponse(c, item)
}
