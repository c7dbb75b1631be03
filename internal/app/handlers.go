package app

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ak/cafeinv/internal/domain/services"
	apperrors "github.com/ak/cafeinv/internal/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var version = "0.1.0"

// APIResponse is the standard API response format
type APIResponse struct {
	Success   bool                `json:"success"`
	Data      any                 `json:"data,omitempty"`
	Error     *apperrors.APIError `json:"error,omitempty"`
	Meta      *APIMeta            `json:"meta,omitempty"`
	Timestamp string              `json:"timestamp"`
}

type APIMeta struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func successResponse(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func createdResponse(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func paginatedResponse(c *gin.Context, data any, page, perPage int, total int64) {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func errorResponse(c *gin.Context, apiErr *apperrors.APIError) {
	c.JSON(apiErr.HTTPStatus, APIResponse{
		Success:   false,
		Error:     apiErr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// fail maps a service error onto an API error and writes it
func (a *Application) fail(c *gin.Context, err error) {
	var apiErr *apperrors.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, services.ErrNotFound):
		apiErr = apperrors.NotFound("item")
	case errors.Is(err, services.ErrInvalidPlatform):
		apiErr = apperrors.New(apperrors.ErrUnknownPlatform, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNoSource), errors.Is(err, services.ErrInvalidTarget):
		apiErr = apperrors.Validation(err.Error())
	case errors.Is(err, services.ErrAlreadyResolved):
		apiErr = apperrors.New(apperrors.ErrConflict, err.Error(), http.StatusConflict)
	default:
		apiErr = apperrors.Internal("request failed")
		a.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	_ = c.Error(err)
	errorResponse(c, apiErr)
}

func getObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		errorResponse(c, apperrors.InvalidInput("invalid ID format"))
		return primitive.NilObjectID, false
	}
	return id, true
}

func getPagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// Health and info endpoints

func (a *Application) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	if a.health != nil {
		if err := a.health.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"reason":    "database unavailable",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *Application) apiInfo(c *gin.Context) {
	successResponse(c, gin.H{
		"name":        a.config.App.Name,
		"version":     version,
		"description": "Recipe resolution and ingredient usage for café sales",
		"timezone":    a.location.String(),
	})
}
