package app

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/services"
	"github.com/ak/cafeinv/internal/importers"
	apperrors "github.com/ak/cafeinv/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ImportLinesRequest carries already parsed sales lines
type ImportLinesRequest struct {
	Lines []services.LineItem `json:"lines" binding:"required,dive"`
}

func (a *Application) resolveLine(c *gin.Context) {
	var line services.LineItem
	if err := c.ShouldBindJSON(&line); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	res, err := a.imports.ResolveLine(c.Request.Context(), line)
	if err != nil {
		a.fail(c, err)
		return
	}
	successResponse(c, res)
}

// runImport accepts either a JSON body of lines or a multipart upload of
// the platform's own export in the "file" field.
func (a *Application) runImport(c *gin.Context) {
	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		errorResponse(c, apperrors.UnknownPlatform(c.Param("platform")))
		return
	}
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))

	if a.config.Server.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.config.Server.MaxUploadBytes)
	}

	var source services.LineSource
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			errorResponse(c, apperrors.Validation("file is required"))
			return
		}
		f, err := header.Open()
		if err != nil {
			errorResponse(c, apperrors.InvalidInput(err.Error()))
			return
		}
		defer f.Close()

		source, err = importers.NewSource(platform, f, a.location)
		if err != nil {
			errorResponse(c, apperrors.InvalidInput(err.Error()))
			return
		}
	} else {
		var req ImportLinesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, apperrors.InvalidInput(err.Error()))
			return
		}
		source = services.NewSliceSource(req.Lines)
	}

	report, err := a.imports.Run(c.Request.Context(), services.ImportRequest{
		Platform: platform,
		Source:   source,
		DryRun:   dryRun,
	})
	if err != nil {
		a.fail(c, apperrors.ImportFailed(err))
		return
	}

	if dryRun {
		successResponse(c, report)
		return
	}
	createdResponse(c, report)
}

func (a *Application) purgeImports(c *gin.Context) {
	platform, err := models.ParsePlatform(c.Query("platform"))
	if err != nil {
		errorResponse(c, apperrors.UnknownPlatform(c.Query("platform")))
		return
	}
	includeUnmapped, _ := strconv.ParseBool(c.DefaultQuery("include_unmapped", "false"))

	result, err := a.imports.Purge(c.Request.Context(), services.PurgeRequest{
		Platform:        platform,
		IncludeUnmapped: includeUnmapped,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	successResponse(c, result)
}
