// Package importers picks the line reader for a sales platform export.
package importers

import (
	"fmt"
	"io"
	"time"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/services"
	"github.com/ak/cafeinv/internal/importers/shopify"
	"github.com/ak/cafeinv/internal/importers/square"
)

// NewSource reads a Square CSV or a Shopify JSON export
func NewSource(platform models.Platform, r io.Reader, loc *time.Location) (services.LineSource, error) {
	switch platform {
	case models.PlatformSquare:
		return square.NewReader(r, loc)
	case models.PlatformShopify:
		return shopify.NewReader(r, loc)
	}
	return nil, fmt.Errorf("%w: %q", services.ErrInvalidPlatform, platform)
}
