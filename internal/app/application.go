package app

import (
	"context"
	"net/http"
	"time"

	"github.com/ak/cafeinv/internal/app/middleware"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/domain/services"
	"github.com/ak/cafeinv/internal/infrastructure/config"
	"github.com/ak/cafeinv/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Application holds all application dependencies and services
type Application struct {
	config    *config.Config
	logger    *logger.Logger
	health    HealthChecker
	location  *time.Location
	imports   services.ImportService
	unmapped  services.UnmappedService
	inventory services.InventoryService
	router    *gin.Engine
}

// New creates a new Application instance. health may be nil when the
// repositories are in memory.
func New(cfg *config.Config, log *logger.Logger, repos *repositories.Provider, health HealthChecker) (*Application, error) {
	loc, err := cfg.Import.Location()
	if err != nil {
		return nil, err
	}

	app := &Application{
		config:   cfg,
		logger:   log.WithComponent("http"),
		health:   health,
		location: loc,
		imports: services.NewImportService(repos, services.ImportOptions{
			Location:    loc,
			IncludeCup:  cfg.Import.IncludeCup,
			ScaleBySize: cfg.Import.ScaleBySize,
			MaxErrors:   cfg.Import.MaxErrors,
		}, log),
		unmapped:  services.NewUnmappedService(repos),
		inventory: services.NewInventoryService(repos, log),
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app.router = gin.New()
	app.router.Use(middleware.RecoveryMiddleware(app.logger.Logger))
	app.router.Use(middleware.RequestID())
	app.router.Use(middleware.LoggerMiddleware(app.logger.Logger))
	app.router.Use(middleware.CORS(cfg.CORS))

	app.setupRoutes()

	return app, nil
}

// Router returns the HTTP handler
func (a *Application) Router() http.Handler {
	return a.router
}

// setupRoutes configures all application routes
func (a *Application) setupRoutes() {
	// Health check endpoints
	a.router.GET("/health", a.healthCheck)
	a.router.GET("/ready", a.readinessCheck)

	v1 := a.router.Group("/api/v1")
	{
		v1.GET("/info", a.apiInfo)

		// Dry resolution of a single sales line
		v1.POST("/lines/resolve", a.resolveLine)

		imports := v1.Group("/imports")
		{
			imports.POST("/:platform", a.runImport)
			imports.DELETE("", a.purgeImports)
		}

		unmapped := v1.Group("/unmapped")
		{
			unmapped.GET("", a.listUnmapped)
			unmapped.POST("/:id/resolve", a.resolveUnmapped)
			unmapped.POST("/:id/ignore", a.ignoreUnmapped)
		}

		v1.GET("/usage", a.listUsage)
		v1.GET("/ingredients/low-stock", a.lowStock)
		v1.POST("/catalog/seed", a.seedCatalog)
	}
}
