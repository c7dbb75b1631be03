package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ak/cafeinv/internal/app"
	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"github.com/ak/cafeinv/internal/domain/services"
	"github.com/ak/cafeinv/internal/importers"
	"github.com/ak/cafeinv/internal/infrastructure/config"
	"github.com/ak/cafeinv/internal/infrastructure/database"
	infrarepos "github.com/ak/cafeinv/internal/infrastructure/repositories"
	"github.com/ak/cafeinv/internal/infrastructure/repositories/memory"
	"github.com/ak/cafeinv/internal/infrastructure/seed"
	"github.com/ak/cafeinv/internal/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

var (
	inMemory  bool
	seedFile  string
	dryRun    bool
	inputFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cafeinv",
		Short: "Café inventory - recipe resolution and ingredient usage",
		Long: `cafeinv maps point-of-sale line items from Square and Shopify onto
recipes, applies modifiers, and records the resulting ingredient usage per
business day.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "use an in-process store instead of MongoDB")
	rootCmd.PersistentFlags().StringVar(&seedFile, "seed", "", "catalog YAML to load before running (in-memory mode)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cafeinv version %s (built %s)\n", version, buildTime)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	})

	importCmd := &cobra.Command{
		Use:       "import <square|shopify>",
		Short:     "Import a platform sales export",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(models.PlatformSquare), string(models.PlatformShopify)},
		RunE:      runImport,
	}
	importCmd.Flags().StringVarP(&inputFile, "file", "f", "", "export file to read")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and report without writing")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete everything imported from a platform",
		RunE:  runPurge,
	}
	purgeCmd.Flags().String("platform", "", "square or shopify")
	purgeCmd.Flags().Bool("include-unmapped", false, "also clear the unmapped queue")
	_ = purgeCmd.MarkFlagRequired("platform")
	rootCmd.AddCommand(purgeCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load ingredients, products and modifiers from a catalog file",
		RunE:  runSeed,
	}
	seedCmd.Flags().StringVarP(&inputFile, "file", "f", "", "catalog YAML")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command needs once configuration is loaded
type env struct {
	cfg    *config.Config
	log    *logger.Logger
	repos  *repositories.Provider
	health app.HealthChecker
	close  func()
}

func bootstrap(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(log)

	e := &env{cfg: cfg, log: log, close: func() { _ = log.Sync() }}

	if inMemory {
		e.repos = memory.NewProvider(memory.NewStore())
		log.Info("Using in-memory store")
	} else {
		mongodb, err := database.NewMongoDB(cfg.MongoDB, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
		}
		if err := mongodb.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		e.repos = infrarepos.NewProvider(mongodb)
		e.health = mongodb
		e.close = func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := mongodb.Close(shutdownCtx); err != nil {
				log.Error("Failed to close MongoDB connection", zap.Error(err))
			}
			_ = log.Sync()
		}
	}

	if seedFile != "" {
		if err := loadSeed(ctx, e, seedFile); err != nil {
			e.close()
			return nil, err
		}
	}
	return e, nil
}

func loadSeed(ctx context.Context, e *env, path string) error {
	catalog, err := seed.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	result, err := services.NewInventoryService(e.repos, e.log).Seed(ctx, catalog)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	e.log.Info("Catalog loaded",
		zap.String("file", path),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	log := e.log

	log.Info("Starting cafeinv",
		zap.String("version", version),
		zap.String("environment", e.cfg.App.Env),
	)

	application, err := app.New(e.cfg, log, e.repos, e.health)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	server := &http.Server{
		Addr:         e.cfg.GetAddress(),
		Handler:      application.Router(),
		ReadTimeout:  e.cfg.Server.ReadTimeout,
		WriteTimeout: e.cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("address", e.cfg.GetAddress()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	log.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server shutdown complete")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	platform, err := models.ParsePlatform(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	loc, err := e.cfg.Import.Location()
	if err != nil {
		return err
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return err
	}
	defer f.Close()

	source, err := importers.NewSource(platform, f, loc)
	if err != nil {
		return err
	}

	svc := services.NewImportService(e.repos, services.ImportOptions{
		Location:    loc,
		IncludeCup:  e.cfg.Import.IncludeCup,
		ScaleBySize: e.cfg.Import.ScaleBySize,
		MaxErrors:   e.cfg.Import.MaxErrors,
	}, e.log)

	report, err := svc.Run(ctx, services.ImportRequest{
		Platform: platform,
		Source:   source,
		DryRun:   dryRun,
	})
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runPurge(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("platform")
	includeUnmapped, _ := cmd.Flags().GetBool("include-unmapped")
	platform, err := models.ParsePlatform(raw)
	if err != nil {
		return err
	}

	ctx := context.Background()
	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	loc, err := e.cfg.Import.Location()
	if err != nil {
		return err
	}
	svc := services.NewImportService(e.repos, services.ImportOptions{Location: loc}, e.log)
	result, err := svc.Purge(ctx, services.PurgeRequest{Platform: platform, IncludeUnmapped: includeUnmapped})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	return loadSeed(ctx, e, inputFile)
}
