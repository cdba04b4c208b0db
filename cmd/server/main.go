package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/yegors/driverops/internal/advisor"
	"github.com/yegors/driverops/internal/ai"
	"github.com/yegors/driverops/internal/ai/gemini"
	"github.com/yegors/driverops/internal/ai/openai"
	"github.com/yegors/driverops/internal/api"
	"github.com/yegors/driverops/internal/config"
	"github.com/yegors/driverops/internal/dashboard"
	"github.com/yegors/driverops/internal/flights"
	"github.com/yegors/driverops/internal/storage/sqlite"
	"github.com/yegors/driverops/internal/weather"
	"github.com/yegors/driverops/internal/websocket"
	"github.com/yegors/driverops/internal/zones"
	"github.com/yegors/driverops/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	useDefaults := flag.Bool("defaults", false, "Run with built-in defaults when no configuration file is found")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		if !*useDefaults {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting DriverOps server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Zone store: an external zone service, or a local store when no base URL is set
	zoneStore, db, err := newZoneStore(cfg, log)
	if err != nil {
		log.Error("Failed to create zone store", logger.Error(err))
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}
	zoneService := zones.NewService(zoneStore, cfg.Zones.CacheSize, cfg.ZoneCacheTTL(), log)

	// Pollers
	weatherService := weather.NewService(cfg.WeatherService(), log)

	flightConfig := cfg.FlightService()
	flightService := flights.NewService(flightConfig, flights.NewClient(flightConfig, log), nil, log)

	// Advisor, model-backed when a provider is configured
	provider, err := newChatProvider(ctx, cfg, log)
	if err != nil {
		log.Warn("Advisor provider unavailable, using rule-based tips", logger.Error(err))
		provider = nil
	}
	adv := advisor.New(provider, cfg.AdvisorService(), log)

	// Create WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run(ctx)

	dash := dashboard.New(cfg.DashboardService(), weatherService, flightService, adv, wsServer, log)
	wsServer.SetMessageHandler(dash)

	// The dashboard subscribes before the pollers start so the first results are pushed
	if err := dash.Start(ctx); err != nil {
		log.Error("Failed to start dashboard", logger.Error(err))
		os.Exit(1)
	}
	if err := weatherService.Start(ctx); err != nil {
		log.Error("Failed to start weather service", logger.Error(err))
		os.Exit(1)
	}
	if err := flightService.Start(ctx); err != nil {
		log.Error("Failed to start flight service", logger.Error(err))
		os.Exit(1)
	}

	// Create API router
	handler := api.NewHandler(dash, weatherService, flightService, zoneService, log)
	router := api.NewRouter(handler, wsServer.HandleConnection, cfg.Server.StaticFilesDir, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.String("addr", addr), logger.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal or a fatal server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	// Stop background services first
	dash.Stop()
	flightService.Stop()
	weatherService.Stop()

	// Cancel the main context; this also closes every WebSocket client
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Server fully stopped")
}

// newZoneStore picks the zone backend. The returned database is non-nil
// only for the SQLite store and must be closed by the caller.
func newZoneStore(cfg *config.Config, log *logger.Logger) (zones.Store, *sql.DB, error) {
	if !cfg.UsesLocalZones() {
		log.Info("Using external zone API", logger.String("base_url", cfg.Zones.APIBaseURL))
		return zones.NewClient(cfg.Zones.APIBaseURL, cfg.ZoneTimeout(), log), nil, nil
	}

	var seed []zones.Zone
	if cfg.Zones.Seed {
		seed = zones.SeedZones()
	}

	switch cfg.Storage.Type {
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := sqlite.Open(cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlite.NewZoneStorage(db, seed, log)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("Using SQLite zone store", logger.String("path", cfg.Storage.SQLitePath))
		return store, db, nil
	default:
		log.Info("Using in-memory zone store")
		return zones.NewMemoryStore(seed), nil, nil
	}
}

// newChatProvider returns nil when no provider is configured
func newChatProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (ai.ChatProvider, error) {
	switch cfg.Advisor.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(ctx, cfg.Advisor.APIKey, cfg.Advisor.BaseURL, log)
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.Advisor.APIKey, log, cfg.Advisor.BaseURL), nil
	default:
		return nil, nil
	}
}
