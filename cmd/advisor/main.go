package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/capacitylab/fleet-advisor/api"
	"github.com/capacitylab/fleet-advisor/internal/decision"
	"github.com/capacitylab/fleet-advisor/internal/events"
	"github.com/capacitylab/fleet-advisor/internal/forecaster"
	"github.com/capacitylab/fleet-advisor/internal/history"
	"github.com/capacitylab/fleet-advisor/internal/lifecycle"
	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/internal/orchestrator"
	"github.com/capacitylab/fleet-advisor/internal/telemetry"
	"github.com/capacitylab/fleet-advisor/pkg/config"
	"github.com/capacitylab/fleet-advisor/pkg/database"
	"github.com/capacitylab/fleet-advisor/pkg/database/queries"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	policyPath := flag.String("policy", "", "path to scaling policy file (overrides config)")
	statePath := flag.String("state", "", "path to resource state file (overrides config)")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	demo := flag.Bool("demo", false, "run a scripted demo pass and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if *policyPath != "" {
		cfg.App.PolicyFile = *policyPath
	}
	if *statePath != "" {
		cfg.Lifecycle.StateFile = *statePath
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	policy, err := config.LoadPolicy(cfg.App.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Name:            cfg.Database.Name,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			MaxConnections:  cfg.Database.MaxConnections,
			SSLMode:         cfg.Database.SSLMode,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			PingTimeout:     cfg.Database.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		if db == nil {
			return fmt.Errorf("migrations require database.enabled")
		}
		migrationTimeout := cfg.Database.MigrationTimeout
		if migrationTimeout <= 0 {
			migrationTimeout = 60 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
		defer cancel()

		logger.Info("Running database migrations")
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()
	publisher := events.NewPublisher(bus)

	source := buildSource(cfg)
	defer source.Close()

	store := telemetry.NewStore(cfg.Telemetry.StoreCapacity)
	fc := forecaster.New()
	engine := decision.NewEngine(*policy)

	manager := lifecycle.NewManager(lifecycle.ManagerConfig{
		StatePath:   cfg.Lifecycle.StateFile,
		Provisioner: buildProvisioner(cfg),
		Telemetry:   store,
	})

	orch := orchestrator.New(orchestrator.Config{
		Config:     cfg,
		Source:     source,
		Store:      store,
		Forecaster: fc,
		Engine:     engine,
		Manager:    manager,
		Publisher:  publisher,
	})

	if *demo {
		return runDemo(cfg, store, fc, engine, manager)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if db != nil {
		recorder := history.NewRecorder(
			bus,
			queries.NewSampleRepository(db),
			queries.NewDecisionRepository(db),
			queries.NewEventRepository(db),
		)
		recorder.Start(ctx)
	}

	orch.Start(ctx)
	defer orch.Stop()

	server := api.NewServer(cfg, orch, db, bus)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func buildSource(cfg *config.Config) telemetry.Source {
	var inner telemetry.Source
	switch cfg.Telemetry.Source {
	case "sim":
		inner = telemetry.NewSimSource(telemetry.SimSourceConfig{})
	default:
		inner = telemetry.NewSystemSource()
	}

	return telemetry.NewResilientSource(telemetry.ResilientSourceConfig{
		Source:      inner,
		MaxFailures: cfg.Telemetry.CircuitBreaker.MaxFailures,
		Timeout:     cfg.Telemetry.CircuitBreaker.Timeout,
	})
}

func buildProvisioner(cfg *config.Config) lifecycle.Provisioner {
	return lifecycle.NewSimulator(lifecycle.SimulatorConfig{
		ProvisionStepTime: cfg.Lifecycle.ProvisionStepTime,
		ShutdownStepTime:  cfg.Lifecycle.ShutdownStepTime,
		MaintainStepTime:  cfg.Lifecycle.MaintainStepTime,
	})
}
