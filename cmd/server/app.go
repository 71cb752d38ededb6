package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mnemo-app/mnemo-api/internal/config"
	"github.com/mnemo-app/mnemo-api/internal/domain/srs"
	"github.com/mnemo-app/mnemo-api/internal/platform/postgres"
	"github.com/mnemo-app/mnemo-api/internal/service/auth"
	"github.com/mnemo-app/mnemo-api/internal/service/review"
	"github.com/mnemo-app/mnemo-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore   store.UserStore
	cardStore   store.CardStore
	memoryStore store.CardMemoryStore
	logStore    store.ReviewLogStore

	// Service interfaces
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	srsService       srs.Service
	reviewService    review.Service
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, logger)
	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.memoryStore = postgres.NewPostgresCardMemoryStore(db, logger)
	app.logStore = postgres.NewPostgresReviewLogStore(db, logger)

	app.srsService, err = srs.NewService(srsParams(cfg.SRS))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling engine: %w", err)
	}
	logger.Info("Scheduling engine initialized",
		"desired_retention", cfg.SRS.DesiredRetention,
		"min_interval_days", cfg.SRS.MinIntervalDays,
		"max_interval_days", cfg.SRS.MaxIntervalDays)

	app.reviewService = review.NewService(
		app.memoryStore,
		app.logStore,
		app.cardStore,
		app.srsService,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// srsParams translates the validated configuration into engine parameters.
func srsParams(cfg config.SRSConfig) srs.Params {
	return srs.Params{
		DesiredRetention: cfg.DesiredRetention,
		MinInterval:      cfg.MinIntervalDays,
		MaxInterval:      cfg.MaxIntervalDays,
		LearningSteps:    minuteSteps(cfg.LearningStepsMinutes),
		RelearningSteps:  minuteSteps(cfg.RelearningStepsMinutes),
		FuzzFactor:       cfg.FuzzFactor,
	}
}

func minuteSteps(minutes []int) []time.Duration {
	if minutes == nil {
		return nil
	}
	steps := make([]time.Duration, len(minutes))
	for i, m := range minutes {
		steps[i] = time.Duration(m) * time.Minute
	}
	return steps
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
