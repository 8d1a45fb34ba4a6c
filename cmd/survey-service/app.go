package main

import (
	"fmt"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/config"
	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/survey"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/SAP-F-2025/survey-service/internal/validator"
	"github.com/SAP-F-2025/survey-service/pkg"
	"go.uber.org/zap"
)

// app holds what every command shares. Heavier dependencies are opened on demand.
type app struct {
	cfg       *config.Config
	logger    utils.Logger
	validator *validator.Validator
	store     *survey.Store
	loader    *survey.Loader

	repo      repositories.Repository
	publisher events.EventPublisher
	zap       *zap.Logger
	local     cache.CacheService

	closers []func() error
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Environment)
	if verbose {
		logger = utils.NewDevelopmentLogger()
	}
	if surveyDir != "" {
		cfg.SurveyDir = surveyDir
	}

	v := validator.New()
	a := &app{
		cfg:       cfg,
		logger:    logger,
		validator: v,
		store:     survey.NewStore(),
		loader:    survey.NewLoader(cfg.SurveyDir, v),
	}

	loaded, err := a.loader.LoadAll(a.store)
	if err != nil {
		if loaded == 0 {
			return nil, err
		}
		// keep serving the surveys that did load
		logger.Warn("Some survey definitions failed to load", "error", err)
	}
	logger.Info("Survey definitions loaded", "count", loaded, "dir", cfg.SurveyDir)
	return a, nil
}

// openDatabase connects to postgres and migrates the schema
func (a *app) openDatabase() error {
	db, err := pkg.InitDatabase(a.cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)

	a.repo = postgres.NewRepository(db)
	if err := a.repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (a *app) openPublisher() {
	publisher, err := a.cfg.Events.CreateEventPublisher(utils.ToSlogLogger(a.logger))
	if err != nil {
		a.logger.Error("Failed to create event publisher, falling back to mock", "error", err)
		publisher = events.NewMockEventPublisher(utils.ToSlogLogger(a.logger))
	}
	a.publisher = publisher
	a.closers = append(a.closers, publisher.Close)
}

func (a *app) openLocalCache() error {
	zl, err := pkg.NewZapLogger(a.cfg)
	if err != nil {
		return err
	}
	a.zap = zl
	a.closers = append(a.closers, func() error {
		_ = zl.Sync()
		return nil
	})

	local, err := pkg.NewLocalCache(a.cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to open local progress cache: %w", err)
	}
	a.local = local
	a.closers = append(a.closers, local.Close)
	return nil
}

func (a *app) notifier() services.NotificationEventService {
	if a.publisher == nil {
		a.publisher = events.NewMockEventPublisher(utils.ToSlogLogger(a.logger))
	}
	return services.NewNotificationEventService(a.publisher, a.logger)
}

func (a *app) importExportService() services.ImportExportService {
	return services.NewImportExportService(a.repo, a.store, a.notifier(), a.logger, a.validator)
}

// close releases resources in reverse order of opening
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to release resource", "error", err)
		}
	}
}
