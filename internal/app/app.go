package app

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/handlers"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/metrics"
	"github.com/ternarybob/contextlog/internal/queue"
	"github.com/ternarybob/contextlog/internal/services/cache"
	"github.com/ternarybob/contextlog/internal/services/capture"
	"github.com/ternarybob/contextlog/internal/services/events"
	"github.com/ternarybob/contextlog/internal/services/llm"
	"github.com/ternarybob/contextlog/internal/services/mcp"
	"github.com/ternarybob/contextlog/internal/services/report"
	"github.com/ternarybob/contextlog/internal/services/rules"
	"github.com/ternarybob/contextlog/internal/services/scheduler"
	"github.com/ternarybob/contextlog/internal/services/transform"
	"github.com/ternarybob/contextlog/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	Metrics        *metrics.Metrics
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService

	// AI
	Providers  *llm.ProviderFactory
	Summarizer *llm.Service

	// Pipeline
	RuleService      *rules.Service
	CacheService     *cache.Service
	TransformService *transform.Service
	CaptureService   *capture.Service
	ReportService    *report.Service
	Processor        *queue.Processor
	Worker           *queue.Worker

	// MCP tool server (shared by /mcp and the stdio binary)
	MCPServer *server.MCPServer

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	WSHandler       *handlers.WebSocketHandler
	CaptureHandler  *handlers.CaptureHandler
	ResultHandler   *handlers.ResultHandler
	RuleHandler     *handlers.RuleHandler
	SettingsHandler *handlers.SettingsHandler
	QueueHandler    *handlers.QueueHandler
	DataHandler     *handlers.DataHandler
	MCPHandler      *handlers.MCPHandler
}

// New initializes the application with all dependencies and starts the
// queue worker timer
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to subscribe event logger")
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.SchedulerService.Start(cfg.QueueInterval()); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Str("interval", cfg.QueueInterval().String()).
		Int("max_attempts", cfg.Queue.MaxAttempts).
		Str("ai_provider", string(app.Providers.ActiveProvider(context.Background()))).
		Msg("Application initialization complete")

	return app, nil
}

// NewReadOnly opens storage and builds only what the MCP stdio server needs.
// No scheduler is started.
func NewReadOnly(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.RuleService = rules.NewService(app.StorageManager.RuleStorage(), nil, app.Logger)
	app.MCPServer = mcp.NewServer(mcp.Deps{
		Results: app.StorageManager.ResultStorage(),
		Jobs:    app.StorageManager.JobStorage(),
		Rules:   app.RuleService,
	}, app.Logger)

	return app, nil
}

// initDatabase opens the Badger store and seeds extraction rules from files
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	if a.Config.Rules.Dir != "" {
		count, err := a.StorageManager.LoadRulesFromFiles(context.Background(), a.Config.Rules.Dir)
		if err != nil {
			// Seed files are optional
			a.Logger.Warn().Err(err).Str("dir", a.Config.Rules.Dir).Msg("Failed to load extraction rules from files")
		} else if count > 0 {
			a.Logger.Info().Int("count", count).Str("dir", a.Config.Rules.Dir).Msg("Extraction rules loaded from files")
		}
	}

	return nil
}

// initServices builds the pipeline in dependency order:
// AI providers -> summarizer -> rules/cache -> capture/report -> processor -> worker -> scheduler
func (a *App) initServices() error {
	kv := a.StorageManager.KeyValueStorage()

	a.Providers = llm.NewProviderFactory(a.Config, kv, a.Logger)
	a.Summarizer = llm.NewService(a.Providers, kv, &a.Config.LLM, a.Logger)

	a.RuleService = rules.NewService(a.StorageManager.RuleStorage(), a.Summarizer, a.Logger)
	a.CacheService = cache.NewService(a.StorageManager.CacheStorage(), a.Logger)
	a.TransformService = transform.NewService(a.Logger)
	a.CaptureService = capture.NewService(a.StorageManager.JobStorage(), kv, a.TransformService, a.EventService, a.Logger)
	a.ReportService = report.NewService(a.StorageManager.ResultStorage(), a.Summarizer, a.Logger)

	a.Processor = queue.NewProcessor(
		a.StorageManager.JobStorage(),
		a.StorageManager.ResultStorage(),
		a.CacheService,
		a.RuleService,
		a.Summarizer,
		a.EventService,
		a.Metrics,
		a.Config.Queue.MaxAttempts,
		a.Logger,
	)
	a.Worker = queue.NewWorker(a.StorageManager.JobStorage(), a.Processor, a.EventService, a.Metrics, a.Logger)
	a.SchedulerService = scheduler.NewService(a.Worker, a.Logger)

	a.MCPServer = mcp.NewServer(mcp.Deps{
		Results: a.StorageManager.ResultStorage(),
		Jobs:    a.StorageManager.JobStorage(),
		Rules:   a.RuleService,
		Capture: a.CaptureService,
	}, a.Logger)

	a.Logger.Debug().Msg("Pipeline services initialized")
	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, &a.Config.WebSocket)
	a.CaptureHandler = handlers.NewCaptureHandler(a.CaptureService, a.Logger)
	a.ResultHandler = handlers.NewResultHandler(a.StorageManager.ResultStorage(), a.ReportService, a.Logger)
	a.RuleHandler = handlers.NewRuleHandler(a.RuleService, a.Logger)
	a.SettingsHandler = handlers.NewSettingsHandler(a.StorageManager.KeyValueStorage(), a.Summarizer, a.Providers, a.Logger)
	a.QueueHandler = handlers.NewQueueHandler(a.StorageManager.JobStorage(), a.SchedulerService, a.Worker, a.Logger)
	a.DataHandler = handlers.NewDataHandler(a.StorageManager, a.Logger)
	a.MCPHandler = handlers.NewMCPHandler(a.MCPServer, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close stops the worker timer and releases resources in reverse order
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.Providers != nil {
		if err := a.Providers.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close AI providers")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
