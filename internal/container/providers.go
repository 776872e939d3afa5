package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/content-workflow/internal/application/dispatcher"
	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/application/service"
	"github.com/garyjia/content-workflow/internal/application/workflow"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	"github.com/garyjia/content-workflow/internal/domain/event"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
	"github.com/garyjia/content-workflow/internal/infrastructure/definition"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/content-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/content-workflow/internal/infrastructure/storage"
	httpapi "github.com/garyjia/content-workflow/internal/interfaces/http"
	"github.com/garyjia/content-workflow/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// WorkflowBundle holds the workflow configuration and execution components.
type WorkflowBundle struct {
	Catalog  *workflow.Catalog
	Registry *workflow.Registry
	Graph    *workflow.Graph
	Ledger   *workflow.Ledger
	Engine   *workflow.Engine[domainwf.ContentFlow]
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		URL:             cfg.URL,
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(conn, logger).Migrate()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database migrations checked", zap.Int("applied", applied))

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		State:      repository.NewStateRepository(sqlDB, logger),
		Transition: repository.NewTransitionRepository(sqlDB, logger),
		Approval:   repository.NewApprovalRepository(sqlDB, logger),
		History:    repository.NewHistoryRepository(sqlDB, logger),
		Content:    repository.NewContentRepository(sqlDB, logger),
	}, nil
}

// ProvideStorage creates the export file storage, creating its directory if needed.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil || cfg.ExportDir == "" {
		return nil, fmt.Errorf("storage export directory is required")
	}
	return storage.NewLocalFileStorage(cfg.ExportDir, logger), nil
}

// ProvideDispatcher creates the event dispatcher and subscribes the notification log handler.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dispatcherLogger := &zapLoggerAdapter{logger: logger.Named("dispatcher")}
	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(dispatcherLogger))
	disp.Subscribe("notification_log", dispatcher.NotificationLogHandler(dispatcherLogger), event.TypeTransitionCompleted)

	return disp, nil
}

// WorkflowDeps holds dependencies required for creating the workflow components.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Config     *WorkflowConfig
	Logger     *zap.Logger
}

// ProvideWorkflow creates the catalog, registry, graph, ledger and content engine.
func ProvideWorkflow(deps *WorkflowDeps) (*WorkflowBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("workflow config is required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger.Named("workflow")}

	catalog := workflow.NewCatalog(deps.Repos.State, deps.Repos.Transition,
		workflow.WithCacheExpiry(deps.Config.CacheExpiry))
	ledger := workflow.NewLedger(deps.Repos.Approval)

	opts := []workflow.EngineOption{workflow.WithLogger(logger)}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}

	return &WorkflowBundle{
		Catalog:  catalog,
		Registry: workflow.NewRegistry(deps.Repos.State, deps.TxManager, catalog, logger),
		Graph:    workflow.NewGraph(deps.Repos.State, deps.Repos.Transition, deps.TxManager, catalog, logger),
		Ledger:   ledger,
		Engine: workflow.NewEngine[domainwf.ContentFlow](
			deps.Repos.Content,
			deps.Repos.History,
			deps.TxManager,
			catalog,
			ledger,
			opts...,
		),
	}, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos    *RepositoryBundle
	Workflow *WorkflowBundle
	Storage  port.FileStorage
	Logger   *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Workflow == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("file storage is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger.Named("service")}

	return &ServiceBundle{
		Content:       service.NewContentService(deps.Repos.Content, deps.Workflow.Registry, serviceLogger),
		HistoryExport: service.NewHistoryExportService(deps.Workflow.Engine, deps.Storage, serviceLogger),
	}, nil
}

// ProvideSeeder creates the workflow definition seeder.
func ProvideSeeder(wf *WorkflowBundle, logger *zap.Logger) *definition.Seeder {
	return definition.NewSeeder(wf.Registry, wf.Graph, logger.Named("definition"))
}

// SeedDefinitions applies the configured definitions file, or the built-in content
// workflow when no file is set and the content workflow has no states yet.
func SeedDefinitions(ctx context.Context, cfg *WorkflowConfig, wf *WorkflowBundle, seeder *definition.Seeder, logger *zap.Logger) error {
	var doc *definition.Document

	switch {
	case cfg.DefinitionsFile != "":
		loaded, err := definition.LoadFile(cfg.DefinitionsFile)
		if err != nil {
			return err
		}
		doc = loaded
	case cfg.SeedDefault:
		states, err := wf.Registry.GetStates(ctx, entity.WorkflowTypeContent)
		if err != nil {
			return fmt.Errorf("failed to inspect content workflow: %w", err)
		}
		if len(states) > 0 {
			return nil
		}
		doc = definition.Default()
	default:
		return nil
	}

	res, err := seeder.Apply(ctx, doc)
	if err != nil {
		return err
	}

	logger.Info("Workflow definitions seeded",
		zap.Int("states_created", res.StatesCreated),
		zap.Int("states_skipped", res.StatesSkipped),
		zap.Int("transitions_created", res.TransitionsCreated),
		zap.Int("transitions_skipped", res.TransitionsSkipped))
	return nil
}

// ProvideHTTPServer creates the HTTP server over the workflow and services.
func ProvideHTTPServer(cfg *ServerConfig, wf *WorkflowBundle, services *ServiceBundle, logger *zap.Logger) *httpapi.Server {
	httpLogger := &zapLoggerAdapter{logger: logger.Named("http")}

	handlers := httpapi.NewHandlers(
		wf.Registry,
		wf.Graph,
		wf.Engine,
		services.Content,
		services.HistoryExport,
		httpLogger,
	)

	return httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, handlers, httpLogger)
}
