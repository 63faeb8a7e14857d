package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhohoai/study-engine/internal/config"
	"github.com/nhohoai/study-engine/internal/events"
	"github.com/nhohoai/study-engine/internal/platform/cron"
	"github.com/nhohoai/study-engine/internal/platform/database"
	"github.com/nhohoai/study-engine/internal/platform/memstore"
	"github.com/nhohoai/study-engine/internal/platform/studyapi"
	"github.com/nhohoai/study-engine/internal/service/auth"
	"github.com/nhohoai/study-engine/internal/service/session"
	"github.com/nhohoai/study-engine/internal/store"
	"github.com/nhohoai/study-engine/internal/study"
	"github.com/nhohoai/study-engine/internal/task"
)

const (
	// drainTimeout bounds how long queued telemetry may run during shutdown.
	drainTimeout = 5 * time.Second
	// revocationRetention is how long a sign-out keeps rejecting older tokens.
	revocationRetention = 24 * time.Hour
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil when history is kept in memory.
	db      *sqlx.DB
	history store.SessionHistoryStore

	revocations *auth.Revocations
	jwtService  auth.JWTService
	client      *studyapi.Client

	taskQueue  *task.TaskQueue
	workerPool *task.WorkerPool
	dispatcher *task.Dispatcher

	eventEmitter *events.InMemoryEventEmitter
	sessions     *session.Manager
	scheduler    *cron.Scheduler
}

// newApplication creates a new application instance with all dependencies
// initialized and background workers started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}
	ready := false
	defer func() {
		if !ready {
			app.cleanup()
		}
	}()

	if err := app.setupHistory(ctx); err != nil {
		return nil, err
	}

	var err error
	app.revocations = auth.NewRevocations(revocationRetention)
	app.jwtService, err = auth.NewJWTService(cfg.Auth, app.revocations)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.client, err = studyapi.NewClient(cfg.Collaborator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize collaborator client: %w", err)
	}

	app.taskQueue = task.NewTaskQueue(cfg.Telemetry.QueueSize, logger)
	app.workerPool = task.NewWorkerPool(app.taskQueue, task.WorkerPoolConfig{
		WorkerCount: cfg.Telemetry.Workers,
		TaskTimeout: cfg.Telemetry.Timeout,
	}, logger)
	app.workerPool.Start()
	app.dispatcher = task.NewDispatcher(app.taskQueue, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(session.NewHistoryRecorder(app.history, logger))

	client := app.client
	app.sessions, err = session.NewManager(session.Options{
		Params:     session.ParamsFromConfig(cfg.Study, cfg.Collaborator),
		IdleTTL:    cfg.Sessions.IdleTTL,
		Backends:   func(token string) study.Backend { return client.ForToken(token) },
		Dispatcher: app.dispatcher,
		Emitter:    app.eventEmitter,
		History:    app.history,
		Revoker:    app.revocations,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	if err := app.setupScheduler(); err != nil {
		return nil, err
	}

	logger.Info("application initialized",
		slog.String("collaborator", cfg.Collaborator.BaseURL),
		slog.Int("telemetry_workers", cfg.Telemetry.Workers),
		slog.Bool("persistent_history", app.db != nil))
	ready = true
	return app, nil
}

// setupHistory opens and migrates the configured database, or falls back to
// in-memory history when none is configured.
func (app *application) setupHistory(ctx context.Context) error {
	if app.config.Database.Driver == "" {
		app.logger.Warn("no database configured, session history is kept in memory")
		app.history = memstore.NewHistoryStore()
		return nil
	}

	db, err := database.Open(ctx, app.config.Database, app.logger)
	if err != nil {
		return err
	}
	app.db = db
	if err := database.Migrate(ctx, db, app.config.Database.Driver, app.logger); err != nil {
		return err
	}
	app.history = database.NewHistoryStore(db)
	return nil
}

// setupScheduler registers the maintenance jobs and starts the scheduler.
func (app *application) setupScheduler() error {
	app.scheduler = cron.New(app.logger)
	sc := app.config.Sessions

	if err := app.scheduler.Every("sweep_idle_sessions", sc.SweepInterval, func() error {
		if n := app.sessions.SweepIdle(); n > 0 {
			app.logger.Info("swept idle study sessions", slog.Int("count", n))
		}
		return nil
	}); err != nil {
		return err
	}

	if err := app.scheduler.Every("prune_revocations", sc.SweepInterval, func() error {
		app.revocations.Prune()
		return nil
	}); err != nil {
		return err
	}

	if sc.HistoryRetention > 0 {
		if err := app.scheduler.Every("expire_history", time.Hour, func() error {
			return app.expireHistory(context.Background())
		}); err != nil {
			return err
		}
	}

	app.scheduler.Start()
	return nil
}

// expireHistory deletes session records older than the retention period.
func (app *application) expireHistory(ctx context.Context) error {
	cutoff := time.Now().Add(-app.config.Sessions.HistoryRetention)
	n, err := app.history.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to expire session history: %w", err)
	}
	if n > 0 {
		app.logger.Info("expired session history",
			slog.Int64("deleted", n),
			slog.Time("cutoff", cutoff))
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. Live sessions
// are closed first so no new telemetry is queued, then queued telemetry is
// drained.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.sessions != nil {
		app.sessions.Close()
	}
	if app.workerPool != nil {
		app.taskQueue.Close()
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		app.workerPool.Drain(ctx)
		cancel()
		if app.dispatcher != nil {
			if dropped := app.dispatcher.Dropped(); dropped > 0 {
				app.logger.Warn("telemetry jobs were dropped", slog.Int64("count", dropped))
			}
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
