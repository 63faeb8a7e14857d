package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhohoai/study-engine/internal/config"
	"github.com/nhohoai/study-engine/internal/platform/database"
	"github.com/nhohoai/study-engine/internal/platform/logger"
	"github.com/nhohoai/study-engine/internal/service/auth"
)

// errNoDatabase is returned by migration commands when history is kept in memory.
var errNoDatabase = errors.New("no database configured: set STUDY_DATABASE_DRIVER and STUDY_DATABASE_URL")

// loadConfig is replaced in tests.
var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "study-engine",
		Short: "Vocabulary study session engine",
		Long: `study-engine runs multiple-choice vocabulary study sessions over decks
owned by the deck service, and records completed sessions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the session history schema",
	}

	withDB := func(run func(m migrator, ctx context.Context) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "" {
				return errNoDatabase
			}
			db, err := database.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					log.Error("failed to close database", slog.String("error", err.Error()))
				}
			}()
			return run(migrator{db: db, driver: cfg.Database.Driver, logger: log, out: cmd.OutOrStdout()}, cmd.Context())
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  withDB(migrator.up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE:  withDB(migrator.down),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the status of every migration",
			Args:  cobra.NoArgs,
			RunE:  withDB(migrator.status),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE:  withDB(migrator.version),
		},
	)
	return cmd
}

// newTokenCmd signs a bearer token with the configured secret. Tokens are
// normally issued by the deck service; this is for local development.
func newTokenCmd() *cobra.Command {
	var (
		userID   string
		lifetime time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			svc, err := auth.NewJWTServiceWithLifetime(cfg.Auth, lifetime, nil)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(cmd.Context(), userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id carried in the token subject")
	cmd.Flags().DurationVar(&lifetime, "ttl", auth.DefaultTokenLifetime, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// setup loads configuration and installs the default logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver))
	return cfg, log, nil
}
