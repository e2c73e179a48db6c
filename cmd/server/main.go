package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zange-app/zange/backend/internal/middleware"
	"github.com/zange-app/zange/backend/internal/repositories"
	"github.com/zange-app/zange/backend/internal/router"
	"github.com/zange-app/zange/backend/pkg/config"
	"github.com/zange-app/zange/backend/pkg/firebase"
	zlog "github.com/zange-app/zange/backend/pkg/logger"
)

var (
	verbose     bool
	autoMigrate bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "zange-server",
	Short: "Zange aggregate API",
	Long: `Serves the shared zange feed: posts, reactions, comments, sessions,
follows and notifications, backed by PostgreSQL.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		var err error
		logger, err = zlog.New(cfg.Env, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			if err := repositories.NewAdminRepository(db).Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("schema migrated")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo user and a sample post",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			res, err := repositories.NewAdminRepository(db).Seed()
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			logger.Info("seed inserted", zap.Uint("user_id", res.UserID), zap.Uint("zange_id", res.ZangeID))
			fmt.Fprintf(cmd.OutOrStdout(), "user_id=%d zange_id=%d\n", res.UserID, res.ZangeID)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&autoMigrate, "migrate", false, "Run schema migration before serving")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withDB(fn func(db *gorm.DB) error) error {
	db, err := config.InitPostgres(cfg, logger)
	if err != nil {
		return err
	}
	defer config.ClosePostgres(db, logger)
	return fn(db)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The server still starts without a database so /health can say why.
	db, err := config.InitPostgres(cfg, logger)
	if err != nil {
		logger.Warn("database unavailable", zap.Error(err))
	} else {
		defer config.ClosePostgres(db, logger)
		if autoMigrate {
			if err := repositories.NewAdminRepository(db).Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("schema migrated")
		}
	}

	var verifier middleware.IDTokenVerifier
	if cfg.FirebaseCredentialsPath != "" {
		client, err := firebase.NewAuthClient(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return err
		}
		verifier = client
		logger.Info("Firebase initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	config.SetupMiddleware(e, logger)
	router.SetupRoutes(e, router.Options{
		DB:           db,
		FirebaseAuth: verifier,
		Config:       cfg,
		Logger:       logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
