package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamclock/database"
	"teamclock/handlers"
	"teamclock/middleware"
	"teamclock/policy"
	"teamclock/services"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Migrate the schema, make sure the default admin exists and serve the
HTTP API until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDB(cmd, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := database.Close(db); cerr != nil {
				logger.Error("failed to close database", "error", cerr)
			}
		}()

		if _, err := database.SeedAdmin(ctx, db, logger, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}

		svc := services.New(services.Deps{
			DB:       db,
			Policy:   policy.NewTeamPolicy(),
			Now:      time.Now,
			Location: cfg.Location,
			Logger:   logger,
		})
		router := handlers.NewRouter(svc, handlers.RouterOptions{
			Auth:     middleware.NewAuthenticator(db, cfg.JWTSecret, cfg.JWTExpiration),
			Logger:   logger,
			Location: cfg.Location,
		})

		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("failed to shutdown server", "error", err)
			}
		}()

		logger.Info("server starting", "addr", server.Addr, "driver", cfg.DatabaseDriver, "time_zone", cfg.Location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		logger.Info("server stopped")
		return nil
	},
}
