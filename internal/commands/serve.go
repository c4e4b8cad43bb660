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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/staffing-engine/api"
	"github.com/warp/staffing-engine/internal/config"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(app *config.Application) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Starts the HTTP API and the month-end snapshot scheduler.

On SIGINT/SIGTERM the server stops accepting connections, waits up to 30s
for active requests, stops the scheduler and closes the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				app.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, app *config.Application) error {
	e, err := openEngine(app)
	if err != nil {
		return err
	}
	defer e.Close()

	scheduler := api.NewSnapshotScheduler(e.forecasts)
	scheduler.Enabled = app.Snapshots.Enabled
	if app.Snapshots.CheckInterval > 0 {
		scheduler.CheckInterval = app.Snapshots.CheckInterval
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := api.NewRouter(e.handler(), api.RouterOptions{AllowedOrigins: app.Server.AllowedOrigins})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("server starting on http://localhost:%d (database %s)", app.Server.Port, app.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
