package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pevans/galnetdb/api"
	"github.com/pevans/galnetdb/config"
	"github.com/pevans/galnetdb/store"
)

const (
	defaultAPIAddr  = "localhost:8080"
	shutdownTimeout = 10 * time.Second
)

func (a *app) serveCommand() *cobra.Command {
	base := a.baseRunConfig()
	addrDefault := defaultAPIAddr
	if a.file != nil && a.file.API.Addr != "" {
		addrDefault = a.file.API.Addr
	}

	var (
		dbFlags      storeFlags
		addr         string
		settingsPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the articles table over HTTP",
		Long: `serve connects to the table recorded in the settings file by the last
build (database flags override it) and answers read-only queries under
/api/v1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.LoadRunConfig(settingsPath)
			if err != nil {
				return err
			}
			if run == nil {
				run = config.DefaultRunConfig()
				dbFlags.apply(run)
			} else {
				dbFlags.applyChanged(cmd, run)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.runServer(ctx, run, addr, settingsPath)
		},
	}

	dbFlags.register(cmd, base)

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", getEnv("GALNETDB_API_ADDR", addrDefault),
		"Listen address (GALNETDB_API_ADDR)")
	flags.StringVar(&settingsPath, "settings", getEnv("GALNETDB_SETTINGS", config.DefaultSettingsPath),
		"Settings file of the last build (GALNETDB_SETTINGS)")

	return cmd
}

// runServer serves the API until ctx is cancelled.
func (a *app) runServer(ctx context.Context, run *config.RunConfig, addr, settingsPath string) error {
	st, err := store.Open(ctx, run.StoreOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	if !a.logDev {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(st, settingsPath, a.logger).SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting API server",
			zap.String("addr", addr),
			zap.String("table", st.Table()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
