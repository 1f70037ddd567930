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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/elodex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/elodex/internal/usecase/health"
	"github.com/kailas-cloud/elodex/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port        int
		maxPageSize int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP search API",
		Long: `Start the HTTP API that exposes search, count and mapping endpoints for
the configured backend. The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("port") {
				a.cfg.HTTP.Port = port
			}
			return serve(ctx, a, maxPageSize)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides http.port)")
	cmd.Flags().IntVar(&maxPageSize, "max-page-size", 100, "Largest page a query-parameter search may request")
	return cmd
}

func serve(ctx context.Context, a *app, maxPageSize int) error {
	var store healthuc.Pinger
	if a.cfg.Database.DSN != "" {
		gdb, err := a.openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(gdb)
		sqlDB, err := gdb.DB()
		if err != nil {
			return fmt.Errorf("database handle: %w", err)
		}
		store = healthuc.PingFunc(sqlDB.PingContext)
	}

	health := healthuc.New(a.transport, store)
	server := chiTransport.NewServer(a.transport, a.indexing(), health, maxPageSize)
	router := chiTransport.NewRouter(server, a.cfg.Auth.APIKeys, a.logger)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	a.logger.Info("Starting elodex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.String("addr", addr),
		zap.String("backend", a.cfg.Backend.Driver),
		zap.String("default_index", a.cfg.Index.DefaultIndex),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
