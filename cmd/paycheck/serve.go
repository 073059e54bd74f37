package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/payslip-compliance/api"
	"github.com/warp/payslip-compliance/store/sqlite"
	"go.uber.org/zap"
)

var (
	servePort int
	serveDB   string
)

// serveCmd runs the HTTP API.
//
// Startup: open the SQLite store, load reference data, restore the last
// import, start the server. On SIGINT/SIGTERM the server stops accepting
// connections and waits up to 30s for active requests.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", `SQLite database path, ":memory:" for none (overrides database.path)`)
}

func runServe(cmd *cobra.Command, args []string) error {
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	dbPath := cfg.Database.Path
	if serveDB != "" {
		dbPath = serveDB
	}

	// Initialize store
	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	ref, err := loadReferenceData(cfg.Compliance, logger)
	if err != nil {
		return err
	}
	svc, err := newService(store, ref, cfg.Compliance, logger)
	if err != nil {
		return err
	}

	// A stored document that no longer parses has been discarded; start empty.
	if _, err := svc.Restore(cmd.Context()); err != nil {
		logger.Warn("previous import not restored", zap.Error(err))
	}

	handler := api.NewHandler(svc, ref.registry, logger)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", port),
			zap.String("database", dbPath),
			zap.Int("fiscal_year", ref.table.Year()))
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

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
