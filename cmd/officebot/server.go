package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/officebot/internal/api"
	"github.com/kalambet/officebot/internal/config"
	"github.com/kalambet/officebot/internal/org"
	"github.com/kalambet/officebot/internal/platform"
	"github.com/kalambet/officebot/internal/presence"
	"github.com/kalambet/officebot/internal/storage"
)

func runServer() error {
	fmt.Fprintf(os.Stderr, "officebot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Refuse a second instance: probe health, then check the PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("officebot is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("officebot is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the persistence backend.
	backend, err := openBackend(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	if closer, ok := backend.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
			}
		}()
	}
	store := storage.Open(backend)

	// Load the static manager map; a broken file disables notifications
	// rather than halting startup.
	managers, err := org.LoadManagers(cfg.Storage.ManagersFile)
	if err != nil {
		slog.Warn("loading manager map", "error", err)
		managers = org.Managers{}
	}

	client := platform.New(cfg.Platform.BaseURL, cfg.Platform.BotToken)
	reconciler := presence.NewReconciler(store, client, managers)

	handler := api.NewWebhookHandler(api.Deps{
		Reconciler:    reconciler,
		Platform:      client,
		Store:         store,
		SigningSecret: cfg.Platform.SigningSecret,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "officebot listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openBackend(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		return storage.OpenSQLite(cfg.DataDir)
	default:
		return storage.NewFileBackend(cfg.DataDir)
	}
}
