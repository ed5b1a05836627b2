// Claudia Web Server
//
// Features:
// - Workspace browsing and file editing over HTTP
// - Project management and shell command execution
// - SSE change feed driven by a filesystem watcher
// - Prometheus metrics & structured logging (zap)
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/brewer-michael/claudia-web/internal/api"
	"github.com/brewer-michael/claudia-web/internal/config"
	"github.com/brewer-michael/claudia-web/internal/events"
	"github.com/brewer-michael/claudia-web/internal/logging"
	"github.com/brewer-michael/claudia-web/internal/metrics"
	"github.com/brewer-michael/claudia-web/internal/watcher"
	"github.com/brewer-michael/claudia-web/internal/workspace"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	// Initialize structured logging
	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("Claudia Web Server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("workspace", cfg.WorkspaceDir))

	ws, err := workspace.New(workspace.Config{
		Root:        cfg.WorkspaceDir,
		MaxFileSize: cfg.MaxFileSize,
		ExecTimeout: cfg.ExecTimeout,
	})
	if err != nil {
		logging.Fatal("workspace init failed", zap.Error(err))
	}

	// Initialize SSE broadcaster
	broadcaster := events.NewBroadcaster()

	// Start the filesystem watcher feeding the broadcaster. A broken
	// watcher degrades the server to serving without change events.
	if cfg.Watch {
		w, err := watcher.New(ws.Root(), broadcaster, 0)
		if err != nil {
			logging.Warn("file watcher unavailable, change events disabled", zap.Error(err))
			cfg.Watch = false
		} else {
			w.Start()
			defer w.Close()
			logging.Info("file watcher started", zap.String("root", ws.Root()))
		}
	}

	// Create API server
	srv := api.NewServer(ws, broadcaster, cfg)

	// Start metrics server; an empty address disables it
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metrics.Handler(),
		}
		go func() {
			logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	// Start HTTP server
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		httpServer.Close()
		if metricsServer != nil {
			metricsServer.Close()
		}
	}()

	logging.Info("server listening", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
}
