package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aarnt28/inventory-app/internal/api"
	"github.com/aarnt28/inventory-app/internal/config"
	"github.com/aarnt28/inventory-app/internal/db"
	"github.com/aarnt28/inventory-app/internal/uploads"
	"github.com/aarnt28/inventory-app/internal/web"
)

func main() {
	fs := flag.NewFlagSet("inventory", flag.ContinueOnError)

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: inventory [flags]

Flags:
  -a, -addr <host:port>   listen address (default: $ADDR or :8000)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment (a .env file in the working directory is read first):
  DATA_DIR     data directory (default: ./data)
  DB_PATH      SQLite database path (default: $DATA_DIR/inventory.db)
  UPLOAD_DIR   uploaded images (default: $DATA_DIR/uploads)
  ADDR         listen address
  LOG_LEVEL    debug, info, warn or error (default: info)
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	logger, closeLog, err := newLogger(cfg.LogLevel, logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg); err != nil {
		zap.L().Error("fatal", zap.Error(err))
		logger.Sync()
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	added, err := db.EnsureSchema(database)
	if err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	if len(added) > 0 {
		zap.L().Info("added missing item columns", zap.Strings("columns", added))
	}
	zap.L().Info("database ready", zap.String("path", cfg.DBPath))

	files, err := uploads.New(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("preparing upload directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := api.NewMetrics(reg)

	apiRouter := api.NewRouter(database, files)
	webRouter, err := web.NewRouter(database, files)
	if err != nil {
		return fmt.Errorf("setting up admin router: %w", err)
	}

	// API, uploads and health live on the API router; the admin UI and
	// metrics have their own prefixes.
	mux := http.NewServeMux()
	mux.Handle("/", apiRouter)
	mux.Handle("/admin", webRouter)
	mux.Handle("/admin/", webRouter)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(metrics.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server started", zap.String("addr", cfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		zap.L().Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server forced to shutdown", zap.Error(err))
		}
	}

	zap.L().Info("server stopped, closing database")
	return nil
}
