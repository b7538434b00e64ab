package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/vitalsync/internal/config"
	"github.com/claude/vitalsync/internal/ingest"
	vsmcp "github.com/claude/vitalsync/internal/mcp"
	"github.com/claude/vitalsync/internal/observability"
	"github.com/claude/vitalsync/internal/query"
	"github.com/claude/vitalsync/internal/server"
	"github.com/claude/vitalsync/internal/storage"
	"github.com/claude/vitalsync/internal/storage/sqlite"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// store is what both database backends provide.
type store interface {
	ingest.MetricStore
	ingest.WorkoutStore
	query.Reader
	Close()
}

var (
	_ store = (*storage.DB)(nil)
	_ store = (*sqlite.Store)(nil)
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (empty for environment only)")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := cfg.Log.NewLogger(os.Stdout)
	log.Info("VitalSync starting", "version", Version, "driver", cfg.Database.Driver)

	ctx := context.Background()
	db, err := openStore(ctx, cfg.Database, *migrateOnly, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	if db == nil {
		log.Info("migrate-only: exiting")
		return
	}
	defer db.Close()

	observability.Init()

	ingester := ingest.New(db, db, log)
	queries := query.New(db)

	srv := server.New(ingester, queries, cfg.Server.MaxBodyBytes(), log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(vsmcp.New(queries, Version, log)))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openStore opens the configured backend. With migrateOnly it applies
// PostgreSQL migrations and returns a nil store.
func openStore(ctx context.Context, cfg config.DatabaseConfig, migrateOnly bool, log *slog.Logger) (store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if migrateOnly {
			return nil, nil
		}
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store opened", "path", cfg.Path)
		return s, nil
	default:
		dsn := cfg.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
		if migrateOnly {
			return nil, nil
		}
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("database connected")
		return db, nil
	}
}
