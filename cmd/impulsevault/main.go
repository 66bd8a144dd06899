// Command impulsevault runs the purchase-interception engine.
//
// Usage:
//
//	impulsevault -serve :8420                      # relay HTTP API + reset scheduler
//	impulsevault -mcp                              # relay tools over MCP on stdio
//	impulsevault -probe https://www.amazon.com/... # inspect a live product page
//	impulsevault -config impulsevault.yaml -serve :8420
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/impulsevault/engine/engine"
	"github.com/impulsevault/engine/marketplace"
	"github.com/impulsevault/engine/probe"
	"github.com/impulsevault/engine/recorder"
	"github.com/impulsevault/engine/relay"
	"github.com/impulsevault/engine/scheduler"
	"github.com/impulsevault/engine/store"
)

func main() {
	configPath := flag.String("config", "", "path to the engine config YAML (built-ins used when empty)")
	serveAddr := flag.String("serve", "", "address for the relay HTTP API (e.g. :8420)")
	mcpMode := flag.Bool("mcp", false, "serve the relay tools over MCP on stdio")
	probeURL := flag.String("probe", "", "inspect a live product page and exit")
	dbPath := flag.String("db", "impulsevault.db", "path to the SQLite store")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *serveAddr, *probeURL, *dbPath, *mcpMode); err != nil {
		logger.Error("impulsevault: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, serveAddr, probeURL, dbPath string, mcpMode bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Info("impulsevault: marketplaces loaded", "count", cfg.Registry.Len())

	if probeURL != "" {
		return runProbe(ctx, logger, probeURL, cfg.Registry)
	}
	if mcpMode {
		return runMCP(ctx, logger, dbPath)
	}
	if serveAddr != "" {
		return runServe(ctx, logger, serveAddr, dbPath)
	}

	fmt.Fprintln(os.Stderr, "usage: impulsevault -serve <addr> | -mcp | -probe <url> [-config <file>] [-db <file>]")
	os.Exit(1)
	return nil
}

func loadConfig(configPath string) (engine.Config, error) {
	if configPath == "" {
		return engine.Config{Registry: marketplace.NewRegistry(marketplace.Builtin())}, nil
	}
	return engine.LoadFile(configPath)
}

func runProbe(ctx context.Context, logger *slog.Logger, pageURL string, registry *marketplace.Registry) error {
	p := probe.New(probe.Config{Stealth: true, Logger: logger})
	if err := p.Start(); err != nil {
		return err
	}
	defer p.Close()

	report, err := p.Inspect(ctx, pageURL, registry)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func openRelay(ctx context.Context, logger *slog.Logger, dbPath string) (*relay.Relay, *store.SQLite, error) {
	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Seed(ctx, st); err != nil {
		st.Close()
		return nil, nil, err
	}

	rec := recorder.New(st, logger)
	rel := relay.New(rec, st, logger)

	sched := scheduler.New(st, logger)
	go sched.Run(ctx)

	return rel, st, nil
}

func runServe(ctx context.Context, logger *slog.Logger, addr, dbPath string) error {
	rel, st, err := openRelay(ctx, logger, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           rel.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("impulsevault: relay listening", "addr", addr, "db", dbPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func runMCP(ctx context.Context, logger *slog.Logger, dbPath string) error {
	rel, st, err := openRelay(ctx, logger, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "impulsevault",
		Version: "1.0.0",
	}, nil)
	rel.RegisterMCP(srv)

	logger.Info("impulsevault: mcp serving on stdio", "db", dbPath)
	return srv.Run(ctx, &mcp.IOTransport{Reader: os.Stdin, Writer: os.Stdout})
}
