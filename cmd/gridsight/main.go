// Command gridsight scans dynamically rendered web pages for empty table
// and grid cells. One-shot mode scans a URL or a saved HTML dump and prints
// the report; daemon mode serves the HTTP API, optionally the MCP stdio
// surface, and runs retention pruning on a ticker.
package main

import (
	"context"
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

	"github.com/gridsight/gridsight/idgen"
	"github.com/gridsight/gridsight/kit"
	"github.com/gridsight/gridsight/scan"
	"github.com/gridsight/gridsight/store"
)

var requestID = idgen.Prefixed("req_", idgen.NanoID(12))

func main() {
	var (
		urlFlag    = flag.String("url", "", "scan this URL once and print the report")
		fileFlag   = flag.String("file", "", "scan a saved HTML dump instead of a live page")
		configFlag = flag.String("config", env("GRIDSIGHT_CONFIG", ""), "YAML config file")
		dumpFlag   = flag.Bool("dump", false, "with -url: capture full structure contents instead of scanning")
		pruneFlag  = flag.Bool("prune", false, "run retention pruning once and exit")
		logLevel   = flag.String("log-level", env("LOG_LEVEL", "info"), "debug | info | warn | error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Error("store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if *pruneFlag {
		n, err := st.Prune(ctx, cfg.Storage.Retention.MaxAge, cfg.Storage.Retention.KeepLast)
		if err != nil {
			logger.Error("prune", "error", err)
			os.Exit(1)
		}
		logger.Info("prune completed", "deleted", n)
		return
	}

	var acq scan.Acquirer
	target := *urlFlag
	if *fileFlag != "" {
		acq = scan.FileAcquirer{}
		target = *fileFlag
	} else {
		acq = scan.NewBrowserAcquirer(cfg.Browser, logger)
	}
	defer acq.Close()

	a := newApp(cfg, scan.NewScanner(acq, logger), st, logger)

	if target != "" {
		oneShot(ctx, a, target, *dumpFlag, logger)
		return
	}

	runDaemon(ctx, a, cfg, logger)
}

func oneShot(ctx context.Context, a *app, target string, dump bool, logger *slog.Logger) {
	ctx = kit.WithTransport(ctx, "cli")
	ctx = kit.WithRequestID(ctx, requestID())

	if dump {
		rec, err := a.runDump(ctx, target)
		if err != nil {
			logger.Error("dump", "error", err)
			os.Exit(1)
		}
		logger.Info("dump saved", "id", rec.ID, "structures", len(rec.Structures))
		return
	}

	res, err := a.runScan(ctx, target)
	if err != nil {
		logger.Error("scan", "error", err)
		os.Exit(1)
	}
	fmt.Println(res.Report)
	if res.Exported != "" {
		logger.Info("artifact exported", "path", res.Exported)
	}
}

func runDaemon(ctx context.Context, a *app, cfg *scan.Config, logger *slog.Logger) {
	// Retention ticker.
	go func() {
		ticker := time.NewTicker(cfg.Storage.Retention.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := a.store.Prune(ctx, cfg.Storage.Retention.MaxAge, cfg.Storage.Retention.KeepLast)
				if err != nil {
					logger.Error("prune", "error", err)
					continue
				}
				logger.Info("prune completed", "deleted", n)
			}
		}
	}()

	// Optional MCP stdio surface.
	if env("MCP_TRANSPORT", "") == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "gridsight",
			Version: "1.0.0",
		}, nil)
		a.registerMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil {
				logger.Error("mcp server", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func loadConfig(path string) (*scan.Config, error) {
	if path == "" {
		var cfg scan.Config
		cfg.ApplyDefaults()
		return &cfg, nil
	}
	return scan.LoadConfigFile(path)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
