package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gridsight/gridsight/finding"
	"github.com/gridsight/gridsight/kit"
	"github.com/gridsight/gridsight/report"
	"github.com/gridsight/gridsight/scan"
	"github.com/gridsight/gridsight/store"
)

// errScanInProgress is returned when a session already has an active scan.
var errScanInProgress = fmt.Errorf("a scan is already running for this session")

// app wires the scanner, store, and reporting options together for all
// surfaces (CLI, HTTP, MCP).
type app struct {
	cfg     *scan.Config
	scanner *scan.Scanner
	store   *store.Store
	logger  *slog.Logger

	// inFlight holds session ids with an active scan. Scanning is
	// sequential per session; overlapping requests are rejected, not
	// queued.
	mu       sync.Mutex
	inFlight map[string]bool
}

func newApp(cfg *scan.Config, scanner *scan.Scanner, st *store.Store, logger *slog.Logger) *app {
	return &app{
		cfg:      cfg,
		scanner:  scanner,
		store:    st,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// acquireSession marks a session as scanning. The release func must be
// called when the scan ends.
func (a *app) acquireSession(session string) (release func(), err error) {
	if session == "" {
		session = "default"
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight[session] {
		return nil, errScanInProgress
	}
	a.inFlight[session] = true
	return func() {
		a.mu.Lock()
		delete(a.inFlight, session)
		a.mu.Unlock()
	}, nil
}

// scanResult is the response shape shared by the HTTP and MCP surfaces.
type scanResult struct {
	ScanID   string   `json:"scan_id"`
	URL      string   `json:"url"`
	Total    int      `json:"total"`
	Report   string   `json:"report"`
	Exported string   `json:"exported,omitempty"`
	Chunks   []string `json:"chunks,omitempty"`
}

// runScan performs one full scan for a session: acquire the single-flight
// slot, scan, persist, and render.
func (a *app) runScan(ctx context.Context, url string) (*scanResult, error) {
	release, err := a.acquireSession(kit.GetSessionID(ctx))
	if err != nil {
		return nil, err
	}
	defer release()

	a.logger.Info("scan requested", "url", url, "transport", kit.GetTransport(ctx))

	raw, err := a.scanner.Scan(ctx, url)
	if err != nil {
		return nil, err
	}

	rec, err := a.store.SaveScan(ctx, url, raw)
	if err != nil {
		return nil, err
	}

	res := &scanResult{ScanID: rec.ID, URL: url}

	if dir := a.cfg.Storage.ExportDir; dir != "" {
		path, err := a.store.ExportScan(rec, dir)
		if err != nil {
			a.logger.Warn("artifact export failed", "error", err)
		} else {
			res.Exported = path
		}
	}

	cat := finding.Categorize(finding.Dedupe(raw))
	res.Total = cat.Len()

	opts := a.reportOptions(ctx)
	res.Report = report.Render(cat, opts)
	res.Chunks = report.Chunk(res.Report, opts.ChunkSize)
	return res, nil
}

func (a *app) reportOptions(ctx context.Context) report.Options {
	opts := report.Options{
		MaxPerStructure: a.cfg.Report.MaxPerStructure,
		ChunkSize:       a.cfg.Report.ChunkSize,
		Descriptions:    a.cfg.Descriptions,
	}
	notes, err := a.store.AnnotationsByKey(ctx)
	if err != nil {
		a.logger.Warn("loading annotations failed", "error", err)
		return opts
	}
	opts.Annotations = notes
	return opts
}

// runDump captures and persists the full contents of every structure.
func (a *app) runDump(ctx context.Context, url string) (*store.DumpRecord, error) {
	release, err := a.acquireSession(kit.GetSessionID(ctx))
	if err != nil {
		return nil, err
	}
	defer release()

	dump, err := a.scanner.DumpAll(ctx, url)
	if err != nil {
		return nil, err
	}
	return a.store.SaveDump(ctx, url, dump)
}

// stats renders the latest-scan summary.
func (a *app) stats(ctx context.Context) (string, error) {
	rec, err := a.store.LatestScan(ctx)
	if err != nil {
		return "", err
	}
	return report.Stats(rec), nil
}
