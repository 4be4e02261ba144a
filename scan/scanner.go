// Package scan is the core engine: it acquires a rendered page, runs the
// structural hypothesis cascade over it, and returns the ordered sequence
// of empty-cell findings. The raw sequence is what gets persisted; dedup
// and grouping are applied on top for reporting.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gridsight/gridsight/finding"
	"github.com/gridsight/gridsight/scan/internal/browser"
	"github.com/gridsight/gridsight/scan/internal/discover"
	"github.com/gridsight/gridsight/scan/internal/extract"
	"github.com/gridsight/gridsight/scan/internal/snapshot"
)

// ErrAcquisition marks unrecoverable acquisition failures: the browser
// could not be started, connected, or made to produce a snapshot at all.
// It is the only condition a scan surfaces as a hard error.
var ErrAcquisition = browser.ErrAcquisition

// ErrLoadTimeout marks a page that did not finish loading in time. Scan
// absorbs it into a synthetic finding; it crosses the boundary only from
// custom Acquirers.
var ErrLoadTimeout = browser.ErrLoadTimeout

// loadTimeoutMessage is the synthetic finding emitted when the page
// navigated but never settled. Kept verbatim across versions; downstream
// consumers match on it.
const loadTimeoutMessage = "Error: Page took too long to load. The site might be using complex JavaScript that requires authentication."

// Acquirer delivers the rendered DOM of a target page as serialized HTML.
//
// Implementations signal a hard failure by wrapping ErrAcquisition and a
// recoverable slow page by wrapping ErrLoadTimeout; any other error is
// treated as hard.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (string, error)
	Close() error
}

// NewBrowserAcquirer returns the production Acquirer: a lazily-launched
// headless Chrome session with stealth applied.
func NewBrowserAcquirer(cfg BrowserConfig, logger *slog.Logger) Acquirer {
	return browser.NewManager(browser.Config{
		RemoteURL:      cfg.Remote,
		Headless:       cfg.Headless,
		AcquireTimeout: cfg.AcquireTimeout,
		SettleDelay:    cfg.SettleDelay,
		Logger:         logger,
	})
}

// Record is one dumped row of a structure. Alias of the extractor's type so
// store and docsgen can name it.
type Record = extract.Record

// Dump is the full capture of every structure on a page: the row records
// per structure id, plus a sanitized HTML fragment of each structure for
// Markdown rendering.
type Dump struct {
	Structures map[string][]Record
	Fragments  map[string]string
}

// Scanner runs scans against one Acquirer. Not safe for concurrent scans;
// the dispatcher layer serializes per session.
type Scanner struct {
	acq      Acquirer
	patterns []discover.Pattern
	sanitize *bluemonday.Policy
	logger   *slog.Logger
}

// NewScanner creates a Scanner over an Acquirer. The logger must not be
// nil; pass slog.Default() when in doubt.
func NewScanner(acq Acquirer, logger *slog.Logger) *Scanner {
	p := bluemonday.UGCPolicy()
	p.AllowTables()
	p.AllowAttrs("class", "id", "data-recordindex", "data-columnid").Globally()
	return &Scanner{
		acq:      acq,
		patterns: discover.DefaultPatterns,
		sanitize: p,
		logger:   logger,
	}
}

// Scan acquires the page and returns the raw ordered finding sequence.
//
// A page that never settles yields a single synthetic finding, not an
// error; only acquisition failures (wrapped ErrAcquisition) propagate, and
// then the sequence is always nil.
func (s *Scanner) Scan(ctx context.Context, url string) ([]finding.Finding, error) {
	snap, soft, err := s.acquire(ctx, url)
	if err != nil {
		return nil, err
	}
	if soft != nil {
		return []finding.Finding{*soft}, nil
	}

	findings := discover.Run(snap, s.patterns, s.logger)
	s.logger.Info("scan: completed", "url", url, "findings", len(findings))
	return findings, nil
}

// ScanCategorized runs Scan, deduplicates the sequence, and groups it by
// structure id for reporting.
func (s *Scanner) ScanCategorized(ctx context.Context, url string) (*finding.Categorized, error) {
	raw, err := s.Scan(ctx, url)
	if err != nil {
		return nil, err
	}
	return finding.Categorize(finding.Dedupe(raw)), nil
}

// DumpAll captures every row of every structure on the page, full cell
// text included. Used by the documentation generator; empty-cell scanning
// is not involved.
func (s *Scanner) DumpAll(ctx context.Context, url string) (*Dump, error) {
	snap, soft, err := s.acquire(ctx, url)
	if err != nil {
		return nil, err
	}
	if soft != nil {
		return nil, fmt.Errorf("%w: page never settled: %s", ErrAcquisition, url)
	}

	dump := &Dump{
		Structures: make(map[string][]Record),
		Fragments:  make(map[string]string),
	}
	for _, p := range s.patterns {
		containers := snap.Find(p.Selector)
		if len(containers) == 0 {
			continue
		}

		label := discover.PatternLabel(p.Selector)
		var part map[string][]Record
		if p.Table {
			part = extract.TableDump(containers)
		} else {
			part = extract.GridDump(containers, label)
		}
		for id, records := range part {
			if _, ok := dump.Structures[id]; ok {
				// A structure already captured under an earlier, more
				// specific hypothesis is not overwritten.
				continue
			}
			dump.Structures[id] = records
		}
		for i, c := range containers {
			id := structureIDOf(c, label, i+1, p.Table)
			if _, ok := dump.Fragments[id]; !ok {
				dump.Fragments[id] = s.sanitize.Sanitize(c.HTML())
			}
		}
	}
	s.logger.Info("scan: dump completed", "url", url, "structures", len(dump.Structures))
	return dump, nil
}

// acquire fetches and parses the page. The middle return is a synthetic
// finding when the page did not settle in time (soft failure).
func (s *Scanner) acquire(ctx context.Context, url string) (*snapshot.Snapshot, *finding.Finding, error) {
	markup, err := s.acq.Acquire(ctx, url)
	switch {
	case errors.Is(err, ErrLoadTimeout):
		s.logger.Warn("scan: page load timed out", "url", url, "error", err)
		return nil, &finding.Finding{Kind: finding.Synthetic, Message: loadTimeoutMessage}, nil
	case err != nil:
		return nil, nil, fmt.Errorf("scan: acquire %s: %w", url, err)
	}

	snap, err := snapshot.Parse(markup)
	if err != nil {
		return nil, nil, fmt.Errorf("scan: parse %s: %w: %v", url, ErrAcquisition, err)
	}
	return snap, nil, nil
}

// structureIDOf mirrors the extractors' structure naming so fragments land
// under the same key as their records.
func structureIDOf(c *snapshot.Element, label string, position int, table bool) string {
	if id, ok := c.Attr("id"); ok && id != "" {
		return id
	}
	if table {
		return fmt.Sprintf("Table %d", position)
	}
	return fmt.Sprintf("%s %d", label, position)
}
