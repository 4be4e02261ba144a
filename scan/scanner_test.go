package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gridsight/gridsight/finding"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAcquirer returns canned markup or a canned error.
type fakeAcquirer struct {
	markup string
	err    error
}

func (f fakeAcquirer) Acquire(ctx context.Context, url string) (string, error) {
	return f.markup, f.err
}

func (f fakeAcquirer) Close() error { return nil }

const pageFixture = `<html><body>
<table id="patients">
  <tr><th>Name</th><th>Ort</th></tr>
  <tr><td>Meier</td><td></td></tr>
</table>
</body></html>`

func TestScan_EmitsFindings(t *testing.T) {
	s := NewScanner(fakeAcquirer{markup: pageFixture}, discardLogger())

	got, err := s.Scan(context.Background(), "https://example.test/patients")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}
	if got[0].StructureID != "patients" || got[0].ColHeader != "Ort" {
		t.Fatalf("unexpected finding: %+v", got[0])
	}
}

func TestScan_AcquisitionFailureIsHard(t *testing.T) {
	// WHY: a driver that cannot start must surface as an error with zero
	// findings, never as a degraded result.
	s := NewScanner(fakeAcquirer{err: fmt.Errorf("%w: launch: boom", ErrAcquisition)}, discardLogger())

	got, err := s.Scan(context.Background(), "https://example.test")
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("err = %v, want ErrAcquisition", err)
	}
	if got != nil {
		t.Fatalf("findings = %v, want nil", got)
	}
}

func TestScan_LoadTimeoutDegradesToSyntheticFinding(t *testing.T) {
	s := NewScanner(fakeAcquirer{err: fmt.Errorf("%w: wait load", ErrLoadTimeout)}, discardLogger())

	got, err := s.Scan(context.Background(), "https://example.test")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 || got[0].Kind != finding.Synthetic {
		t.Fatalf("findings = %+v, want single synthetic", got)
	}
	if !strings.Contains(got[0].Message, "took too long to load") {
		t.Fatalf("message = %q", got[0].Message)
	}
}

func TestScan_UnknownErrorIsHard(t *testing.T) {
	s := NewScanner(fakeAcquirer{err: errors.New("weird transport issue")}, discardLogger())

	if _, err := s.Scan(context.Background(), "https://example.test"); err == nil {
		t.Fatal("expected error")
	}
}

func TestScanCategorized_GroupsAndDedupes(t *testing.T) {
	// The grid is nested in a panel body, so the same empty cell matches
	// two hypotheses; categorization must show it once.
	markup := `<html><body>
	<div class="x-panel-body">
	  <div class="x-grid" id="g1">
	    <div class="x-column-header">Name</div>
	    <div class="x-grid-item" data-recordindex="0">
	      <div class="x-grid-cell"></div>
	    </div>
	  </div>
	</div>
	</body></html>`
	s := NewScanner(fakeAcquirer{markup: markup}, discardLogger())

	cat, err := s.ScanCategorized(context.Background(), "https://example.test")
	if err != nil {
		t.Fatalf("ScanCategorized: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("findings after dedup = %d, want 1", cat.Len())
	}
}

func TestDumpAll(t *testing.T) {
	s := NewScanner(fakeAcquirer{markup: pageFixture}, discardLogger())

	dump, err := s.DumpAll(context.Background(), "https://example.test")
	if err != nil {
		t.Fatalf("DumpAll: %v", err)
	}
	records := dump.Structures["patients"]
	if len(records) != 1 || records[0].Data["Name"] != "Meier" {
		t.Fatalf("unexpected records: %+v", records)
	}
	frag, ok := dump.Fragments["patients"]
	if !ok {
		t.Fatal("missing fragment")
	}
	if !strings.Contains(frag, "<table") || !strings.Contains(frag, "Meier") {
		t.Fatalf("fragment = %q", frag)
	}
}

func TestFileAcquirer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.html")
	if err := os.WriteFile(path, []byte(pageFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewScanner(FileAcquirer{}, discardLogger())
	got, err := s.Scan(context.Background(), path)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("findings = %d, want 1", len(got))
	}

	if _, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "missing.html")); !errors.Is(err, ErrAcquisition) {
		t.Fatalf("err = %v, want ErrAcquisition", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Browser.AcquireTimeout.Seconds() != 30 {
		t.Fatalf("acquire timeout = %v", cfg.Browser.AcquireTimeout)
	}
	if cfg.Browser.SettleDelay.Seconds() != 10 {
		t.Fatalf("settle delay = %v", cfg.Browser.SettleDelay)
	}
	if cfg.Report.MaxPerStructure != 5 || cfg.Report.ChunkSize != 4000 {
		t.Fatalf("report defaults = %+v", cfg.Report)
	}
	if cfg.Storage.Retention.KeepLast != 10 {
		t.Fatalf("retention defaults = %+v", cfg.Storage.Retention)
	}
}
