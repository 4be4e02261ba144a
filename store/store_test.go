package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gridsight/gridsight/dbopen"
	"github.com/gridsight/gridsight/finding"
	"github.com/gridsight/gridsight/scan"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	return NewWithDB(dbopen.OpenMemory(t, dbopen.WithSchema(Schema)))
}

func sampleFindings() []finding.Finding {
	return []finding.Finding{
		{Kind: finding.TableCell, StructureID: "patients", Row: "2", ColIndex: 2, ColHeader: "Ort"},
		{Kind: finding.GridCell, StructureID: "g1", Row: "0", ColIndex: 1, ColHeader: "Name"},
	}
}

func TestSaveScan_ArtifactContract(t *testing.T) {
	// WHAT: the persisted artifact must round-trip as
	// {timestamp: ISO-8601, empty_cells: [string...]} exactly.
	s := openTest(t)
	ctx := context.Background()

	rec, err := s.SaveScan(ctx, "https://example.test", sampleFindings())
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}
	if !strings.HasPrefix(rec.ID, "scan_") {
		t.Fatalf("id = %q", rec.ID)
	}

	var raw string
	if err := s.DB.QueryRow(`SELECT artifact FROM scans WHERE id = ?`, rec.ID).Scan(&raw); err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	var contract struct {
		Timestamp  string   `json:"timestamp"`
		EmptyCells []string `json:"empty_cells"`
	}
	if err := json.Unmarshal([]byte(raw), &contract); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, contract.Timestamp); err != nil {
		t.Fatalf("timestamp %q not ISO-8601: %v", contract.Timestamp, err)
	}
	if len(contract.EmptyCells) != 2 {
		t.Fatalf("empty_cells = %v", contract.EmptyCells)
	}
	if want := sampleFindings()[0].Describe(); contract.EmptyCells[0] != want {
		t.Fatalf("empty_cells[0] = %q, want %q", contract.EmptyCells[0], want)
	}
}

func TestGetScan_RoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	saved, err := s.SaveScan(ctx, "https://example.test", sampleFindings())
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	got, err := s.GetScan(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if got == nil || got.URL != "https://example.test" || len(got.Findings) != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Findings[1].StructureID != "g1" {
		t.Fatalf("findings lost structure: %+v", got.Findings[1])
	}

	missing, err := s.GetScan(ctx, "scan_nope")
	if err != nil || missing != nil {
		t.Fatalf("missing scan = %v, %v; want nil, nil", missing, err)
	}
}

func TestListScans_NewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.SaveScan(ctx, "https://example.test", nil); err != nil {
			t.Fatalf("SaveScan: %v", err)
		}
	}

	list, err := s.ListScans(ctx, 2)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("scans = %d, want 2", len(list))
	}
	if list[0].CreatedAt.Before(list[1].CreatedAt) {
		t.Fatal("not newest-first")
	}
}

func TestPrune_KeepsNewest(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec, err := s.SaveScan(ctx, "https://example.test", nil)
		if err != nil {
			t.Fatalf("SaveScan: %v", err)
		}
		// Age all rows artificially; SaveScan stamps them "now".
		old := time.Now().Add(-time.Duration(10-i) * 24 * time.Hour).UnixMilli()
		if _, err := s.DB.Exec(`UPDATE scans SET created_at = ? WHERE id = ?`, old, rec.ID); err != nil {
			t.Fatalf("age row: %v", err)
		}
	}

	deleted, err := s.Prune(ctx, 24*time.Hour, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted = %d, want 3", deleted)
	}

	list, err := s.ListScans(ctx, 10)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("remaining = %d, want 2 (keepLast)", len(list))
	}
}

func TestAnnotations(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	key := finding.CanonicalKey(sampleFindings()[0])
	if err := s.SaveAnnotation(ctx, key, "known gap, lab import pending"); err != nil {
		t.Fatalf("SaveAnnotation: %v", err)
	}
	if err := s.SaveAnnotation(ctx, key, "resolved upstream"); err != nil {
		t.Fatalf("SaveAnnotation update: %v", err)
	}

	byKey, err := s.AnnotationsByKey(ctx)
	if err != nil {
		t.Fatalf("AnnotationsByKey: %v", err)
	}
	if byKey[key] != "resolved upstream" {
		t.Fatalf("note = %q", byKey[key])
	}

	// Empty note deletes.
	if err := s.SaveAnnotation(ctx, key, ""); err != nil {
		t.Fatalf("SaveAnnotation delete: %v", err)
	}
	list, err := s.ListAnnotations(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("annotations = %v, %v; want empty", list, err)
	}
}

func TestDump_RoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	dump := &scan.Dump{
		Structures: map[string][]scan.Record{
			"patients": {{Row: 1, Data: map[string]string{"Name": "Meier", "Ort": ""}}},
		},
		Fragments: map[string]string{"patients": "<table><tr><td>Meier</td></tr></table>"},
	}

	saved, err := s.SaveDump(ctx, "https://example.test", dump)
	if err != nil {
		t.Fatalf("SaveDump: %v", err)
	}
	if !strings.HasPrefix(saved.ID, "dump_") {
		t.Fatalf("id = %q", saved.ID)
	}

	got, err := s.LatestDump(ctx)
	if err != nil {
		t.Fatalf("LatestDump: %v", err)
	}
	if got == nil || got.Structures["patients"][0].Data["Name"] != "Meier" {
		t.Fatalf("unexpected dump: %+v", got)
	}
	if got.Fragments["patients"] == "" {
		t.Fatal("fragment lost")
	}
}

func TestExportScan(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rec, err := s.SaveScan(ctx, "https://example.test", sampleFindings())
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	dir := t.TempDir()
	path, err := s.ExportScan(rec, dir)
	if err != nil {
		t.Fatalf("ExportScan: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "empty_cells_") || !strings.HasSuffix(base, ".json") {
		t.Fatalf("file name = %q", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var contract Artifact
	if err := json.Unmarshal(data, &contract); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(contract.EmptyCells) != 2 {
		t.Fatalf("empty_cells = %v", contract.EmptyCells)
	}
}
