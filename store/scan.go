package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gridsight/gridsight/dbopen"
	"github.com/gridsight/gridsight/finding"
)

// Artifact is the persisted scan contract read back by reporting and the
// cross-run analyzer. Field names and nesting are fixed.
type Artifact struct {
	Timestamp  string   `json:"timestamp"`
	EmptyCells []string `json:"empty_cells"`
}

// ScanRecord is one persisted scan.
type ScanRecord struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Artifact  Artifact          `json:"artifact"`
	Findings  []finding.Finding `json:"findings"`
	CreatedAt time.Time         `json:"created_at"`
}

// SaveScan persists the raw finding sequence of one scan. The artifact
// keeps the full un-deduplicated sequence; dedup is a reporting concern.
func (s *Store) SaveScan(ctx context.Context, url string, findings []finding.Finding) (*ScanRecord, error) {
	now := time.Now().UTC()
	rec := &ScanRecord{
		ID:        s.scanIDs(),
		URL:       url,
		Findings:  findings,
		CreatedAt: now,
		Artifact: Artifact{
			Timestamp:  now.Format(time.RFC3339),
			EmptyCells: describeAll(findings),
		},
	}

	artifact, err := json.Marshal(rec.Artifact)
	if err != nil {
		return nil, fmt.Errorf("store: marshal artifact: %w", err)
	}
	structured, err := json.Marshal(rec.Findings)
	if err != nil {
		return nil, fmt.Errorf("store: marshal findings: %w", err)
	}

	_, err = dbopen.Exec(ctx, s.DB, `
		INSERT INTO scans (id, url, artifact, findings, created_at)
		VALUES (?,?,?,?,?)`,
		rec.ID, rec.URL, string(artifact), string(structured), now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: insert scan: %w", err)
	}
	return rec, nil
}

// GetScan retrieves a scan by ID. Returns (nil, nil) when absent.
func (s *Store) GetScan(ctx context.Context, id string) (*ScanRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, url, artifact, findings, created_at
		FROM scans WHERE id = ?`, id)
	return scanRow(row)
}

// LatestScan retrieves the most recent scan. Returns (nil, nil) when the
// table is empty.
func (s *Store) LatestScan(ctx context.Context) (*ScanRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, url, artifact, findings, created_at
		FROM scans ORDER BY created_at DESC, id DESC LIMIT 1`)
	return scanRow(row)
}

// ListScans returns the newest scans first, capped at limit.
func (s *Store) ListScans(ctx context.Context, limit int) ([]*ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, artifact, findings, created_at
		FROM scans ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list scans: %w", err)
	}
	defer rows.Close()

	var out []*ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ExportScan writes the artifact contract JSON to dir as
// empty_cells_<stamp>.json and returns the path.
func (s *Store) ExportScan(rec *ScanRecord, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: export dir: %w", err)
	}

	stamp := rec.CreatedAt.UTC().Format("20060102T150405Z")
	path := filepath.Join(dir, fmt.Sprintf("empty_cells_%s.json", stamp))

	data, err := json.MarshalIndent(rec.Artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("store: marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("store: write export: %w", err)
	}
	return path, nil
}

func describeAll(findings []finding.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Describe()
	}
	return out
}

func scanRow(row *sql.Row) (*ScanRecord, error) {
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func scanRecord(scanFn func(...any) error) (*ScanRecord, error) {
	rec := &ScanRecord{}
	var artifact, structured string
	var createdAt int64

	if err := scanFn(&rec.ID, &rec.URL, &artifact, &structured, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(artifact), &rec.Artifact); err != nil {
		return nil, fmt.Errorf("store: decode artifact %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(structured), &rec.Findings); err != nil {
		return nil, fmt.Errorf("store: decode findings %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}
