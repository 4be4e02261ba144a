package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gridsight/gridsight/dbopen"
	"github.com/gridsight/gridsight/scan"
)

// DumpRecord is one persisted dump-all capture: the full structure contents
// of a page plus the sanitized HTML fragment of each structure.
type DumpRecord struct {
	ID         string                   `json:"id"`
	URL        string                   `json:"url"`
	Structures map[string][]scan.Record `json:"structures"`
	Fragments  map[string]string        `json:"fragments,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

// SaveDump persists a dump-all capture.
func (s *Store) SaveDump(ctx context.Context, url string, dump *scan.Dump) (*DumpRecord, error) {
	rec := &DumpRecord{
		ID:         s.dumpIDs(),
		URL:        url,
		Structures: dump.Structures,
		Fragments:  dump.Fragments,
		CreatedAt:  time.Now().UTC(),
	}

	structures, err := json.Marshal(rec.Structures)
	if err != nil {
		return nil, fmt.Errorf("store: marshal structures: %w", err)
	}
	fragments, err := json.Marshal(rec.Fragments)
	if err != nil {
		return nil, fmt.Errorf("store: marshal fragments: %w", err)
	}

	_, err = dbopen.Exec(ctx, s.DB, `
		INSERT INTO dumps (id, url, structures, fragments, created_at)
		VALUES (?,?,?,?,?)`,
		rec.ID, rec.URL, string(structures), string(fragments), rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: insert dump: %w", err)
	}
	return rec, nil
}

// LatestDump retrieves the most recent dump. Returns (nil, nil) when none
// exists.
func (s *Store) LatestDump(ctx context.Context) (*DumpRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, url, structures, fragments, created_at
		FROM dumps ORDER BY created_at DESC, id DESC LIMIT 1`)

	rec := &DumpRecord{}
	var structures, fragments string
	var createdAt int64

	err := row.Scan(&rec.ID, &rec.URL, &structures, &fragments, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(structures), &rec.Structures); err != nil {
		return nil, fmt.Errorf("store: decode structures %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(fragments), &rec.Fragments); err != nil {
		return nil, fmt.Errorf("store: decode fragments %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}
