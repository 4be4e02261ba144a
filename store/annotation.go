package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gridsight/gridsight/dbopen"
)

// Annotation is a reviewer note attached to a logical empty cell, keyed by
// the finding's canonical key so it survives across scans.
type Annotation struct {
	Key       string    `json:"key"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveAnnotation inserts or replaces the note for a key. An empty note
// deletes the annotation.
func (s *Store) SaveAnnotation(ctx context.Context, key, note string) error {
	if note == "" {
		_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM annotations WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("store: delete annotation: %w", err)
		}
		return nil
	}

	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO annotations (key, note, updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET note = excluded.note, updated_at = excluded.updated_at`,
		key, note, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: save annotation: %w", err)
	}
	return nil
}

// ListAnnotations returns all annotations, most recently updated first.
func (s *Store) ListAnnotations(ctx context.Context) ([]*Annotation, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT key, note, updated_at FROM annotations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list annotations: %w", err)
	}
	defer rows.Close()

	var out []*Annotation
	for rows.Next() {
		a := &Annotation{}
		var updatedAt int64
		if err := rows.Scan(&a.Key, &a.Note, &updatedAt); err != nil {
			return nil, err
		}
		a.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// AnnotationsByKey returns the notes indexed by canonical key, for joining
// against a finding sequence at report time.
func (s *Store) AnnotationsByKey(ctx context.Context) (map[string]string, error) {
	list, err := s.ListAnnotations(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, a := range list {
		out[a.Key] = a.Note
	}
	return out, nil
}
