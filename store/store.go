// Package store provides the SQLite persistence layer for gridsight: scan
// artifacts, reviewer annotations, dump-all captures, and retention
// pruning.
package store

import (
	"database/sql"

	"github.com/gridsight/gridsight/dbopen"
	"github.com/gridsight/gridsight/idgen"
)

// Store is the gridsight database handle.
type Store struct {
	DB      *sql.DB
	scanIDs idgen.Generator
	dumpIDs idgen.Generator
}

// Open opens (or creates) the gridsight SQLite database at path, applies
// pragmas and the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already-open database handle. The caller is
// responsible for having applied Schema.
func NewWithDB(db *sql.DB) *Store {
	return &Store{
		DB:      db,
		scanIDs: idgen.Prefixed("scan_", idgen.Default),
		dumpIDs: idgen.Prefixed("dump_", idgen.Default),
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
