package store

// Schema contains the complete DDL for the gridsight tables.
const Schema = `
-- Scan artifacts: one row per completed scan.
-- artifact holds the contract JSON {timestamp, empty_cells}; findings holds
-- the structured sequence for stats and re-rendering.
CREATE TABLE IF NOT EXISTS scans (
    id         TEXT PRIMARY KEY,
    url        TEXT NOT NULL,
    artifact   TEXT NOT NULL,
    findings   TEXT NOT NULL DEFAULT '[]',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at DESC);

-- Annotations: reviewer notes keyed by a finding's canonical key.
CREATE TABLE IF NOT EXISTS annotations (
    key        TEXT PRIMARY KEY,
    note       TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Dump-all captures: per scan, the full structure contents plus sanitized
-- HTML fragments, both as JSON.
CREATE TABLE IF NOT EXISTS dumps (
    id         TEXT PRIMARY KEY,
    url        TEXT NOT NULL,
    structures TEXT NOT NULL,
    fragments  TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dumps_created ON dumps(created_at DESC);
`
