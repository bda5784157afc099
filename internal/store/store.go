// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists merged residue rows in a SQLite index and answers
// filtered queries and per-residue-type shift statistics over them.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "shifts.db"
)

// Store manages the residue index database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
	now        func() time.Time
}

// NewStore opens or creates the index at dataDir/index/shifts.db and creates
// the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = types.DefaultDataDir
	}
	dir := filepath.Join(dataDir, indexDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = types.DefaultMaxResults
	}

	s := &Store{db: db, dir: dir, maxResults: maxResults, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the index directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			bmrb_id TEXT NOT NULL,
			pdb_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			ingested_at TEXT NOT NULL,
			residues INTEGER NOT NULL,
			PRIMARY KEY (bmrb_id, pdb_id)
		)`,
		`CREATE TABLE IF NOT EXISTS residues (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			bmrb_id TEXT NOT NULL,
			pdb_id TEXT NOT NULL,
			chain TEXT NOT NULL,
			residue_id INTEGER NOT NULL,
			residue_type TEXT NOT NULL,
			c_shift REAL,
			ca_shift REAL,
			cb_shift REAL,
			secondary_structure TEXT NOT NULL,
			FOREIGN KEY (bmrb_id, pdb_id) REFERENCES entries(bmrb_id, pdb_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_residues_entry ON residues(bmrb_id, pdb_id)`,
		`CREATE INDEX IF NOT EXISTS idx_residues_type ON residues(residue_type, secondary_structure)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	Entries  int
	Residues int
}

// Ingest stores rows under runID. Each entry pair present in rows replaces
// whatever was stored for it before; other entries are untouched. The whole
// ingest is one transaction.
func (s *Store) Ingest(ctx context.Context, runID string, rows []types.Row) (IngestSummary, error) {
	type key struct{ bmrb, pdb string }
	var order []key
	groups := make(map[key][]types.Row)
	for _, r := range rows {
		k := key{r.BMRBID, r.PDBID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO residues (bmrb_id, pdb_id, chain, residue_id, residue_type,
			c_shift, ca_shift, cb_shift, secondary_structure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("preparing insert: %w", err)
	}
	defer ins.Close()

	ingestedAt := s.now().UTC().Format(time.RFC3339)
	var sum IngestSummary
	for _, k := range order {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM residues WHERE bmrb_id = ? AND pdb_id = ?`, k.bmrb, k.pdb); err != nil {
			return IngestSummary{}, fmt.Errorf("clearing %s:%s: %w", k.bmrb, k.pdb, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (bmrb_id, pdb_id, run_id, ingested_at, residues)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (bmrb_id, pdb_id) DO UPDATE SET
				run_id = excluded.run_id,
				ingested_at = excluded.ingested_at,
				residues = excluded.residues`,
			k.bmrb, k.pdb, runID, ingestedAt, len(groups[k])); err != nil {
			return IngestSummary{}, fmt.Errorf("upserting entry %s:%s: %w", k.bmrb, k.pdb, err)
		}
		for _, r := range groups[k] {
			if _, err := ins.ExecContext(ctx,
				r.BMRBID, r.PDBID, r.Chain, r.ResidueID, r.ResidueType,
				r.C, r.CA, r.CB, string(r.SecondaryStructure)); err != nil {
				return IngestSummary{}, fmt.Errorf("inserting %s:%s residue %d: %w", k.bmrb, k.pdb, r.ResidueID, err)
			}
		}
		sum.Entries++
		sum.Residues += len(groups[k])
	}

	if err := tx.Commit(); err != nil {
		return IngestSummary{}, fmt.Errorf("committing: %w", err)
	}
	return sum, nil
}

// EntryInfo describes one indexed entry pair.
type EntryInfo struct {
	BMRBID     string    `json:"bmrb_id" yaml:"bmrb_id"`
	PDBID      string    `json:"pdb_id" yaml:"pdb_id"`
	RunID      string    `json:"run_id" yaml:"run_id"`
	IngestedAt time.Time `json:"ingested_at" yaml:"ingested_at"`
	Residues   int       `json:"residues" yaml:"residues"`
}

// Entries lists indexed entry pairs ordered by BMRB then PDB ID.
func (s *Store) Entries(ctx context.Context) ([]EntryInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bmrb_id, pdb_id, run_id, ingested_at, residues FROM entries
		ORDER BY CAST(bmrb_id AS INTEGER), pdb_id`)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var out []EntryInfo
	for rows.Next() {
		var e EntryInfo
		var at string
		if err := rows.Scan(&e.BMRBID, &e.PDBID, &e.RunID, &at, &e.Residues); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			e.IngestedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEntry removes an entry pair and its residues. It reports whether
// the entry existed.
func (s *Store) DeleteEntry(ctx context.Context, bmrbID, pdbID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE bmrb_id = ? AND pdb_id = ?`, bmrbID, pdbID)
	if err != nil {
		return false, fmt.Errorf("deleting entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
