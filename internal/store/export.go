// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

const exportLimit = 10000000

// ExportEntry is one indexed entry pair with its residues.
type ExportEntry struct {
	BMRBID   string      `json:"bmrb_id" yaml:"bmrb_id"`
	PDBID    string      `json:"pdb_id" yaml:"pdb_id"`
	Residues []types.Row `json:"residues" yaml:"residues"`
}

// ExportYAML writes matching residues to index/export.yaml and returns
// the file path.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching residues to index/export.json and returns
// the file path.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.dir, "export.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	rows, err := s.Query(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := []ExportEntry{}
	for _, r := range rows {
		n := len(entries)
		if n == 0 || entries[n-1].BMRBID != r.BMRBID || entries[n-1].PDBID != r.PDBID {
			entries = append(entries, ExportEntry{BMRBID: r.BMRBID, PDBID: r.PDBID})
			n++
		}
		entries[n-1].Residues = append(entries[n-1].Residues, r)
	}
	return entries, nil
}
