// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pairs classifies BMRB and PDB identifiers and reads lists of
// BMRB/PDB entry pairs from the command line or a YAML file.
package pairs

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

// bmrbPattern matches BMRB accession numbers: "46", "bmr46", "BMRB 46".
var bmrbPattern = regexp.MustCompile(`^(?i:bmrb?\s*)?(\d{1,6})$`)

// pdbPattern matches classic four-character PDB codes: a digit followed by
// three alphanumerics ("1boc", "1BOC").
var pdbPattern = regexp.MustCompile(`^[0-9][A-Za-z0-9]{3}$`)

// NormalizeBMRB validates a BMRB accession and returns its bare numeric form
// without leading zeros.
func NormalizeBMRB(id string) (string, error) {
	m := bmrbPattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return "", fmt.Errorf("invalid BMRB ID %q", id)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return "", fmt.Errorf("invalid BMRB ID %q", id)
	}
	return strconv.Itoa(n), nil
}

// NormalizePDB validates a PDB code and returns it in lower case.
func NormalizePDB(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !pdbPattern.MatchString(id) {
		return "", fmt.Errorf("invalid PDB ID %q", id)
	}
	return strings.ToLower(id), nil
}

// Normalize validates both identifiers of p and returns the normalized pair.
func Normalize(p types.EntryPair) (types.EntryPair, error) {
	b, err := NormalizeBMRB(p.BMRBID)
	if err != nil {
		return p, err
	}
	d, err := NormalizePDB(p.PDBID)
	if err != nil {
		return p, err
	}
	return types.EntryPair{BMRBID: b, PDBID: d, Offset: p.Offset}, nil
}

// Parse reads a pair written as "BMRB:PDB" or "BMRB:PDB:OFFSET"
// (e.g. "46:1boc", "46:1boc:-2").
func Parse(s string) (types.EntryPair, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return types.EntryPair{}, fmt.Errorf("invalid pair %q: want BMRB:PDB[:OFFSET]", s)
	}
	p := types.EntryPair{BMRBID: parts[0], PDBID: parts[1]}
	if len(parts) == 3 {
		off, err := strconv.Atoi(strings.TrimPrefix(parts[2], "+"))
		if err != nil {
			return types.EntryPair{}, fmt.Errorf("invalid offset in pair %q: %w", s, err)
		}
		p.Offset = off
	}
	np, err := Normalize(p)
	if err != nil {
		return types.EntryPair{}, fmt.Errorf("pair %q: %w", s, err)
	}
	return np, nil
}

// ParseAll parses each argument with Parse and stops at the first error.
func ParseAll(args []string) ([]types.EntryPair, error) {
	out := make([]types.EntryPair, 0, len(args))
	for _, a := range args {
		p, err := Parse(a)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// File is the on-disk list of entry pairs written by WriteFile:
//
//	pairs:
//	  - bmrb_id: "46"
//	    pdb_id: 1boc
//
// ReadFile also accepts the bare list without the pairs key.
type File struct {
	Pairs []types.EntryPair `yaml:"pairs"`
}

// ReadFile loads and validates a pairs file. The document is either a
// top-level list of pairs or a mapping with a pairs key.
func ReadFile(path string) ([]types.EntryPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pairs file: %w", err)
	}
	list, err := decodePairs(data)
	if err != nil {
		return nil, fmt.Errorf("parsing pairs file: %w", err)
	}
	out := make([]types.EntryPair, 0, len(list))
	for i, p := range list {
		np, err := Normalize(p)
		if err != nil {
			return nil, fmt.Errorf("pairs file entry %d: %w", i+1, err)
		}
		out = append(out, np)
	}
	return out, nil
}

func decodePairs(data []byte) ([]types.EntryPair, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []types.EntryPair
		if err := root.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	case yaml.MappingNode:
		var f File
		if err := root.Decode(&f); err != nil {
			return nil, err
		}
		return f.Pairs, nil
	default:
		return nil, fmt.Errorf("line %d: want a list of pairs or a pairs key", root.Line)
	}
}

// WriteFile saves pairs in the format read by ReadFile.
func WriteFile(path string, pairs []types.EntryPair) error {
	data, err := yaml.Marshal(&File{Pairs: pairs})
	if err != nil {
		return fmt.Errorf("marshaling pairs file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Dedupe drops repeated pairs, keeping the first occurrence.
func Dedupe(in []types.EntryPair) []types.EntryPair {
	seen := make(map[types.EntryPair]bool, len(in))
	out := in[:0:0]
	for _, p := range in {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
