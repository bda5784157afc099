// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

// QueryOptions holds filters for residue queries. Zero values match all rows.
type QueryOptions struct {
	BMRBID string
	PDBID  string

	// ResidueType accepts a one- or three-letter code.
	ResidueType string

	SecondaryStructure types.SecondaryStructure

	// CompleteOnly keeps rows with all three carbon shifts.
	CompleteOnly bool

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Query returns residues matching opts, ordered by entry, chain and
// residue number.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]types.Row, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT bmrb_id, pdb_id, chain, residue_id, residue_type,
			c_shift, ca_shift, cb_shift, secondary_structure
		FROM residues
		WHERE 1=1`)

	where, whereArgs, err := opts.filters()
	if err != nil {
		return nil, err
	}
	qb.WriteString(where)
	args = append(args, whereArgs...)

	qb.WriteString(` ORDER BY CAST(bmrb_id AS INTEGER), pdb_id, chain, residue_id LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying residues: %w", err)
	}
	defer rows.Close()

	var out []types.Row
	for rows.Next() {
		var (
			r         types.Row
			c, ca, cb sql.NullFloat64
			secondary string
		)
		if err := rows.Scan(&r.BMRBID, &r.PDBID, &r.Chain, &r.ResidueID, &r.ResidueType,
			&c, &ca, &cb, &secondary); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.C, r.CA, r.CB = nullable(c), nullable(ca), nullable(cb)
		r.SecondaryStructure = types.SecondaryStructure(secondary)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q QueryOptions) filters() (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
	)
	if q.BMRBID != "" {
		sb.WriteString(` AND bmrb_id = ?`)
		args = append(args, q.BMRBID)
	}
	if q.PDBID != "" {
		sb.WriteString(` AND pdb_id = ?`)
		args = append(args, strings.ToLower(q.PDBID))
	}
	if q.ResidueType != "" {
		three := types.ThreeLetter(q.ResidueType)
		if three == "" {
			return "", nil, fmt.Errorf("unknown residue type %q", q.ResidueType)
		}
		sb.WriteString(` AND residue_type = ?`)
		args = append(args, three)
	}
	if q.SecondaryStructure != "" {
		ss := types.SecondaryStructure(strings.ToUpper(string(q.SecondaryStructure)))
		switch ss {
		case types.Helix, types.Strand, types.Coil:
		default:
			return "", nil, fmt.Errorf("unknown secondary structure %q (want H, E or C)", q.SecondaryStructure)
		}
		sb.WriteString(` AND secondary_structure = ?`)
		args = append(args, string(ss))
	}
	if q.CompleteOnly {
		sb.WriteString(` AND c_shift IS NOT NULL AND ca_shift IS NOT NULL AND cb_shift IS NOT NULL`)
	}
	return sb.String(), args, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// ShiftStat is the mean of one shift over the residues that have it.
type ShiftStat struct {
	Mean  float64 `json:"mean" yaml:"mean"`
	Count int     `json:"count" yaml:"count"`
}

// GroupStats summarizes residues of one type in one secondary-structure class.
type GroupStats struct {
	ResidueType        string                   `json:"residue_type" yaml:"residue_type"`
	SecondaryStructure types.SecondaryStructure `json:"secondary_structure" yaml:"secondary_structure"`
	Residues           int                      `json:"residues" yaml:"residues"`
	C                  ShiftStat                `json:"c_shift" yaml:"c_shift"`
	CA                 ShiftStat                `json:"ca_shift" yaml:"ca_shift"`
	CB                 ShiftStat                `json:"cb_shift" yaml:"cb_shift"`
}

// Stats returns mean C, CA and CB shifts grouped by residue type and
// secondary structure, ordered by residue type then H, E, C.
func (s *Store) Stats(ctx context.Context) ([]GroupStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT residue_type, secondary_structure, count(*),
			avg(c_shift), count(c_shift),
			avg(ca_shift), count(ca_shift),
			avg(cb_shift), count(cb_shift)
		FROM residues
		GROUP BY residue_type, secondary_structure
		ORDER BY residue_type,
			CASE secondary_structure WHEN 'H' THEN 0 WHEN 'E' THEN 1 ELSE 2 END`)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	defer rows.Close()

	var out []GroupStats
	for rows.Next() {
		var (
			g                  GroupStats
			secondary          string
			cAvg, caAvg, cbAvg sql.NullFloat64
		)
		if err := rows.Scan(&g.ResidueType, &secondary, &g.Residues,
			&cAvg, &g.C.Count, &caAvg, &g.CA.Count, &cbAvg, &g.CB.Count); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		g.SecondaryStructure = types.SecondaryStructure(secondary)
		g.C.Mean, g.CA.Mean, g.CB.Mean = cAvg.Float64, caAvg.Float64, cbAvg.Float64
		out = append(out, g)
	}
	return out, rows.Err()
}
