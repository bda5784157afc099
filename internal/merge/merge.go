// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge joins BMRB chemical shifts with PDB secondary structure on
// residue number and reads and writes the resulting table as CSV.
package merge

import (
	"github.com/pdiddy/shiftmerge/internal/bmrb"
	"github.com/pdiddy/shiftmerge/pkg/types"
)

// Stats describes how well a pair's shifts lined up with its structure.
type Stats struct {
	// Residues is the number of rows produced (one per PDB residue).
	Residues int

	// Matched counts rows that found a shift record.
	Matched int

	// Complete counts rows with all of C, CA and CB.
	Complete int

	// TypeMismatches counts matched rows whose BMRB residue type disagrees
	// with the PDB residue type. A high count usually means the pair needs
	// an offset.
	TypeMismatches int
}

// Combine emits one row per PDB residue in structure order. The BMRB record
// for PDB residue n is looked up at n - pair.Offset; residues without a
// record get empty shifts.
func Combine(pair types.EntryPair, shifts []types.ShiftRecord, residues []types.StructureResidue) ([]types.Row, Stats) {
	byID := bmrb.ShiftMap(shifts)

	rows := make([]types.Row, 0, len(residues))
	var st Stats
	for _, res := range residues {
		row := types.Row{
			BMRBID:             pair.BMRBID,
			PDBID:              pair.PDBID,
			Chain:              res.Chain,
			ResidueID:          res.ResidueID,
			ResidueType:        res.ResidueType,
			SecondaryStructure: res.SecondaryStructure,
		}
		if rec, ok := byID[res.ResidueID-pair.Offset]; ok {
			row.C, row.CA, row.CB = rec.C, rec.CA, rec.CB
			st.Matched++
			if mismatch(rec.ResidueType, res.ResidueType) {
				st.TypeMismatches++
			}
		}
		if row.Complete() {
			st.Complete++
		}
		rows = append(rows, row)
	}
	st.Residues = len(rows)
	return rows, st
}

func mismatch(bmrbType, pdbType string) bool {
	a, b := types.OneLetter(bmrbType), types.OneLetter(pdbType)
	return a != "" && b != "" && a != b
}

// FilterComplete returns the rows that carry all three carbon shifts.
func FilterComplete(rows []types.Row) []types.Row {
	out := make([]types.Row, 0, len(rows))
	for _, r := range rows {
		if r.Complete() {
			out = append(out, r)
		}
	}
	return out
}
