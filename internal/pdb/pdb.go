// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdb reads amino-acid residues and their HELIX/SHEET secondary
// structure assignments from legacy fixed-column PDB files.
package pdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

// ErrNoResidues is returned when the first model contains no standard
// amino-acid residues.
var ErrNoResidues = errors.New("no amino-acid residues found")

// Range is a secondary-structure segment from a HELIX or SHEET record.
// Start and End are inclusive residue numbers within Chain.
type Range struct {
	Class types.SecondaryStructure
	Chain string
	Start int
	End   int
}

// Structure is the parsed content of a PDB file.
type Structure struct {
	// IDCode is the four-character code from the HEADER record, if present.
	IDCode string

	// Ranges lists HELIX and SHEET segments in file order.
	Ranges []Range

	// Residues lists standard amino-acid residues of the first model in
	// file order, with secondary structure applied.
	Residues []types.StructureResidue

	// SkippedAtoms counts amino-acid ATOM/HETATM records dropped because
	// their residue columns could not be read.
	SkippedAtoms int
}

type residueKey struct {
	chain string
	seq   int
	icode string
}

type ssKey struct {
	chain string
	seq   int
}

// Parse reads a PDB file. Secondary structure records are applied in file
// order so a later record overrides an earlier one for the same residue.
// Residues not covered by any record are coil. Malformed HELIX and SHEET
// records are errors; unreadable atom records are skipped and counted.
func Parse(r io.Reader) (*Structure, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	s := &Structure{}
	seen := make(map[residueKey]bool)
	inFirstModel := true
	lineNum := 0

	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")

		switch record(line) {
		case "HEADER":
			if len(line) >= 66 {
				s.IDCode = strings.TrimSpace(line[62:66])
			}
		case "HELIX":
			rg, err := parseRange(line, types.Helix, 19, 21, 25, 33, 37)
			if err != nil {
				return nil, fmt.Errorf("line %d: HELIX: %w", lineNum, err)
			}
			s.Ranges = append(s.Ranges, rg)
		case "SHEET":
			rg, err := parseRange(line, types.Strand, 21, 22, 26, 33, 37)
			if err != nil {
				return nil, fmt.Errorf("line %d: SHEET: %w", lineNum, err)
			}
			s.Ranges = append(s.Ranges, rg)
		case "ENDMDL":
			inFirstModel = false
		case "ATOM", "HETATM":
			if !inFirstModel {
				continue
			}
			res, ok, err := parseAtom(line)
			if err != nil {
				s.SkippedAtoms++
				continue
			}
			if !ok {
				continue
			}
			k := residueKey{res.Chain, res.ResidueID, res.InsertionCode}
			if seen[k] {
				continue
			}
			seen[k] = true
			s.Residues = append(s.Residues, res)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading PDB file: %w", err)
	}

	assign(s)
	if len(s.Residues) == 0 {
		return s, ErrNoResidues
	}
	return s, nil
}

// ParseFile opens and parses a PDB file.
func ParseFile(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// assignments returns the secondary structure class of every residue
// covered by a HELIX or SHEET record.
func (s *Structure) assignments() map[ssKey]types.SecondaryStructure {
	m := make(map[ssKey]types.SecondaryStructure)
	for _, rg := range s.Ranges {
		for seq := rg.Start; seq <= rg.End; seq++ {
			m[ssKey{rg.Chain, seq}] = rg.Class
		}
	}
	return m
}

// Counts returns the number of residues in each secondary structure class.
func (s *Structure) Counts() map[types.SecondaryStructure]int {
	c := make(map[types.SecondaryStructure]int, 3)
	for _, r := range s.Residues {
		c[r.SecondaryStructure]++
	}
	return c
}

func assign(s *Structure) {
	ss := s.assignments()
	for i := range s.Residues {
		r := &s.Residues[i]
		class, ok := ss[ssKey{r.Chain, r.ResidueID}]
		if !ok {
			class = types.Coil
		}
		r.SecondaryStructure = class
	}
}

func record(line string) string {
	if len(line) > 6 {
		return strings.TrimSpace(line[:6])
	}
	return strings.TrimSpace(line)
}

// parseRange extracts chain and inclusive residue bounds from a HELIX or
// SHEET record. Offsets are zero-based column indices.
func parseRange(line string, class types.SecondaryStructure, chainCol, startFrom, startTo, endFrom, endTo int) (Range, error) {
	if len(line) < endTo {
		return Range{}, fmt.Errorf("record too short (%d columns)", len(line))
	}
	start, err := strconv.Atoi(strings.TrimSpace(line[startFrom:startTo]))
	if err != nil {
		return Range{}, fmt.Errorf("start residue: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(line[endFrom:endTo]))
	if err != nil {
		return Range{}, fmt.Errorf("end residue: %w", err)
	}
	if end < start {
		return Range{}, fmt.Errorf("end residue %d before start %d", end, start)
	}
	return Range{
		Class: class,
		Chain: strings.TrimSpace(line[chainCol : chainCol+1]),
		Start: start,
		End:   end,
	}, nil
}

// parseAtom returns the residue an ATOM/HETATM record belongs to. ok is
// false for non-standard residues such as waters and ligands.
func parseAtom(line string) (types.StructureResidue, bool, error) {
	if len(line) < 20 {
		return types.StructureResidue{}, false, fmt.Errorf("record too short (%d columns)", len(line))
	}
	name := strings.TrimSpace(line[17:20])
	if !types.IsStandardAminoAcid(name) {
		return types.StructureResidue{}, false, nil
	}
	if len(line) < 26 {
		return types.StructureResidue{}, false, fmt.Errorf("record too short (%d columns)", len(line))
	}
	seq, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
	if err != nil {
		return types.StructureResidue{}, false, fmt.Errorf("residue number: %w", err)
	}
	var icode string
	if len(line) > 26 {
		icode = strings.TrimSpace(line[26:27])
	}
	return types.StructureResidue{
		Chain:         strings.TrimSpace(line[21:22]),
		ResidueID:     seq,
		InsertionCode: icode,
		ResidueType:   name,
	}, true, nil
}
