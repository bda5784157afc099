// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// EntryPair links a BMRB chemical-shift entry to the PDB structure of the
// same protein. It is the unit of work for fetch and merge.
type EntryPair struct {
	// BMRBID is the BMRB accession number (e.g. "46").
	BMRBID string `json:"bmrb_id" yaml:"bmrb_id"`

	// PDBID is the lower-case four-character PDB code (e.g. "1boc").
	PDBID string `json:"pdb_id" yaml:"pdb_id"`

	// Offset is added to BMRB residue numbers to align them with PDB numbering.
	Offset int `json:"offset,omitempty" yaml:"offset,omitempty"`
}

func (p EntryPair) String() string {
	return p.BMRBID + ":" + p.PDBID
}

// SecondaryStructure is a one-letter secondary-structure class.
type SecondaryStructure string

const (
	Helix  SecondaryStructure = "H"
	Strand SecondaryStructure = "E"
	Coil   SecondaryStructure = "C"
)

// ShiftRecord holds the averaged backbone carbon shifts for one residue of
// a BMRB entry. Nil values were not observed.
type ShiftRecord struct {
	ResidueID   int      `json:"residue_id" yaml:"residue_id"`
	ResidueType string   `json:"residue_type" yaml:"residue_type"`
	C           *float64 `json:"c,omitempty" yaml:"c,omitempty"`
	CA          *float64 `json:"ca,omitempty" yaml:"ca,omitempty"`
	CB          *float64 `json:"cb,omitempty" yaml:"cb,omitempty"`
}

// StructureResidue is one amino-acid residue from the first model of a PDB file.
type StructureResidue struct {
	Chain              string             `json:"chain" yaml:"chain"`
	ResidueID          int                `json:"residue_id" yaml:"residue_id"`
	InsertionCode      string             `json:"insertion_code,omitempty" yaml:"insertion_code,omitempty"`
	ResidueType        string             `json:"residue_type" yaml:"residue_type"`
	SecondaryStructure SecondaryStructure `json:"secondary_structure" yaml:"secondary_structure"`
}

// Row is one line of merged output.
type Row struct {
	BMRBID             string             `json:"bmrb_id" yaml:"bmrb_id"`
	PDBID              string             `json:"pdb_id" yaml:"pdb_id"`
	Chain              string             `json:"chain" yaml:"chain"`
	ResidueID          int                `json:"residue_id" yaml:"residue_id"`
	ResidueType        string             `json:"residue_type" yaml:"residue_type"`
	C                  *float64           `json:"c_shift" yaml:"c_shift"`
	CA                 *float64           `json:"ca_shift" yaml:"ca_shift"`
	CB                 *float64           `json:"cb_shift" yaml:"cb_shift"`
	SecondaryStructure SecondaryStructure `json:"secondary_structure" yaml:"secondary_structure"`
}

// Complete reports whether all three carbon shifts are present.
func (r Row) Complete() bool {
	return r.C != nil && r.CA != nil && r.CB != nil
}

// threeToOne maps the 20 standard amino-acid codes to one-letter codes.
var threeToOne = map[string]string{
	"ALA": "A", "ARG": "R", "ASN": "N", "ASP": "D", "CYS": "C",
	"GLN": "Q", "GLU": "E", "GLY": "G", "HIS": "H", "ILE": "I",
	"LEU": "L", "LYS": "K", "MET": "M", "PHE": "F", "PRO": "P",
	"SER": "S", "THR": "T", "TRP": "W", "TYR": "Y", "VAL": "V",
}

// IsStandardAminoAcid reports whether code is one of the 20 standard
// three-letter residue names.
func IsStandardAminoAcid(code string) bool {
	_, ok := threeToOne[code]
	return ok
}

// OneLetter returns the one-letter code for a residue name. One-letter
// input is returned as-is; unknown names return "".
func OneLetter(code string) string {
	if len(code) == 1 {
		return code
	}
	return threeToOne[code]
}

// ThreeLetter returns the three-letter residue name for a one-letter code.
// Three-letter input is upper-cased and returned when it is a standard
// residue; anything else returns "".
func ThreeLetter(code string) string {
	code = strings.ToUpper(code)
	if IsStandardAminoAcid(code) {
		return code
	}
	for three, one := range threeToOne {
		if one == code {
			return three
		}
	}
	return ""
}
