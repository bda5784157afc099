// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bmrb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

const sampleAVS = `AVS report for entry 46

M0
  no carbon data
K1
Ave C Shift Values>> C :: 176.49 CA :: 56.95 CB :: 30.66
  Deviation report...
P2
Ave C Shift Values>> C :: 174.10 CA :: 63.20
G3
Ave C Shift Values>> CA :: 45.30
Ave C Shift Values>> C :: 999.0 CA :: 999.0 CB :: 999.0
V4
`

const sampleNMRStar3 = `data_46

save_assigned_chem_shift_list_1
   _Assigned_chem_shift_list.Sf_category   assigned_chemical_shifts
   _Assigned_chem_shift_list.Details
;
loop_
   this text field must be ignored
stop_
;

   loop_
      _Atom_chem_shift.ID
      _Atom_chem_shift.Comp_index_ID
      _Atom_chem_shift.Seq_ID
      _Atom_chem_shift.Comp_ID
      _Atom_chem_shift.Atom_ID
      _Atom_chem_shift.Atom_type
      _Atom_chem_shift.Val
      _Atom_chem_shift.Val_err
      _Atom_chem_shift.Details

      1  1  1  LYS  C   C  176.49  0.1  .
      2  1  1  LYS  CA  C  56.95   0.1  .
      3  1  1  LYS  CB  C  30.66   0.1  .
      4  1  1  LYS  H   H  8.21    0.02 'amide proton'
      5  2  .  PRO  CA  C  63.20   0.1  .
      6  3  3  GLY  CA  C
         45.30 0.1 "split across lines"
      7  4  4  VAL  CB  C  .       .    .
   stop_
save_
`

const sampleNMRStar21 = `data_bmr46

save_shifts
   loop_
      _Atom_shift_assign_ID
      _Residue_seq_code
      _Residue_label
      _Atom_name
      _Atom_type
      _Chem_shift_value
      _Chem_shift_value_error
      _Chem_shift_ambiguity_code

      1  1 LYS C   C 176.49 0.1 1
      2  1 LYS CA  C 56.95  0.1 1
      3  2 PRO CB  C 32.00  0.1 1
   stop_
save_
`

func f(v float64) *float64 { return &v }

func TestParseAVS(t *testing.T) {
	recs, err := ParseAVS(strings.NewReader(sampleAVS))
	require.NoError(t, err)

	require.Len(t, recs, 3)
	assert.Equal(t, types.ShiftRecord{ResidueID: 1, ResidueType: "K", C: f(176.49), CA: f(56.95), CB: f(30.66)}, recs[0])
	assert.Equal(t, types.ShiftRecord{ResidueID: 2, ResidueType: "P", C: f(174.10), CA: f(63.20)}, recs[1])
	// The second average line has no open residue and is ignored.
	assert.Equal(t, types.ShiftRecord{ResidueID: 3, ResidueType: "G", CA: f(45.30)}, recs[2])
}

func TestParseAVS_LastDuplicateWins(t *testing.T) {
	in := "A5\nAve C Shift Values>> CA :: 50.0\nA5\nAve C Shift Values>> CA :: 51.5\n"
	recs, err := ParseAVS(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 51.5, *recs[0].CA)
}

func TestParseAVS_Empty(t *testing.T) {
	_, err := ParseAVS(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoShifts)

	_, err = ParseAVS(strings.NewReader("<html>404 Not Found</html>\n"))
	assert.ErrorIs(t, err, ErrNoShifts)
}

func TestParseNMRStar3(t *testing.T) {
	recs, err := ParseNMRStar(strings.NewReader(sampleNMRStar3))
	require.NoError(t, err)

	require.Len(t, recs, 3)
	assert.Equal(t, types.ShiftRecord{ResidueID: 1, ResidueType: "LYS", C: f(176.49), CA: f(56.95), CB: f(30.66)}, recs[0])
	// Seq_ID is null so Comp_index_ID is used.
	assert.Equal(t, types.ShiftRecord{ResidueID: 2, ResidueType: "PRO", CA: f(63.20)}, recs[1])
	assert.Equal(t, types.ShiftRecord{ResidueID: 3, ResidueType: "GLY", CA: f(45.30)}, recs[2])
}

func TestParseNMRStar21(t *testing.T) {
	recs, err := ParseNMRStar(strings.NewReader(sampleNMRStar21))
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, 176.49, *recs[0].C)
	assert.Equal(t, 56.95, *recs[0].CA)
	assert.Nil(t, recs[0].CB)
	assert.Equal(t, "PRO", recs[1].ResidueType)
	assert.Equal(t, 32.00, *recs[1].CB)
}

func TestParseNMRStar_NoShiftLoop(t *testing.T) {
	in := "data_x\nloop_\n _Entity_poly_seq.Num\n _Entity_poly_seq.Mon_ID\n 1 LYS\nstop_\n"
	_, err := ParseNMRStar(strings.NewReader(in))
	assert.ErrorIs(t, err, ErrNoShifts)
}

func TestParseNMRStar_UnterminatedQuote(t *testing.T) {
	in := "loop_\n_Atom_chem_shift.Seq_ID\n_Atom_chem_shift.Atom_ID\n_Atom_chem_shift.Val\n1 'CA 56.0\nstop_\n"
	_, err := ParseNMRStar(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 5")
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"1 LYS CA 56.95", []string{"1", "LYS", "CA", "56.95"}},
		{"  a\tb  ", []string{"a", "b"}},
		{`1 'two words' "x y" z`, []string{"1", "two words", "x y", "z"}},
		{`'it's fine'`, []string{"it's fine"}},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := tokenize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDetect(t *testing.T) {
	assert.Equal(t, types.FormatNMRStar, Detect([]byte(sampleNMRStar3)))
	assert.Equal(t, types.FormatNMRStar, Detect([]byte(sampleNMRStar21)))
	assert.Equal(t, types.FormatAVS, Detect([]byte(sampleAVS)))
}

func TestParse_Formats(t *testing.T) {
	recs, err := Parse(strings.NewReader(sampleNMRStar3), "")
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	recs, err = Parse(strings.NewReader(sampleAVS), types.FormatAVS)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	_, err = Parse(strings.NewReader(sampleAVS), "xml")
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "46_AVS_full.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleAVS), 0o644))

	recs, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ParseFile(empty)
	assert.ErrorIs(t, err, ErrNoShifts)
	assert.Contains(t, err.Error(), "empty.txt")

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShiftMap(t *testing.T) {
	m := ShiftMap([]types.ShiftRecord{{ResidueID: 4}, {ResidueID: 9, ResidueType: "A"}})
	assert.Len(t, m, 2)
	assert.Equal(t, "A", m[9].ResidueType)
}
