// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryPairString(t *testing.T) {
	assert.Equal(t, "46:1boc", EntryPair{BMRBID: "46", PDBID: "1boc", Offset: 2}.String())
}

func TestRowComplete(t *testing.T) {
	v := 1.0
	assert.True(t, Row{C: &v, CA: &v, CB: &v}.Complete())
	assert.False(t, Row{C: &v, CA: &v}.Complete())
	assert.False(t, Row{}.Complete())
}

func TestResidueCodes(t *testing.T) {
	tests := []struct {
		in         string
		one        string
		three      string
		isStandard bool
	}{
		{"LYS", "K", "LYS", true},
		{"K", "K", "LYS", false},
		{"gly", "", "GLY", false},
		{"g", "g", "GLY", false},
		{"HOH", "", "", false},
		{"X", "X", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.one, OneLetter(tt.in))
			assert.Equal(t, tt.three, ThreeLetter(tt.in))
			assert.Equal(t, tt.isStandard, IsStandardAminoAcid(tt.in))
		})
	}
}

func TestFetchConfigWithDefaults(t *testing.T) {
	got := FetchConfig{DataDir: "d", Format: FormatNMRStar}.WithDefaults()
	assert.Equal(t, DefaultTimeout, got.Timeout)
	assert.Equal(t, DefaultUserAgent, got.UserAgent)
	assert.Equal(t, DefaultBMRBBaseURL, got.BMRBBaseURL)
	assert.Equal(t, DefaultPDBBaseURL, got.PDBBaseURL)
	assert.Equal(t, "d", got.DataDir)
	assert.Equal(t, FormatNMRStar, got.Format)
	assert.Zero(t, got.Delay, "zero delay means no pacing")

	got = FetchConfig{}.WithDefaults()
	assert.Equal(t, DefaultDataDir, got.DataDir)
	assert.Equal(t, FormatAVS, got.Format)
}

func TestBMRBFormatValid(t *testing.T) {
	assert.True(t, FormatAVS.Valid())
	assert.True(t, FormatNMRStar.Valid())
	assert.False(t, BMRBFormat("cif").Valid())
	assert.False(t, BMRBFormat("").Valid())
}
