// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/shiftmerge/internal/pairs"
	"github.com/pdiddy/shiftmerge/internal/store"
	"github.com/pdiddy/shiftmerge/pkg/types"
)

func pairsCmd(t *testing.T, file string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addFetchFlags(cmd)
	if file != "" {
		require.NoError(t, cmd.Flags().Set("pairs", file))
	}
	return cmd
}

func TestCollectPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.yaml")
	require.NoError(t, pairs.WriteFile(path, []types.EntryPair{
		{BMRBID: "46", PDBID: "1boc"},
		{BMRBID: "4020", PDBID: "1ubq", Offset: -1},
	}))

	got, err := collectPairs(pairsCmd(t, path), []string{"46:1BOC", "bmr6457:2k0e"})
	require.NoError(t, err)
	assert.Equal(t, []types.EntryPair{
		{BMRBID: "46", PDBID: "1boc"},
		{BMRBID: "6457", PDBID: "2k0e"},
		{BMRBID: "4020", PDBID: "1ubq", Offset: -1},
	}, got)
}

func TestCollectPairsErrors(t *testing.T) {
	_, err := collectPairs(pairsCmd(t, ""), nil)
	assert.ErrorContains(t, err, "provide one or more")

	_, err = collectPairs(pairsCmd(t, ""), []string{"46"})
	assert.Error(t, err)

	_, err = collectPairs(pairsCmd(t, filepath.Join(t.TempDir(), "missing.yaml")), nil)
	assert.ErrorContains(t, err, "reading pairs file")
}

func f(v float64) *float64 { return &v }

func TestFormatQueryOutput(t *testing.T) {
	rows := []types.Row{
		{BMRBID: "46", PDBID: "1boc", Chain: "A", ResidueID: 1, ResidueType: "LYS",
			C: f(176.49), CA: f(56.95), SecondaryStructure: types.Helix},
	}

	var buf bytes.Buffer
	require.NoError(t, formatQueryOutput(&buf, rows, false))
	out := buf.String()
	assert.Contains(t, out, "176.49")
	assert.Contains(t, out, "56.95")
	assert.Contains(t, out, "\n1 results\n")
	line := strings.Split(out, "\n")[2]
	assert.Equal(t, []string{"46", "1boc", "A", "1", "LYS", "176.49", "56.95", "-", "H"}, strings.Fields(line))

	buf.Reset()
	require.NoError(t, formatQueryOutput(&buf, nil, false))
	assert.Equal(t, "No results found.\n", buf.String())

	buf.Reset()
	require.NoError(t, formatQueryOutput(&buf, rows, true))
	assert.Contains(t, buf.String(), `"ca_shift": 56.95`)
	assert.Contains(t, buf.String(), `"cb_shift": null`)
}

func TestFormatStatsOutput(t *testing.T) {
	stats := []store.GroupStats{{
		ResidueType:        "GLY",
		SecondaryStructure: types.Coil,
		Residues:           3,
		CA:                 store.ShiftStat{Mean: 45.126, Count: 2},
	}}

	var buf bytes.Buffer
	require.NoError(t, formatStatsOutput(&buf, stats, false))
	assert.Contains(t, buf.String(), "45.13 (2)")

	buf.Reset()
	require.NoError(t, formatStatsOutput(&buf, nil, false))
	assert.Equal(t, "Index is empty.\n", buf.String())
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))

	l, err = newLogger(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(os.Stdout) })

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "shiftmerge dev\n", buf.String())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	// No file in the search path is fine.
	require.NoError(t, loadConfig(viper.New(), ""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "shiftmerge.yaml"), []byte("workers: 4\n"), 0o644))
	v := viper.New()
	require.NoError(t, loadConfig(v, ""))
	assert.Equal(t, 4, v.GetInt("workers"))

	// A malformed file found by the search is reported.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shiftmerge.yaml"), []byte("workers: [4\n"), 0o644))
	assert.Error(t, loadConfig(viper.New(), ""))

	// An explicit path that does not exist is reported.
	assert.Error(t, loadConfig(viper.New(), filepath.Join(dir, "missing.yaml")))

	usage := rootCmd.PersistentFlags().Lookup("config").Usage
	assert.Contains(t, usage, "~/.config/shiftmerge/shiftmerge.yaml")
}
