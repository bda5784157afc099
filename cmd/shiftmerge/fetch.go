// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/shiftmerge/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [pairs...]",
	Short: "Download BMRB and PDB files for entry pairs",
	Long: `Fetch downloads the BMRB chemical-shift file and the PDB coordinate
file for each BMRB:PDB pair into data/bmrb/ and data/pdb/. Existing files
are skipped unless --refresh is set.`,
	Example: `  shiftmerge fetch 46:1boc 4020:1ubq
  shiftmerge fetch --pairs pairs.yaml --format nmrstar`,
	RunE: runFetch,
}

func init() {
	addFetchFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, fetchFlagKeys); err != nil {
		return err
	}
	list, err := collectPairs(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := fetchConfig()
	if err != nil {
		return err
	}

	f := fetch.New(httpClient(cfg), cfg, logger)
	result := f.FetchBatch(cmd.Context(), list, os.Stdout)
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d pair(s) failed download", result.Failed)
	}
	return nil
}
