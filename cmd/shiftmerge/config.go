// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/shiftmerge/internal/pairs"
	"github.com/pdiddy/shiftmerge/pkg/types"
)

func init() {
	viper.SetDefault("data_dir", types.DefaultDataDir)
	viper.SetDefault("bmrb_base_url", types.DefaultBMRBBaseURL)
	viper.SetDefault("pdb_base_url", types.DefaultPDBBaseURL)
	viper.SetDefault("user_agent", types.DefaultUserAgent)
	viper.SetDefault("timeout", types.DefaultTimeout)
	viper.SetDefault("delay", types.DefaultDelay)
	viper.SetDefault("format", string(types.FormatAVS))
	viper.SetDefault("output", filepath.Join(types.DefaultOutputDir, types.DefaultOutputFile))
	viper.SetDefault("workers", 1)
	viper.SetDefault("max_results", types.DefaultMaxResults)
}

// addFetchFlags registers the download flags shared by fetch and merge.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("pairs", "", "YAML file listing entry pairs")
	cmd.Flags().String("format", "", "BMRB file format: avs or nmrstar (default avs)")
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 10s)")
	cmd.Flags().Duration("delay", 0, "minimum delay between downloads (default 500ms)")
	cmd.Flags().Int("max-retries", 0, "retries on HTTP 429/503 (default 5)")
	cmd.Flags().Bool("refresh", false, "re-download files that already exist")
}

// bindFlags binds the named flags of cmd to viper keys. Binding happens when
// the command runs so that commands sharing a key do not shadow each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

var fetchFlagKeys = map[string]string{
	"format":      "format",
	"timeout":     "timeout",
	"delay":       "delay",
	"max_retries": "max-retries",
	"refresh":     "refresh",
}

// fetchConfig assembles a FetchConfig from flags, environment and config file.
func fetchConfig() (types.FetchConfig, error) {
	format := types.BMRBFormat(viper.GetString("format"))
	if !format.Valid() {
		return types.FetchConfig{}, fmt.Errorf("unsupported format %q: use avs or nmrstar", format)
	}
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    viper.GetDuration("timeout"),
			UserAgent:  viper.GetString("user_agent"),
			MaxRetries: viper.GetInt("max_retries"),
		},
		DataDir:     viper.GetString("data_dir"),
		BMRBBaseURL: viper.GetString("bmrb_base_url"),
		PDBBaseURL:  viper.GetString("pdb_base_url"),
		Format:      format,
		Delay:       viper.GetDuration("delay"),
		Refresh:     viper.GetBool("refresh"),
	}, nil
}

func storeConfig() types.StoreConfig {
	return types.StoreConfig{
		DataDir:    viper.GetString("data_dir"),
		MaxResults: viper.GetInt("max_results"),
	}
}

func httpClient(cfg types.FetchConfig) *http.Client {
	return &http.Client{Timeout: cfg.WithDefaults().Timeout}
}

// collectPairs combines pairs given as arguments with those in the --pairs
// file, dropping duplicates.
func collectPairs(cmd *cobra.Command, args []string) ([]types.EntryPair, error) {
	list, err := pairs.ParseAll(args)
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("pairs"); path != "" {
		fromFile, err := pairs.ReadFile(path)
		if err != nil {
			return nil, err
		}
		list = append(list, fromFile...)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("provide one or more BMRB:PDB pairs (e.g. 46:1boc) or --pairs FILE")
	}
	return pairs.Dedupe(list), nil
}
