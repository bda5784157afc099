// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the shiftmerge CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in PersistentPreRunE from the --verbose flag.
var logger = zap.NewNop()

// rootCmd is the base command for the shiftmerge CLI.
var rootCmd = &cobra.Command{
	Use:   "shiftmerge",
	Short: "Merge BMRB chemical shifts with PDB secondary structure",
	Long: `shiftmerge downloads BMRB chemical-shift records and PDB coordinate
files, extracts per-residue C, CA and CB shifts and secondary structure, and
merges them into a single CSV table.

Stages are subcommands: fetch downloads files, merge runs the full pipeline,
and db manages a local SQLite index of merged residues.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetBool("verbose"))
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./shiftmerge.yaml or ~/.config/shiftmerge/shiftmerge.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base directory for downloads and the index (default data)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if err := loadConfig(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading config file:", err)
	}
}

// loadConfig points v at cfgFile, or searches ./shiftmerge.yaml and
// ~/.config/shiftmerge/shiftmerge.yaml when cfgFile is empty. Finding no
// file in the search path is not an error.
func loadConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("shiftmerge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "shiftmerge"))
		}
	}

	v.SetEnvPrefix("SHIFTMERGE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// newLogger returns a console logger on stderr at info level, or debug
// level when verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
