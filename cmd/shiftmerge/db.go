// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/shiftmerge/internal/merge"
	"github.com/pdiddy/shiftmerge/internal/pairs"
	"github.com/pdiddy/shiftmerge/internal/store"
	"github.com/pdiddy/shiftmerge/pkg/types"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the residue index (ingest, query, stats, export)",
	Long: `Db manages a local SQLite index of merged residue rows stored in
data/index/shifts.db. Use subcommands to load rows, query them, summarize
shifts by residue type and secondary structure, or export.`,
}

// --- ingest subcommand ---

var dbIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a merged CSV table into the index",
	Long: `Ingest reads a CSV table written by merge and stores its rows. Each
entry pair in the file replaces any rows previously stored for it.`,
	RunE: runDBIngest,
}

func runDBIngest(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("csv")
	if path == "" {
		return fmt.Errorf("--csv is required")
	}
	rows, err := merge.ReadCSVFile(path)
	if err != nil {
		return err
	}

	s, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	runID := uuid.NewString()
	sum, err := s.Ingest(cmd.Context(), runID, rows)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d residue(s) from %d entry pair(s) (run %s)\n", sum.Residues, sum.Entries, runID)
	return nil
}

// --- query subcommand ---

var dbQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List indexed residues matching filters",
	Long: `Query lists residues from the index filtered by entry, residue type,
secondary structure, or completeness. Results are ordered by entry, chain
and residue number.`,
	Example: `  shiftmerge db query --type K --ss H --complete-only
  shiftmerge db query --bmrb 46 --json`,
	RunE: runDBQuery,
}

func runDBQuery(cmd *cobra.Command, args []string) error {
	opts := queryOptsFromFlags(cmd)

	s, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(os.Stdout, rows, jsonOutput)
}

func formatQueryOutput(w io.Writer, rows []types.Row, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-8s  %-6s  %-5s  %7s  %-4s  %8s  %8s  %8s  %s\n",
		"BMRB", "PDB", "Chain", "Residue", "Type", "C", "CA", "CB", "SS")
	fmt.Fprintln(w, strings.Repeat("-", 76))
	for _, r := range rows {
		fmt.Fprintf(w, "%-8s  %-6s  %-5s  %7d  %-4s  %8s  %8s  %8s  %s\n",
			r.BMRBID, r.PDBID, r.Chain, r.ResidueID, r.ResidueType,
			shiftCell(r.C), shiftCell(r.CA), shiftCell(r.CB), r.SecondaryStructure)
	}
	fmt.Fprintf(w, "\n%d results\n", len(rows))
	return nil
}

func shiftCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// --- stats subcommand ---

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show mean shifts by residue type and secondary structure",
	RunE:  runDBStats,
}

func runDBStats(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatStatsOutput(os.Stdout, stats, jsonOutput)
}

func formatStatsOutput(w io.Writer, stats []store.GroupStats, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, stats)
	}
	if len(stats) == 0 {
		fmt.Fprintln(w, "Index is empty.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-2s  %8s  %14s  %14s  %14s\n", "Type", "SS", "Residues", "C (n)", "CA (n)", "CB (n)")
	fmt.Fprintln(w, strings.Repeat("-", 66))
	for _, g := range stats {
		fmt.Fprintf(w, "%-4s  %-2s  %8d  %14s  %14s  %14s\n",
			g.ResidueType, g.SecondaryStructure, g.Residues,
			statCell(g.C), statCell(g.CA), statCell(g.CB))
	}
	return nil
}

func statCell(s store.ShiftStat) string {
	if s.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f (%d)", s.Mean, s.Count)
}

// --- export subcommand ---

var dbExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index to YAML or JSON",
	Long: `Export writes indexed residues, grouped by entry pair, to
data/index/export.yaml or export.json. Supports the same filter flags as
query for partial exports.`,
	RunE: runDBExport,
}

func runDBExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	opts := queryOptsFromFlags(cmd)

	s, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = s.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = s.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- entries subcommand ---

var dbEntriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List indexed entry pairs",
	RunE:  runDBEntries,
}

func runDBEntries(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.Entries(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSON(os.Stdout, entries)
	}
	if len(entries) == 0 {
		fmt.Println("Index is empty.")
		return nil
	}
	fmt.Printf("%-8s  %-6s  %8s  %-20s  %s\n", "BMRB", "PDB", "Residues", "Ingested", "Run")
	fmt.Println(strings.Repeat("-", 84))
	for _, e := range entries {
		fmt.Printf("%-8s  %-6s  %8d  %-20s  %s\n",
			e.BMRBID, e.PDBID, e.Residues, e.IngestedAt.Format("2006-01-02 15:04:05"), e.RunID)
	}
	return nil
}

// --- delete subcommand ---

var dbDeleteCmd = &cobra.Command{
	Use:   "delete BMRB:PDB...",
	Short: "Remove entry pairs and their residues from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDBDelete,
}

func runDBDelete(cmd *cobra.Command, args []string) error {
	list, err := pairs.ParseAll(args)
	if err != nil {
		return err
	}

	s, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	for _, p := range list {
		ok, err := s.DeleteEntry(cmd.Context(), p.BMRBID, p.PDBID)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("deleted:   %s\n", p)
		} else {
			fmt.Printf("not found: %s\n", p)
		}
	}
	return nil
}

// --- shared helpers ---

func queryOptsFromFlags(cmd *cobra.Command) store.QueryOptions {
	bmrbID, _ := cmd.Flags().GetString("bmrb")
	pdbID, _ := cmd.Flags().GetString("pdb")
	resType, _ := cmd.Flags().GetString("type")
	ss, _ := cmd.Flags().GetString("ss")
	completeOnly, _ := cmd.Flags().GetBool("complete-only")
	limit, _ := cmd.Flags().GetInt("limit")

	if bmrbID != "" {
		if id, err := pairs.NormalizeBMRB(bmrbID); err == nil {
			bmrbID = id
		}
	}
	return store.QueryOptions{
		BMRBID:             bmrbID,
		PDBID:              pdbID,
		ResidueType:        resType,
		SecondaryStructure: types.SecondaryStructure(ss),
		CompleteOnly:       completeOnly,
		MaxResults:         limit,
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("bmrb", "", "filter by BMRB ID")
	cmd.Flags().String("pdb", "", "filter by PDB ID")
	cmd.Flags().String("type", "", "filter by residue type (one- or three-letter code)")
	cmd.Flags().String("ss", "", "filter by secondary structure: H, E or C")
	cmd.Flags().Bool("complete-only", false, "only residues with C, CA and CB shifts")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	dbCmd.PersistentFlags().Int("max-results", 0, "default query result limit (default 1000)")
	viper.BindPFlag("max_results", dbCmd.PersistentFlags().Lookup("max-results"))

	dbIngestCmd.Flags().String("csv", "", "merged CSV table to load")

	addFilterFlags(dbQueryCmd)
	dbQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	dbQueryCmd.Flags().Bool("json", false, "output results as JSON")

	dbStatsCmd.Flags().Bool("json", false, "output stats as JSON")
	dbEntriesCmd.Flags().Bool("json", false, "output entries as JSON")

	addFilterFlags(dbExportCmd)
	dbExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	dbCmd.AddCommand(dbIngestCmd)
	dbCmd.AddCommand(dbQueryCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbExportCmd)
	dbCmd.AddCommand(dbEntriesCmd)
	dbCmd.AddCommand(dbDeleteCmd)

	rootCmd.AddCommand(dbCmd)
}
