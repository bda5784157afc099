// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs fetch, parse and merge over a list of BMRB/PDB
// entry pairs and writes the combined residue table.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/shiftmerge/internal/bmrb"
	"github.com/pdiddy/shiftmerge/internal/fetch"
	"github.com/pdiddy/shiftmerge/internal/merge"
	"github.com/pdiddy/shiftmerge/internal/pdb"
	"github.com/pdiddy/shiftmerge/pkg/types"
)

// Status is the outcome of one entry pair.
type Status string

const (
	StatusMerged  Status = "merged"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// EntryResult is the outcome of processing one pair.
type EntryResult struct {
	Pair   types.EntryPair
	Status Status
	Rows   []types.Row
	Stats  merge.Stats
	Err    error
}

// Summary holds the outcome of a pipeline run.
type Summary struct {
	RunID      string
	Merged     int
	Skipped    int
	Failed     int
	Mismatches int

	// Rows is the table that was written, after any filtering.
	Rows []types.Row

	// OutputPath is empty when no table was written.
	OutputPath string

	Entries []EntryResult
}

// HasFailures reports whether any pair failed to parse or merge.
func (s Summary) HasFailures() bool { return s.Failed > 0 }

// Pipeline merges BMRB shifts with PDB secondary structure.
type Pipeline struct {
	fetcher *fetch.Fetcher
	cfg     types.MergeConfig
	log     *zap.Logger
	out     io.Writer
}

// New returns a Pipeline that downloads through fetcher and prints per-pair
// status lines to out.
func New(fetcher *fetch.Fetcher, cfg types.MergeConfig, log *zap.Logger, out io.Writer) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(types.DefaultOutputDir, types.DefaultOutputFile)
	}
	return &Pipeline{fetcher: fetcher, cfg: cfg, log: log, out: out}
}

// Run processes pairs with up to cfg.Workers in flight. Entry order in the
// summary and the table always follows input order. A pair whose files
// cannot be downloaded is skipped; a pair whose structure cannot be parsed
// fails; neither stops the run. The table is written only when at least
// one row was produced. Run returns an error only for cancellation or when
// the table cannot be written.
func (p *Pipeline) Run(ctx context.Context, pairs []types.EntryPair) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := p.log.With(zap.String("run_id", sum.RunID))
	log.Info("starting merge", zap.Int("pairs", len(pairs)), zap.Int("workers", p.cfg.Workers))

	results := make([]EntryResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.processPair(gctx, pair, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	var rows []types.Row
	for _, r := range results {
		switch r.Status {
		case StatusMerged:
			sum.Merged++
			sum.Mismatches += r.Stats.TypeMismatches
			rows = append(rows, r.Rows...)
			fmt.Fprintf(p.out, "merged:  %s (%d residues, %d with shifts)\n", r.Pair, r.Stats.Residues, r.Stats.Matched)
		case StatusSkipped:
			sum.Skipped++
			fmt.Fprintf(p.out, "skipped: %s (%v)\n", r.Pair, r.Err)
		case StatusFailed:
			sum.Failed++
			fmt.Fprintf(p.out, "failed:  %s (%v)\n", r.Pair, r.Err)
		}
	}
	sum.Entries = results

	if p.cfg.CompleteOnly {
		rows = merge.FilterComplete(rows)
	}
	sum.Rows = rows

	if len(rows) == 0 {
		log.Info("no valid data to process or save")
	} else {
		if err := merge.WriteCSVFile(p.cfg.OutputPath, rows); err != nil {
			return sum, fmt.Errorf("saving %s: %w", p.cfg.OutputPath, err)
		}
		sum.OutputPath = p.cfg.OutputPath
		log.Info("data saved", zap.String("path", p.cfg.OutputPath), zap.Int("rows", len(rows)))
	}

	fmt.Fprintf(p.out, "\nMerge summary: %d merged, %d skipped, %d failed; %d rows",
		sum.Merged, sum.Skipped, sum.Failed, len(rows))
	if sum.OutputPath != "" {
		fmt.Fprintf(p.out, " written to %s", sum.OutputPath)
	}
	fmt.Fprintln(p.out)
	return sum, nil
}

func (p *Pipeline) processPair(ctx context.Context, pair types.EntryPair, log *zap.Logger) EntryResult {
	res := EntryResult{Pair: pair}
	log = log.With(zap.Stringer("pair", pair))

	files, err := p.fetcher.FetchPair(ctx, pair)
	if err != nil {
		log.Warn("skipping entry due to missing files", zap.Error(err))
		res.Status, res.Err = StatusSkipped, err
		return res
	}

	shifts, err := bmrb.ParseFile(files.BMRB.Path)
	if err != nil {
		// Rows are still emitted, with empty shift columns.
		log.Warn("no chemical shifts parsed", zap.String("file", files.BMRB.Path), zap.Error(err))
		shifts = nil
	}

	structure, err := pdb.ParseFile(files.PDB.Path)
	if err != nil {
		log.Error("parsing PDB file", zap.String("file", files.PDB.Path), zap.Error(err))
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if structure.SkippedAtoms > 0 {
		log.Debug("skipped unreadable atom records", zap.String("file", files.PDB.Path),
			zap.Int("records", structure.SkippedAtoms))
	}

	rows, st := merge.Combine(pair, shifts, structure.Residues)
	if st.Matched > 0 && st.TypeMismatches*2 > st.Matched {
		log.Warn("most residue types disagree between BMRB and PDB; check the pair offset",
			zap.Int("mismatches", st.TypeMismatches), zap.Int("matched", st.Matched))
	}
	log.Debug("combined", zap.Int("residues", st.Residues), zap.Int("matched", st.Matched),
		zap.Int("complete", st.Complete))

	res.Status, res.Rows, res.Stats = StatusMerged, rows, st
	return res
}
