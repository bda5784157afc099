// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

// BatchResult holds the outcome of a batch download run. Downloaded,
// Skipped and FailedFiles count files across both files of every pair;
// Failed counts pairs with at least one failed file.
type BatchResult struct {
	Downloaded  int
	Skipped     int
	FailedFiles int
	Failed      int
	Pairs       []PairResult
}

// Files returns the number of files downloaded or reused.
func (r BatchResult) Files() int {
	return r.Downloaded + r.Skipped
}

// HasFailures reports whether any pair failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// FetchBatch downloads every pair in order, printing one status line per
// file to w. It continues after individual failures and stops only when ctx
// is cancelled.
func (f *Fetcher) FetchBatch(ctx context.Context, pairs []types.EntryPair, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range pairs {
		if ctx.Err() != nil {
			break
		}
		pr, err := f.FetchPair(ctx, p)
		for _, r := range []Result{pr.BMRB, pr.PDB} {
			switch {
			case r.Err != nil:
				fmt.Fprintf(w, "failed:     %s %s (%v)\n", r.Kind, r.ID, r.Err)
				result.FailedFiles++
			case r.Skipped:
				fmt.Fprintf(w, "skipped:    %s %s (already exists)\n", r.Kind, r.ID)
				result.Skipped++
			default:
				fmt.Fprintf(w, "downloaded: %s %s (%d bytes)\n", r.Kind, r.ID, r.Bytes)
				result.Downloaded++
			}
		}
		if err != nil {
			f.log.Warn("pair download failed", zap.Stringer("pair", p), zap.Error(err))
			result.Failed++
		}
		result.Pairs = append(result.Pairs, pr)
	}
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed; %d of %d pair(s) failed\n",
		result.Downloaded, result.Skipped, result.FailedFiles, result.Failed, len(pairs))
	return result
}
