// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads BMRB chemical-shift files and PDB coordinate files
// into a local data directory. Existing files are reused unless a refresh is
// requested, and downloads land atomically through a temp file.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/shiftmerge/internal/httputil"
	"github.com/pdiddy/shiftmerge/pkg/types"
)

const (
	bmrbDir = "bmrb"
	pdbDir  = "pdb"
)

var (
	// ErrNotFound is returned when the server answers 404 for a file.
	ErrNotFound = errors.New("file not found on server")

	// ErrEmptyFile is returned when the server answers 200 with no body.
	ErrEmptyFile = errors.New("server returned an empty file")
)

// Kind identifies the archive a file comes from.
type Kind int

const (
	KindBMRB Kind = iota
	KindPDB
)

func (k Kind) String() string {
	switch k {
	case KindBMRB:
		return "bmrb"
	case KindPDB:
		return "pdb"
	default:
		return "unknown"
	}
}

// Target is one file to download.
type Target struct {
	Kind Kind
	ID   string
	URL  string
	Path string
}

// Result is the outcome of fetching one Target. Err is set when the
// download failed.
type Result struct {
	Target
	Skipped bool
	Bytes   int64
	Err     error
}

// PairResult holds the two files of an entry pair.
type PairResult struct {
	Pair types.EntryPair
	BMRB Result
	PDB  Result
}

// Fetcher downloads entry files. It is safe for concurrent use; requests
// for the same file are serialized so the second one finds the file on disk.
type Fetcher struct {
	client  *http.Client
	cfg     types.FetchConfig
	limiter *rate.Limiter
	locks   pathLocks
	log     *zap.Logger
}

// pathLocks is a set of per-path mutexes that can be acquired under a context.
type pathLocks struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

func (l *pathLocks) lock(ctx context.Context, path string) (func(), error) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]chan struct{})
	}
	ch, ok := l.m[path]
	if !ok {
		ch = make(chan struct{}, 1)
		l.m[path] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// New returns a Fetcher. Zero config fields take their defaults. Downloads
// are spaced at least cfg.Delay apart across all goroutines.
func New(client *http.Client, cfg types.FetchConfig, log *zap.Logger) *Fetcher {
	cfg = cfg.WithDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Config returns the effective configuration.
func (f *Fetcher) Config() types.FetchConfig { return f.cfg }

// BMRBTarget returns the download target for a BMRB entry in the
// configured format.
func (f *Fetcher) BMRBTarget(id string) Target {
	base := strings.TrimRight(f.cfg.BMRBBaseURL, "/")
	t := Target{Kind: KindBMRB, ID: id}
	switch f.cfg.Format {
	case types.FormatNMRStar:
		t.URL = fmt.Sprintf("%s/bmr%s/bmr%s_3.str", base, id, id)
		t.Path = filepath.Join(f.cfg.DataDir, bmrbDir, "bmr"+id+"_3.str")
	default:
		t.URL = fmt.Sprintf("%s/bmr%s/validation/AVS_full.txt", base, id)
		t.Path = filepath.Join(f.cfg.DataDir, bmrbDir, id+"_AVS_full.txt")
	}
	return t
}

// PDBTarget returns the download target for a PDB entry.
func (f *Fetcher) PDBTarget(id string) Target {
	base := strings.TrimRight(f.cfg.PDBBaseURL, "/")
	return Target{
		Kind: KindPDB,
		ID:   id,
		URL:  fmt.Sprintf("%s/%s.pdb", base, id),
		Path: filepath.Join(f.cfg.DataDir, pdbDir, id+".pdb"),
	}
}

// Fetch downloads t unless its file already exists and refresh is off.
func (f *Fetcher) Fetch(ctx context.Context, t Target) (Result, error) {
	unlock, err := f.locks.lock(ctx, t.Path)
	if err != nil {
		return Result{Target: t, Err: err}, err
	}
	defer unlock()

	r, err := f.fetch(ctx, t)
	if err != nil {
		return Result{Target: t, Err: err}, err
	}
	return r, nil
}

func (f *Fetcher) fetch(ctx context.Context, t Target) (Result, error) {
	if !f.cfg.Refresh {
		if info, err := os.Stat(t.Path); err == nil && info.Size() > 0 {
			f.log.Debug("file exists, skipping download",
				zap.Stringer("kind", t.Kind), zap.String("id", t.ID), zap.String("path", t.Path))
			return Result{Target: t, Skipped: true, Bytes: info.Size()}, nil
		}
	}

	dir := filepath.Dir(t.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	f.log.Debug("downloading", zap.Stringer("kind", t.Kind), zap.String("id", t.ID), zap.String("url", t.URL))
	n, err := f.download(ctx, t.URL, t.Path)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", t.Kind, t.ID, err)
	}
	f.log.Info("downloaded",
		zap.Stringer("kind", t.Kind), zap.String("id", t.ID), zap.Int64("bytes", n))
	return Result{Target: t, Bytes: n}, nil
}

// FetchBMRB downloads the chemical-shift file for a BMRB entry.
func (f *Fetcher) FetchBMRB(ctx context.Context, id string) (Result, error) {
	return f.Fetch(ctx, f.BMRBTarget(id))
}

// FetchPDB downloads the coordinate file for a PDB entry.
func (f *Fetcher) FetchPDB(ctx context.Context, id string) (Result, error) {
	return f.Fetch(ctx, f.PDBTarget(id))
}

// FetchPair downloads both files of a pair concurrently. A failure of one
// file does not cancel the other; each outcome is recorded in its Result and
// the first error is returned.
func (f *Fetcher) FetchPair(ctx context.Context, p types.EntryPair) (PairResult, error) {
	pr := PairResult{Pair: p}
	var g errgroup.Group
	g.Go(func() error {
		r, err := f.FetchBMRB(ctx, p.BMRBID)
		pr.BMRB = r
		return err
	})
	g.Go(func() error {
		r, err := f.FetchPDB(ctx, p.PDBID)
		pr.PDB = r
		return err
	})
	return pr, g.Wait()
}

// download fetches url to destPath through a temporary file. It sets the
// User-Agent and retries throttled responses.
func (f *Fetcher) download(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.cfg.MaxRetries, f.log)
	if err != nil {
		return 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	switch {
	case copyErr != nil:
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing download: %w", copyErr)
	case closeErr != nil:
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	case n == 0:
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: %s", ErrEmptyFile, url)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}
