// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

const (
	fakeAVS     = "K1\nAve C Shift Values>> C :: 176.49 CA :: 56.95 CB :: 30.66\n"
	fakeNMRStar = "data_46\nloop_\n_Atom_chem_shift.Seq_ID\n_Atom_chem_shift.Atom_ID\n_Atom_chem_shift.Val\n1 CA 56.95\nstop_\n"
	fakePDB     = "ATOM      1  N   LYS A   1       1.000   2.000   3.000  1.00  0.00\n"
)

// archive is a fake BMRB + RCSB server that records request paths.
type archive struct {
	mu    sync.Mutex
	paths []string
	ua    string
}

func (a *archive) hits(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, p := range a.paths {
		if p == path {
			n++
		}
	}
	return n
}

func newArchive(t *testing.T) (*archive, *httptest.Server) {
	t.Helper()
	a := &archive{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.paths = append(a.paths, r.URL.Path)
		a.ua = r.Header.Get("User-Agent")
		a.mu.Unlock()

		switch r.URL.Path {
		case "/bmrb/bmr46/validation/AVS_full.txt":
			fmt.Fprint(w, fakeAVS)
		case "/bmrb/bmr46/bmr46_3.str":
			fmt.Fprint(w, fakeNMRStar)
		case "/bmrb/bmr7/validation/AVS_full.txt":
			// Empty body.
		case "/bmrb/bmr500/validation/AVS_full.txt":
			w.WriteHeader(http.StatusInternalServerError)
		case "/rcsb/1boc.pdb", "/rcsb/2abc.pdb":
			fmt.Fprint(w, fakePDB)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return a, ts
}

func testFetcher(t *testing.T, ts *httptest.Server, mutate func(*types.FetchConfig)) (*Fetcher, string) {
	t.Helper()
	dataDir := t.TempDir()
	cfg := types.FetchConfig{
		HTTPConfig:  types.HTTPConfig{UserAgent: "shiftmerge-test", MaxRetries: 1},
		DataDir:     dataDir,
		BMRBBaseURL: ts.URL + "/bmrb/",
		PDBBaseURL:  ts.URL + "/rcsb",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(ts.Client(), cfg, zaptest.NewLogger(t)), dataDir
}

func TestTargets(t *testing.T) {
	f := New(nil, types.FetchConfig{DataDir: "d"}, nil)

	bt := f.BMRBTarget("46")
	assert.Equal(t, "https://bmrb.io/ftp/pub/bmrb/entry_directories/bmr46/validation/AVS_full.txt", bt.URL)
	assert.Equal(t, filepath.Join("d", "bmrb", "46_AVS_full.txt"), bt.Path)

	pt := f.PDBTarget("1boc")
	assert.Equal(t, "https://files.rcsb.org/download/1boc.pdb", pt.URL)
	assert.Equal(t, filepath.Join("d", "pdb", "1boc.pdb"), pt.Path)

	f = New(nil, types.FetchConfig{DataDir: "d", Format: types.FormatNMRStar}, nil)
	bt = f.BMRBTarget("46")
	assert.Equal(t, "https://bmrb.io/ftp/pub/bmrb/entry_directories/bmr46/bmr46_3.str", bt.URL)
	assert.Equal(t, filepath.Join("d", "bmrb", "bmr46_3.str"), bt.Path)
}

func TestFetch_DownloadsThenSkips(t *testing.T) {
	a, ts := newArchive(t)
	f, dataDir := testFetcher(t, ts, nil)
	ctx := context.Background()

	r, err := f.FetchBMRB(ctx, "46")
	require.NoError(t, err)
	assert.False(t, r.Skipped)
	assert.Equal(t, int64(len(fakeAVS)), r.Bytes)
	assert.Equal(t, "shiftmerge-test", a.ua)

	data, err := os.ReadFile(filepath.Join(dataDir, "bmrb", "46_AVS_full.txt"))
	require.NoError(t, err)
	assert.Equal(t, fakeAVS, string(data))

	r, err = f.FetchBMRB(ctx, "46")
	require.NoError(t, err)
	assert.True(t, r.Skipped)
	assert.Equal(t, 1, a.hits("/bmrb/bmr46/validation/AVS_full.txt"))
}

func TestFetch_Refresh(t *testing.T) {
	a, ts := newArchive(t)
	f, _ := testFetcher(t, ts, func(c *types.FetchConfig) { c.Refresh = true })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		r, err := f.FetchPDB(ctx, "1boc")
		require.NoError(t, err)
		assert.False(t, r.Skipped)
	}
	assert.Equal(t, 2, a.hits("/rcsb/1boc.pdb"))
}

func TestFetch_NMRStarFormat(t *testing.T) {
	_, ts := newArchive(t)
	f, dataDir := testFetcher(t, ts, func(c *types.FetchConfig) { c.Format = types.FormatNMRStar })

	_, err := f.FetchBMRB(context.Background(), "46")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, "bmrb", "bmr46_3.str"))
}

func TestFetch_Errors(t *testing.T) {
	_, ts := newArchive(t)
	f, dataDir := testFetcher(t, ts, nil)
	ctx := context.Background()

	_, err := f.FetchBMRB(ctx, "999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.FetchBMRB(ctx, "7")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = f.FetchBMRB(ctx, "500")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")

	// Failed downloads leave neither the target nor temp files behind.
	entries, err := os.ReadDir(filepath.Join(dataDir, "bmrb"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_EmptyLocalFileIsRefetched(t *testing.T) {
	a, ts := newArchive(t)
	f, dataDir := testFetcher(t, ts, nil)

	path := filepath.Join(dataDir, "pdb", "1boc.pdb")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := f.FetchPDB(context.Background(), "1boc")
	require.NoError(t, err)
	assert.False(t, r.Skipped)
	assert.Equal(t, 1, a.hits("/rcsb/1boc.pdb"))
}

func TestFetchPair(t *testing.T) {
	_, ts := newArchive(t)
	f, _ := testFetcher(t, ts, nil)

	pr, err := f.FetchPair(context.Background(), types.EntryPair{BMRBID: "46", PDBID: "1boc"})
	require.NoError(t, err)
	assert.Equal(t, KindBMRB, pr.BMRB.Kind)
	assert.Equal(t, KindPDB, pr.PDB.Kind)
	assert.FileExists(t, pr.BMRB.Path)
	assert.FileExists(t, pr.PDB.Path)

	_, err = f.FetchPair(context.Background(), types.EntryPair{BMRBID: "46", PDBID: "9zzz"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchPair_OneFileMissing(t *testing.T) {
	a, ts := newArchive(t)
	f, _ := testFetcher(t, ts, nil)

	pr, err := f.FetchPair(context.Background(), types.EntryPair{BMRBID: "46", PDBID: "9zzz"})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, pr.BMRB.Err)
	assert.False(t, pr.BMRB.Skipped)
	assert.Equal(t, int64(len(fakeAVS)), pr.BMRB.Bytes)
	assert.FileExists(t, pr.BMRB.Path)
	assert.Equal(t, 1, a.hits("/bmrb/bmr46/validation/AVS_full.txt"))

	assert.ErrorIs(t, pr.PDB.Err, ErrNotFound)
	assert.Equal(t, KindPDB, pr.PDB.Kind)
	assert.Equal(t, "9zzz", pr.PDB.ID)
	assert.NoFileExists(t, pr.PDB.Path)
}

func TestFetch_CancelledContext(t *testing.T) {
	_, ts := newArchive(t)
	f, _ := testFetcher(t, ts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchPDB(ctx, "1boc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchBatch(t *testing.T) {
	_, ts := newArchive(t)
	f, _ := testFetcher(t, ts, nil)

	pairs := []types.EntryPair{
		{BMRBID: "46", PDBID: "1boc"},
		{BMRBID: "999", PDBID: "2abc"},
		{BMRBID: "46", PDBID: "2abc"},
	}
	var buf bytes.Buffer
	res := f.FetchBatch(context.Background(), pairs, &buf)

	assert.Equal(t, 1, res.Failed)
	assert.True(t, res.HasFailures())
	assert.Len(t, res.Pairs, 3)
	assert.Equal(t, 3, res.Downloaded)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.FailedFiles)
	assert.Equal(t, 5, res.Files())

	out := buf.String()
	assert.Contains(t, out, "failed:     bmrb 999")
	assert.Contains(t, out, "downloaded: pdb 2abc")
	assert.Contains(t, out, "skipped:    bmrb 46 (already exists)")
	assert.Contains(t, out, "skipped:    pdb 2abc (already exists)")
	assert.True(t, strings.HasSuffix(out, "3 downloaded, 2 skipped, 1 failed; 1 of 3 pair(s) failed\n"))
}

func TestFetchBatch_ReportsBothFilesOfFailedPair(t *testing.T) {
	_, ts := newArchive(t)
	f, _ := testFetcher(t, ts, nil)

	var buf bytes.Buffer
	res := f.FetchBatch(context.Background(), []types.EntryPair{{BMRBID: "46", PDBID: "9zzz"}}, &buf)

	assert.Equal(t, 1, res.Downloaded)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 1, res.FailedFiles)
	assert.Equal(t, 1, res.Failed)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, fmt.Sprintf("downloaded: bmrb 46 (%d bytes)", len(fakeAVS)), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "failed:     pdb 9zzz ("), lines[1])
	assert.Equal(t, "Batch summary: 1 downloaded, 0 skipped, 1 failed; 1 of 1 pair(s) failed", lines[3])
}
