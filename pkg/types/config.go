// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Default endpoints and settings. The base URLs point at the public BMRB
// FTP mirror and the RCSB file service.
const (
	DefaultBMRBBaseURL = "https://bmrb.io/ftp/pub/bmrb/entry_directories"
	DefaultPDBBaseURL  = "https://files.rcsb.org/download"
	DefaultUserAgent   = "shiftmerge/0.1"
	DefaultTimeout     = 10 * time.Second
	DefaultDelay       = 500 * time.Millisecond
	DefaultDataDir     = "data"
	DefaultOutputDir   = "output"
	DefaultOutputFile  = "residue_data_table.csv"
	DefaultMaxResults  = 1000
)

// BMRBFormat selects which BMRB file is downloaded and parsed.
type BMRBFormat string

const (
	// FormatAVS is the validation/AVS_full.txt report with per-residue
	// averaged carbon shifts.
	FormatAVS BMRBFormat = "avs"

	// FormatNMRStar is the full NMR-STAR 3.x entry file.
	FormatNMRStar BMRBFormat = "nmrstar"
)

// Valid reports whether f names a known format.
func (f BMRBFormat) Valid() bool {
	return f == FormatAVS || f == FormatNMRStar
}

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on 429/503 responses. Zero uses the default.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// FetchConfig holds settings for the download stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DataDir is the base directory for downloads (contains bmrb/, pdb/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// BMRBBaseURL is the BMRB entry directory root.
	BMRBBaseURL string `json:"bmrb_base_url" yaml:"bmrb_base_url"`

	// PDBBaseURL is the RCSB download root.
	PDBBaseURL string `json:"pdb_base_url" yaml:"pdb_base_url"`

	// Format selects the BMRB file to fetch.
	Format BMRBFormat `json:"format" yaml:"format"`

	// Delay is the minimum spacing between consecutive downloads.
	Delay time.Duration `json:"delay" yaml:"delay"`

	// Refresh re-downloads files that already exist locally.
	Refresh bool `json:"refresh" yaml:"refresh"`
}

// WithDefaults returns a copy of c with zero fields set to their defaults.
func (c FetchConfig) WithDefaults() FetchConfig {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.BMRBBaseURL == "" {
		c.BMRBBaseURL = DefaultBMRBBaseURL
	}
	if c.PDBBaseURL == "" {
		c.PDBBaseURL = DefaultPDBBaseURL
	}
	if c.Format == "" {
		c.Format = FormatAVS
	}
	return c
}

// MergeConfig holds settings for the merge pipeline.
type MergeConfig struct {
	Fetch FetchConfig `json:"fetch" yaml:"fetch"`

	// OutputPath is the CSV destination. Empty means
	// output/residue_data_table.csv.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// CompleteOnly drops rows missing any of the C, CA or CB shifts.
	CompleteOnly bool `json:"complete_only" yaml:"complete_only"`

	// Workers is the number of pairs processed concurrently (default 1).
	Workers int `json:"workers" yaml:"workers"`
}

// StoreConfig holds settings for the SQLite residue index.
type StoreConfig struct {
	// DataDir is the base directory; the database lives in DataDir/index/.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default query limit.
	MaxResults int `json:"max_results" yaml:"max_results"`
}
