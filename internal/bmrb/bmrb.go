// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bmrb extracts per-residue backbone carbon chemical shifts from
// BMRB files. Two inputs are understood: the AVS validation report
// (validation/AVS_full.txt) and NMR-STAR entry files, both 3.x and 2.1.
package bmrb

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

// ErrNoShifts is returned when a file parses but yields no C, CA or CB shifts.
var ErrNoShifts = errors.New("no chemical shifts found")

const maxLineSize = 1 << 20

// Detect guesses the format of a BMRB file from its content.
func Detect(data []byte) types.BMRBFormat {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("data_")) ||
		bytes.Contains(data, []byte("_Atom_chem_shift.")) ||
		bytes.Contains(data, []byte("_Chem_shift_value")) {
		return types.FormatNMRStar
	}
	return types.FormatAVS
}

// Parse reads shifts from r in the given format. An empty format is
// detected from the content.
func Parse(r io.Reader, format types.BMRBFormat) ([]types.ShiftRecord, error) {
	if format == "" {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		format = Detect(data)
		r = bytes.NewReader(data)
	}
	switch format {
	case types.FormatAVS:
		return ParseAVS(r)
	case types.FormatNMRStar:
		return ParseNMRStar(r)
	default:
		return nil, fmt.Errorf("unknown BMRB format %q", format)
	}
}

// ParseFile opens path, detects its format, and parses it.
func ParseFile(path string) ([]types.ShiftRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs, err := Parse(f, "")
	if err != nil {
		return recs, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

var (
	avsResiduePattern = regexp.MustCompile(`^([A-Z])(\d+)`)
	avsShiftPatterns  = map[string]*regexp.Regexp{
		"C":  regexp.MustCompile(`(?:^|[^A-Z])C :: (-?\d+(?:\.\d*)?)`),
		"CA": regexp.MustCompile(`\bCA :: (-?\d+(?:\.\d*)?)`),
		"CB": regexp.MustCompile(`\bCB :: (-?\d+(?:\.\d*)?)`),
	}
)

const avsAverageMarker = "Ave C Shift Values>>"

// ParseAVS reads an AVS_full.txt report. A residue header line such as
// "K12" opens a residue; the following "Ave C Shift Values>>" line supplies
// its C, CA and CB averages and closes it. Residues without an average line
// are dropped.
func ParseAVS(r io.Reader) ([]types.ShiftRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	byID := make(map[int]types.ShiftRecord)
	var current *types.ShiftRecord

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if m := avsResiduePattern.FindStringSubmatch(line); m != nil {
			id, err := strconv.Atoi(m[2])
			if err != nil {
				current = nil
				continue
			}
			current = &types.ShiftRecord{ResidueID: id, ResidueType: m[1]}
			continue
		}

		if !strings.HasPrefix(line, avsAverageMarker) || current == nil {
			continue
		}
		body := line[len(avsAverageMarker):]
		current.C = avsShift(body, "C")
		current.CA = avsShift(body, "CA")
		current.CB = avsShift(body, "CB")
		byID[current.ResidueID] = *current
		current = nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading AVS report: %w", err)
	}
	return sortedRecords(byID)
}

func avsShift(body, atom string) *float64 {
	m := avsShiftPatterns[atom].FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

func sortedRecords(byID map[int]types.ShiftRecord) ([]types.ShiftRecord, error) {
	if len(byID) == 0 {
		return nil, ErrNoShifts
	}
	out := make([]types.ShiftRecord, 0, len(byID))
	for _, rec := range byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResidueID < out[j].ResidueID })
	return out, nil
}

// ShiftMap indexes records by residue number.
func ShiftMap(recs []types.ShiftRecord) map[int]types.ShiftRecord {
	m := make(map[int]types.ShiftRecord, len(recs))
	for _, r := range recs {
		m[r.ResidueID] = r
	}
	return m
}
