// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bmrb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

// Column tags for the assigned chemical shift loop, NMR-STAR 3.x first and
// 2.1 second.
var (
	seqTags   = []string{"_Atom_chem_shift.Seq_ID", "_Atom_chem_shift.Comp_index_ID", "_Residue_seq_code"}
	compTags  = []string{"_Atom_chem_shift.Comp_ID", "_Residue_label"}
	atomTags  = []string{"_Atom_chem_shift.Atom_ID", "_Atom_name"}
	valueTags = []string{"_Atom_chem_shift.Val", "_Chem_shift_value"}
)

// shiftLoop is the column layout of one chemical-shift loop.
type shiftLoop struct {
	width int
	seq   []int
	comp  int
	atom  int
	value int
}

func newShiftLoop(tags []string) (*shiftLoop, bool) {
	index := make(map[string]int, len(tags))
	for i, t := range tags {
		index[t] = i
	}
	l := &shiftLoop{width: len(tags), comp: -1, atom: -1, value: -1}
	for _, t := range seqTags {
		if i, ok := index[t]; ok {
			l.seq = append(l.seq, i)
		}
	}
	first := func(names []string) int {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i
			}
		}
		return -1
	}
	l.comp = first(compTags)
	l.atom = first(atomTags)
	l.value = first(valueTags)
	if len(l.seq) == 0 || l.atom < 0 || l.value < 0 {
		return nil, false
	}
	return l, true
}

// apply folds one data row into byID. Rows with null or unparsable fields
// are ignored.
func (l *shiftLoop) apply(row []string, byID map[int]types.ShiftRecord) {
	seq := -1
	for _, i := range l.seq {
		if n, err := strconv.Atoi(row[i]); err == nil {
			seq = n
			break
		}
	}
	if seq < 0 {
		return
	}
	v, err := strconv.ParseFloat(row[l.value], 64)
	if err != nil {
		return
	}

	rec := byID[seq]
	rec.ResidueID = seq
	if l.comp >= 0 && !isNull(row[l.comp]) {
		rec.ResidueType = strings.ToUpper(row[l.comp])
	}
	switch strings.ToUpper(row[l.atom]) {
	case "C":
		rec.C = &v
	case "CA":
		rec.CA = &v
	case "CB":
		rec.CB = &v
	default:
		return
	}
	byID[seq] = rec
}

func isNull(s string) bool { return s == "." || s == "?" }

type starState int

const (
	stateOutside starState = iota
	stateTags
	stateData
)

// ParseNMRStar reads the assigned chemical shift loops of an NMR-STAR file
// and keeps the C, CA and CB atoms. Multi-line text fields are skipped.
func ParseNMRStar(r io.Reader) ([]types.ShiftRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	byID := make(map[int]types.ShiftRecord)

	var (
		state   = stateOutside
		tags    []string
		loop    *shiftLoop
		pending []string
		inText  bool
		lineNum int
	)

	for sc.Scan() {
		lineNum++
		raw := sc.Text()

		// Semicolon-delimited text fields span lines.
		if strings.HasPrefix(raw, ";") {
			inText = !inText
			continue
		}
		if inText {
			continue
		}

		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch state {
		case stateOutside:
			if line == "loop_" {
				state = stateTags
				tags = tags[:0]
			}
			continue

		case stateTags:
			if strings.HasPrefix(line, "_") {
				tags = append(tags, strings.Fields(line)[0])
				continue
			}
			if l, ok := newShiftLoop(tags); ok {
				loop = l
			} else {
				loop = nil
			}
			pending = pending[:0]
			state = stateData
		}

		// stateData
		if line == "stop_" {
			state = stateOutside
			loop = nil
			continue
		}
		if loop == nil {
			continue
		}
		toks, err := tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		pending = append(pending, toks...)
		for len(pending) >= loop.width {
			loop.apply(pending[:loop.width], byID)
			pending = pending[loop.width:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading NMR-STAR file: %w", err)
	}
	return sortedRecords(byID)
}

// tokenize splits a STAR data line into values. Single- or double-quoted
// values may contain spaces; a quote only closes when followed by
// whitespace or end of line.
func tokenize(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}
		if q := line[i]; q == '\'' || q == '"' {
			j := i + 1
			for {
				k := strings.IndexByte(line[j:], q)
				if k < 0 {
					return nil, fmt.Errorf("unterminated quote")
				}
				end := j + k
				if end+1 == len(line) || line[end+1] == ' ' || line[end+1] == '\t' {
					toks = append(toks, line[i+1:end])
					i = end + 1
					break
				}
				j = end + 1
			}
			continue
		}
		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		toks = append(toks, line[i:j])
		i = j
	}
	return toks, nil
}
