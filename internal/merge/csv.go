// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdiddy/shiftmerge/pkg/types"
)

// Header is the CSV column order.
var Header = []string{
	"BMRB_ID", "PDB_ID", "Chain", "Residue_ID", "Residue_Type",
	"C_Shift", "CA_Shift", "CB_Shift", "Secondary_Structure",
}

// WriteCSV writes rows with a header line. Missing shifts are empty cells.
func WriteCSV(w io.Writer, rows []types.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	rec := make([]string, len(Header))
	for _, r := range rows {
		rec[0] = r.BMRBID
		rec[1] = r.PDBID
		rec[2] = r.Chain
		rec[3] = strconv.Itoa(r.ResidueID)
		rec[4] = r.ResidueType
		rec[5] = formatShift(r.C)
		rec[6] = formatShift(r.CA)
		rec[7] = formatShift(r.CB)
		rec[8] = string(r.SecondaryStructure)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to path through a temporary file in the same
// directory, so an interrupted run never leaves a truncated table.
func WriteCSVFile(path string, rows []types.Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".merge-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	writeErr := WriteCSV(tmp, rows)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing CSV: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadCSV parses a table written by WriteCSV. Columns are matched by
// header name, so reordered files are accepted.
func ReadCSV(r io.Reader) ([]types.Row, error) {
	cr := csv.NewReader(r)
	head, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty CSV")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(head))
	for i, h := range head {
		col[h] = i
	}
	for _, h := range Header {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("missing column %q", h)
		}
	}
	cr.FieldsPerRecord = len(head)

	var rows []types.Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := parseRow(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadCSVFile opens and parses a CSV table.
func ReadCSVFile(path string) ([]types.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseRow(rec []string, col map[string]int) (types.Row, error) {
	id, err := strconv.Atoi(rec[col["Residue_ID"]])
	if err != nil {
		return types.Row{}, fmt.Errorf("Residue_ID: %w", err)
	}
	row := types.Row{
		BMRBID:             rec[col["BMRB_ID"]],
		PDBID:              rec[col["PDB_ID"]],
		Chain:              rec[col["Chain"]],
		ResidueID:          id,
		ResidueType:        rec[col["Residue_Type"]],
		SecondaryStructure: types.SecondaryStructure(rec[col["Secondary_Structure"]]),
	}
	for _, f := range []struct {
		name string
		dst  **float64
	}{
		{"C_Shift", &row.C},
		{"CA_Shift", &row.CA},
		{"CB_Shift", &row.CB},
	} {
		v, err := parseShift(rec[col[f.name]])
		if err != nil {
			return types.Row{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return row, nil
}

func formatShift(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseShift(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
