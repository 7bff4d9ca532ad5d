package local

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RowError reports an input row that has no first field.
type RowError struct {
	// Row is 1-based and counts blank lines.
	Row    int
	Fields int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: has %d fields, want at least 1: index out of range", e.Row, e.Fields)
}

// ReadProfilesFile opens path and reads it with ReadProfilesCSV.
func ReadProfilesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	profiles, err := ReadProfilesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return profiles, nil
}

// ReadProfilesCSV reads a headerless comma-separated file and returns the first field of every row.
//
// Blank lines are rows without fields and fail with *RowError. encoding/csv skips them
// silently, so they are detected from the reader's input offsets.
func ReadProfilesCSV(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var profiles []string
	row := 0
	prev := int64(0)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		if startsWithBlankLine(data[prev:]) {
			return nil, &RowError{Row: row + 1}
		}
		row++
		prev = cr.InputOffset()
		if len(rec) == 0 {
			return nil, &RowError{Row: row}
		}
		profiles = append(profiles, rec[0])
	}
	if startsWithBlankLine(data[prev:]) {
		return nil, &RowError{Row: row + 1}
	}
	return profiles, nil
}

func startsWithBlankLine(b []byte) bool {
	return bytes.HasPrefix(b, []byte("\n")) || bytes.HasPrefix(b, []byte("\r\n"))
}
