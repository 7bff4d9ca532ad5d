// Package flatten turns a directory of per-record JSON documents into one tab-delimited file.
package flatten

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// OutputName is the file written into the destination directory.
// The name is kept for downstream importers even though the content is tab-delimited.
const OutputName = "linkedin.csv"

// Options controls flattening.
type Options struct {
	// Strict rejects records whose keys differ (in set or order) from the header.
	// Without it, later rows are written positionally and may misalign silently.
	Strict bool
}

// Result summarizes a flatten run.
type Result struct {
	Path   string
	Header []string
	Rows   int
	// Skipped lists directory entries that were not read as records.
	Skipped []string
}

// KeyMismatchError reports a record whose keys do not match the header in strict mode.
type KeyMismatchError struct {
	File   string
	Header []string
	Keys   []string
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("%s: keys [%s] do not match header [%s]",
		e.File, strings.Join(e.Keys, ", "), strings.Join(e.Header, ", "))
}

// Dir reads every *.json file in srcDir (in os.ReadDir order) and writes
// <dstDir>/linkedin.csv: UTF-8 with BOM, tab-delimited, CRLF line endings.
// The header is the first record's keys; each record contributes one row of its values.
// On error the partially written file is removed.
func Dir(srcDir, dstDir string, opts Options) (res Result, err error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return Result{}, err
	}

	res.Path = filepath.Join(dstDir, OutputName)
	f, err := os.Create(res.Path)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
		if err != nil {
			_ = os.Remove(res.Path)
		}
	}()

	bom := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bom)
	cw.Comma = '\t'
	cw.UseCRLF = true

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			res.Skipped = append(res.Skipped, entry.Name())
			continue
		}
		path := filepath.Join(srcDir, entry.Name())
		keys, values, err := readRecord(path)
		if err != nil {
			return res, err
		}

		if res.Header == nil {
			res.Header = keys
			if err := cw.Write(keys); err != nil {
				return res, err
			}
		} else if opts.Strict && !slices.Equal(keys, res.Header) {
			return res, &KeyMismatchError{File: path, Header: res.Header, Keys: keys}
		}

		if err := cw.Write(values); err != nil {
			return res, err
		}
		res.Rows++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return res, err
	}
	if res.Header == nil {
		// No records: leave the file empty rather than BOM-only.
		return res, nil
	}
	return res, bom.Close()
}

func readRecord(path string) ([]string, []string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	keys, values, err := decodeOrdered(b)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return keys, values, nil
}

// decodeOrdered returns the top-level keys and rendered values of a JSON object in document order.
func decodeOrdered(b []byte) ([]string, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("record is not a JSON object")
	}

	keys := []string{}
	values := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, renderValue(raw))
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("trailing data after record")
	}
	return keys, values, nil
}

// renderValue prints strings as-is, null as empty, and anything else as compact JSON.
func renderValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
