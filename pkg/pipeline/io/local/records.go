package local

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// CollisionError reports a second record for a file name already written in this run.
type CollisionError struct {
	Path string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("refusing to overwrite %s: already written in this run", e.Path)
}

// RecordWriter persists one JSON document per record into an existing directory.
type RecordWriter struct {
	dir     string
	strict  bool
	written map[string]struct{}
}

// NewRecordWriter writes into dir, which must already exist.
//
// By default a repeated name overwrites the earlier file. With strict set, the first
// file wins and later writes for the same name return *CollisionError.
func NewRecordWriter(dir string, strict bool) *RecordWriter {
	return &RecordWriter{
		dir:     dir,
		strict:  strict,
		written: make(map[string]struct{}),
	}
}

// Write stores data as <dir>/<name>.json and returns the path written.
func (w *RecordWriter) Write(name string, data []byte) (string, error) {
	path := filepath.Join(w.dir, name+".json")
	if _, dup := w.written[name]; dup && w.strict {
		return "", &CollisionError{Path: path}
	}

	if err := writeFile(path, data); err != nil {
		return "", err
	}
	w.written[name] = struct{}{}
	return path, nil
}

// Written returns how many distinct names have been written.
func (w *RecordWriter) Written() int {
	return len(w.written)
}

func writeFile(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
