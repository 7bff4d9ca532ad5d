package local_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/pdl-enricher/pkg/pipeline/io/local"
)

func TestReadProfilesCSV(t *testing.T) {
	t.Run("reads first column without header", func(t *testing.T) {
		in := "https://linkedin.com/in/alice,extra\nhttps://linkedin.com/in/bob\n"
		got, err := local.ReadProfilesCSV(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []string{"https://linkedin.com/in/alice", "https://linkedin.com/in/bob"}, got)
	})

	t.Run("no trailing newline", func(t *testing.T) {
		got, err := local.ReadProfilesCSV(strings.NewReader("a\r\nb"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("quoted field with comma", func(t *testing.T) {
		got, err := local.ReadProfilesCSV(strings.NewReader("\"a,b\",c\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a,b"}, got)
	})

	t.Run("bare quote kept literally", func(t *testing.T) {
		got, err := local.ReadProfilesCSV(strings.NewReader("https://linkedin.com/in/o\"brien\nhttps://linkedin.com/in/b\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{`https://linkedin.com/in/o"brien`, "https://linkedin.com/in/b"}, got)
	})

	t.Run("keeps duplicates in order", func(t *testing.T) {
		got, err := local.ReadProfilesCSV(strings.NewReader("x\ny\nx\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "x"}, got)
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		got, err := local.ReadProfilesCSV(strings.NewReader("\ufeffa\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := local.ReadProfilesCSV(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	rowErrors := []struct {
		name    string
		in      string
		wantRow int
	}{
		{name: "blank line in the middle", in: "a\n\nb\n", wantRow: 2},
		{name: "leading blank line", in: "\na\n", wantRow: 1},
		{name: "trailing blank line", in: "a\nb\n\n", wantRow: 3},
		{name: "crlf blank line", in: "a\r\n\r\nb\r\n", wantRow: 2},
	}
	for _, tt := range rowErrors {
		t.Run(tt.name, func(t *testing.T) {
			_, err := local.ReadProfilesCSV(strings.NewReader(tt.in))
			var re *local.RowError
			require.True(t, errors.As(err, &re), "err=%v", err)
			assert.Equal(t, tt.wantRow, re.Row)
			assert.Contains(t, err.Error(), "index out of range")
		})
	}
}

func TestReadProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.csv")
	require.NoError(t, os.WriteFile(path, []byte("https://linkedin.com/in/jdoe\n"), 0o644))

	got, err := local.ReadProfilesFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://linkedin.com/in/jdoe"}, got)

	_, err = local.ReadProfilesFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
