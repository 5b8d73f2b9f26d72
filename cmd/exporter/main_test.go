package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "all", raw: "csv,xlsx,png,html", want: []string{"csv", "xlsx", "png", "html"}},
		{name: "trims and dedupes", raw: " PNG , png,csv ", want: []string{"png", "csv"}},
		{name: "unknown", raw: "csv,pdf", wantErr: true},
		{name: "empty", raw: " , ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFormats(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ok.txt")
	require.NoError(t, writeFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	failed := filepath.Join(dir, "failed.txt")
	err = writeFile(failed, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errors.New("render failed")
	})
	assert.Error(t, err)
	_, statErr := os.Stat(failed)
	assert.True(t, os.IsNotExist(statErr))
}
