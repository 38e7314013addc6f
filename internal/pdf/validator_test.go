// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(good, []byte("%PDF-1.7"), 0o644))
	upper := filepath.Join(dir, "PAPER.PDF")
	require.NoError(t, os.WriteFile(upper, []byte("%PDF-1.7"), 0o644))
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid pdf", good, false},
		{"upper-case extension", upper, false},
		{"empty path", "  ", true},
		{"missing file", filepath.Join(dir, "missing.pdf"), true},
		{"directory", dir, true},
		{"wrong extension", txt, true},
	}
	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOpenRejectsInvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.pdf"), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
