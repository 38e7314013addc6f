// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrInvalidInput is wrapped by every validation failure.
var ErrInvalidInput = errors.New("invalid input document")

// largeFileSize triggers a warning; large files are still accepted.
const largeFileSize = 100 << 20

// Validator checks input paths before MuPDF opens them, so that common
// mistakes produce clear errors instead of parser failures.
type Validator struct{}

// NewValidator returns a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePath checks that path names a readable regular file with a .pdf
// extension.
func (v *Validator) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s does not exist", ErrInvalidInput, path)
		}
		return fmt.Errorf("%w: cannot access %s: %v", ErrInvalidInput, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidInput, path)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return fmt.Errorf("%w: %s is not a pdf (extension %q)", ErrInvalidInput, path, ext)
	}

	if info.Size() > largeFileSize {
		log.Warn().Str("path", path).Int64("mb", info.Size()>>20).Msg("large pdf, conversion may take a while")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: cannot open %s: %v", ErrInvalidInput, path, err)
	}
	f.Close()
	return nil
}
