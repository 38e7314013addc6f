//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts every PDF in docs/ into output/.
func Convert() error {
	ensureBuilt()
	mg.Deps(Init)

	pdfs, err := filepath.Glob(filepath.Join("docs", "*.pdf"))
	if err != nil {
		return err
	}
	if len(pdfs) == 0 {
		fmt.Println("[convert] No PDFs in docs/.")
		return nil
	}
	args := append([]string{"convert", "--output-dir", "output", "--progress"}, pdfs...)
	return sh.RunV(binPath(), args...)
}

// Report lists the most recent conversion runs.
func Report() error {
	ensureBuilt()
	return sh.RunV(binPath(), "report", "list")
}
