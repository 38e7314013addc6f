// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/doc2text/internal/blockdump"
	"github.com/pdiddy/doc2text/internal/pdf"
)

// OpenDocument opens path by extension: block dumps (.json) are read as
// pre-parsed pages, everything else as a PDF.
func OpenDocument(path string, blockGap float64) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), blockdump.Ext) {
		doc, err := blockdump.Open(path)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
	doc, err := pdf.Open(path, blockGap)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
