// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdf reads PDF pages as ordered text and image blocks using MuPDF
// (go-fitz). MuPDF renders each page's structured text as positioned HTML;
// ParsePageHTML turns that HTML back into blocks.
package pdf

import (
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/pdiddy/doc2text/pkg/types"
)

// DefaultBlockGap is the vertical gap, in line heights, that separates two
// text blocks.
const DefaultBlockGap = types.DefaultBlockGap

// Document is an open PDF. It is safe for use by one goroutine at a time.
type Document struct {
	path     string
	doc      *fitz.Document
	blockGap float64

	mu     sync.Mutex
	closed bool
}

// Open validates path and opens the PDF. A blockGap <= 0 selects
// DefaultBlockGap.
func Open(path string, blockGap float64) (*Document, error) {
	if err := NewValidator().ValidatePath(path); err != nil {
		return nil, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	if blockGap <= 0 {
		blockGap = DefaultBlockGap
	}
	return &Document{path: path, doc: doc, blockGap: blockGap}, nil
}

// Path returns the file the document was opened from.
func (d *Document) Path() string { return d.path }

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.doc.NumPage()
}

// Page returns the blocks of the page at zero-based index i. The returned
// page carries the 1-based page number.
func (d *Document) Page(i int) (types.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return types.Page{}, fmt.Errorf("reading page %d of %s: document closed", i+1, d.path)
	}

	html, err := d.doc.HTML(i, false)
	if err != nil {
		return types.Page{}, fmt.Errorf("rendering page %d of %s: %w", i+1, d.path, err)
	}
	page, err := ParsePageHTML(html, i+1, d.blockGap)
	if err != nil {
		return types.Page{}, fmt.Errorf("parsing page %d of %s: %w", i+1, d.path, err)
	}
	return page, nil
}

// Close releases the MuPDF document. Closing twice is a no-op.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.doc.Close()
}
