// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blockdump reads documents that were already parsed into pages of
// blocks and saved as JSON. The layout mirrors the page dictionaries of
// common PDF parsers:
//
//	{"pages": [{"number": 1, "blocks": [
//	  {"type": 0, "number": 0, "lines": [{"spans": [{"text": "Hello"}]}]},
//	  {"type": 1, "number": 3, "image": "<base64>", "ext": "png"}]}]}
//
// Block types other than 0 and 1 are passed through unchanged so the
// extractor's unknown-block policy decides what happens to them.
package blockdump

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/doc2text/internal/placeholder"
	"github.com/pdiddy/doc2text/pkg/types"
)

// Ext is the file extension recognized as a block dump.
const Ext = ".json"

// dump is the on-disk layout.
type dump struct {
	Source string       `json:"source,omitempty"`
	Pages  []types.Page `json:"pages"`
}

// Document is a block dump held in memory.
type Document struct {
	path   string
	source string
	pages  []types.Page
}

// Open reads and decodes the dump at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening block dump: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading block dump %s: %w", path, err)
	}
	doc.path = path
	return doc, nil
}

// Decode reads a dump from r. Pages without a number are numbered by
// position, starting at 1.
func Decode(r io.Reader) (*Document, error) {
	var d dump
	dec := json.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	if d.Pages == nil {
		return nil, errors.New(`missing "pages"`)
	}
	for i := range d.Pages {
		if d.Pages[i].Number == 0 {
			d.Pages[i].Number = i + 1
		}
		if err := checkPage(d.Pages[i]); err != nil {
			return nil, err
		}
	}
	return &Document{source: d.Source, pages: d.Pages}, nil
}

// checkPage rejects duplicate block numbers, which would give two images
// the same placeholder, and image extensions that cannot name a staged file.
func checkPage(p types.Page) error {
	seen := make(map[int]bool, len(p.Blocks))
	for _, b := range p.Blocks {
		if seen[b.Number] {
			return fmt.Errorf("page %d: duplicate block number %d", p.Number, b.Number)
		}
		if b.Type == types.BlockImage && !placeholder.ValidExt(b.Ext) {
			return fmt.Errorf("page %d block %d: invalid image extension %q", p.Number, b.Number, b.Ext)
		}
		seen[b.Number] = true
	}
	return nil
}

// Encode writes pages to w in the dump layout.
func Encode(w io.Writer, source string, pages []types.Page) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump{Source: source, Pages: pages}); err != nil {
		return fmt.Errorf("encoding block dump: %w", err)
	}
	return nil
}

// Path returns the file the dump was read from, if any.
func (d *Document) Path() string { return d.path }

// Source returns the original document recorded in the dump, if any.
func (d *Document) Source() string { return d.source }

func (d *Document) NumPages() int { return len(d.pages) }

func (d *Document) Page(i int) (types.Page, error) {
	if i < 0 || i >= len(d.pages) {
		return types.Page{}, fmt.Errorf("page index %d out of range [0, %d)", i, len(d.pages))
	}
	return d.pages[i], nil
}

func (d *Document) Close() error { return nil }
