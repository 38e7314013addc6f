// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data model and configuration shared by the
// conversion stages.
package types

import "strings"

// BlockType discriminates the content of a Block. The numeric values follow
// the page-dict layout produced by common PDF parsers (0 text, 1 image); any
// other value is treated as unrecognized.
type BlockType int

const (
	BlockText  BlockType = 0
	BlockImage BlockType = 1
)

// String returns a readable name for the block type.
func (t BlockType) String() string {
	switch t {
	case BlockText:
		return "text"
	case BlockImage:
		return "image"
	default:
		return "unknown"
	}
}

// Span is a run of text within a line. Style fields are informational only.
type Span struct {
	Text string  `json:"text" yaml:"text"`
	Font string  `json:"font,omitempty" yaml:"font,omitempty"`
	Size float64 `json:"size,omitempty" yaml:"size,omitempty"`
}

// Line is one line of a text block. A line carries either Spans or a bare
// Text string; when Spans is non-nil it takes precedence.
type Line struct {
	Spans []Span `json:"spans,omitempty" yaml:"spans,omitempty"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Block is the smallest content unit of a page.
type Block struct {
	// Type selects which of the remaining fields are meaningful.
	Type BlockType `json:"type" yaml:"type"`

	// Number identifies the block within its page. Numbers are unique per
	// page but not necessarily contiguous.
	Number int `json:"number" yaml:"number"`

	// Lines holds the text of a BlockText block.
	Lines []Line `json:"lines,omitempty" yaml:"lines,omitempty"`

	// Image holds the raw encoded bytes of a BlockImage block.
	Image []byte `json:"image,omitempty" yaml:"-"`

	// Ext is the image format extension (e.g. "png", "jpeg").
	Ext string `json:"ext,omitempty" yaml:"ext,omitempty"`
}

// Text concatenates the block's lines. Span lines contribute each span
// followed by a single space; bare lines contribute their text verbatim.
// Surrounding whitespace is trimmed from the result.
func (b Block) Text() string {
	var sb strings.Builder
	for _, l := range b.Lines {
		if l.Spans != nil {
			for _, s := range l.Spans {
				sb.WriteString(s.Text)
				sb.WriteByte(' ')
			}
			continue
		}
		sb.WriteString(l.Text)
	}
	return strings.TrimSpace(sb.String())
}

// Page is one page of a document. Blocks are in the source's native
// reading order, which the pipeline never changes.
type Page struct {
	// Number is the 1-based page index.
	Number int     `json:"number" yaml:"number"`
	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// ImageCount returns the number of image blocks on the page.
func (p Page) ImageCount() int {
	n := 0
	for _, b := range p.Blocks {
		if b.Type == BlockImage {
			n++
		}
	}
	return n
}
