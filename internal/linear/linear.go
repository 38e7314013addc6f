// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package linear assembles per-page text into the document's linear text.
package linear

import "strings"

// pageSeparator goes between consecutive pages.
const pageSeparator = "\n\n"

// Join concatenates page contributions in order, separated by a blank line
// pair, and terminates the document with a newline. No pages yields "".
func Join(pages []string) string {
	if len(pages) == 0 {
		return ""
	}
	return strings.Join(pages, pageSeparator) + "\n"
}

// Builder accumulates pages one at a time so the pipeline does not have to
// hold them in a slice. The result equals Join over the same pages.
type Builder struct {
	sb    strings.Builder
	pages int
}

// AddPage appends the next page's contribution.
func (b *Builder) AddPage(text string) {
	if b.pages > 0 {
		b.sb.WriteString(pageSeparator)
	}
	b.sb.WriteString(text)
	b.pages++
}

// Pages returns the number of pages added so far.
func (b *Builder) Pages() int {
	return b.pages
}

// String returns the linear text.
func (b *Builder) String() string {
	if b.pages == 0 {
		return ""
	}
	return b.sb.String() + "\n"
}
