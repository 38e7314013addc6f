// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pdiddy/doc2text/internal/placeholder"
	"github.com/pdiddy/doc2text/pkg/types"
)

// line is one positioned <p> of MuPDF's page HTML.
type line struct {
	top    float64
	height float64
	hasTop bool
	spans  []types.Span
}

// ParsePageHTML converts MuPDF page HTML into a page of blocks.
//
// Every <p> is a text line positioned by its top and line-height styles.
// Consecutive lines form one text block until the next line starts more
// than blockGap line heights below the previous one, or above it (a new
// column). Every <img> with a data URI becomes an image block. Blocks are
// numbered from 0 in document order, counting both kinds.
func ParsePageHTML(src string, pageNum int, blockGap float64) (types.Page, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return types.Page{}, fmt.Errorf("parsing page html: %w", err)
	}
	if blockGap <= 0 {
		blockGap = DefaultBlockGap
	}

	p := &pageBuilder{page: types.Page{Number: pageNum}, gap: blockGap}
	if err := p.walk(root); err != nil {
		return types.Page{}, err
	}
	p.flush()
	return p.page, nil
}

type pageBuilder struct {
	page    types.Page
	gap     float64
	current []line
}

func (p *pageBuilder) walk(n *html.Node) error {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P:
			p.addLine(parseLine(n))
			return nil
		case atom.Img:
			return p.addImage(n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := p.walk(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *pageBuilder) addLine(l line) {
	if len(l.spans) == 0 {
		return
	}
	if n := len(p.current); n > 0 && breaksBlock(p.current[n-1], l, p.gap) {
		p.flush()
	}
	p.current = append(p.current, l)
}

// breaksBlock reports whether next starts a new text block after prev.
func breaksBlock(prev, next line, gap float64) bool {
	if !prev.hasTop || !next.hasTop {
		return false
	}
	if next.top < prev.top {
		return true
	}
	height := prev.height
	if height <= 0 {
		return false
	}
	return next.top-prev.top > gap*height
}

func (p *pageBuilder) flush() {
	if len(p.current) == 0 {
		return
	}
	b := types.Block{Type: types.BlockText, Number: len(p.page.Blocks)}
	for _, l := range p.current {
		b.Lines = append(b.Lines, types.Line{Spans: l.spans})
	}
	p.page.Blocks = append(p.page.Blocks, b)
	p.current = nil
}

func (p *pageBuilder) addImage(n *html.Node) error {
	src := attr(n, "src")
	if !strings.HasPrefix(src, "data:") {
		// Only inline images carry bytes.
		return nil
	}
	data, ext, err := decodeDataURI(src)
	if err != nil {
		return fmt.Errorf("page %d image %d: %w", p.page.Number, len(p.page.Blocks), err)
	}
	p.flush()
	p.page.Blocks = append(p.page.Blocks, types.Block{
		Type:   types.BlockImage,
		Number: len(p.page.Blocks),
		Image:  data,
		Ext:    ext,
	})
	return nil
}

// decodeDataURI decodes a base64 data URI and returns its bytes and the
// file extension implied by its media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri")
	}
	params := strings.Split(meta, ";")
	if len(params) < 2 || params[len(params)-1] != "base64" {
		return nil, "", fmt.Errorf("data uri is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, "", fmt.Errorf("decoding data uri: %w", err)
	}
	return data, extForMediaType(params[0]), nil
}

func extForMediaType(mt string) string {
	sub, ok := strings.CutPrefix(strings.ToLower(mt), "image/")
	if !ok || sub == "" {
		return "bin"
	}
	switch sub {
	case "svg+xml":
		return "svg"
	case "x-ms-bmp":
		return "bmp"
	}
	if !placeholder.ValidExt(sub) {
		return "bin"
	}
	return sub
}

func parseLine(n *html.Node) line {
	var l line
	style := parseStyle(attr(n, "style"))
	if v, ok := style["top"]; ok {
		l.top, l.hasTop = parsePt(v)
	}
	if v, ok := style["line-height"]; ok {
		l.height, _ = parsePt(v)
	}

	var spans []types.Span
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && c.DataAtom == atom.Span:
			s := parseStyle(attr(c, "style"))
			size, _ := parsePt(s["font-size"])
			font, _, _ := strings.Cut(s["font-family"], ",")
			spans = append(spans, types.Span{
				Text: textContent(c),
				Font: strings.Trim(strings.TrimSpace(font), `'"`),
				Size: size,
			})
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) != "":
			spans = append(spans, types.Span{Text: c.Data})
		}
	}
	l.spans = spans
	return l
}

// textContent concatenates the text below n, through <b>, <i> and similar
// inline wrappers.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// parseStyle splits an inline CSS declaration list into lower-case property
// names and trimmed values.
func parseStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

// parsePt parses a CSS length such as "12.5pt" or "12px".
func parsePt(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(strings.TrimSuffix(v, "pt"), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
