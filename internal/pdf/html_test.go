// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc2text/pkg/types"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func pngURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func TestParsePageHTML(t *testing.T) {
	src := `<div id="page0" style="width:612pt;height:792pt">
<p style="top:72.0pt;left:72.0pt;line-height:12.0pt"><span style="font-family:Times,serif;font-size:12.0pt">Hello</span></p>
<p style="top:84.0pt;left:72.0pt;line-height:12.0pt"><span style="font-family:Times,serif;font-size:12.0pt">there <b>bold</b></span><span style="font-family:Courier;font-size:10.0pt">code</span></p>
<img style="top:120pt;left:72pt;width:100pt;height:80pt" src="` + pngURI() + `">
<p style="top:220.0pt;left:72.0pt;line-height:12.0pt"><span style="font-family:Times;font-size:12.0pt">After image</span></p>
<p style="top:260.0pt;left:72.0pt;line-height:12.0pt"><span style="font-family:Times;font-size:12.0pt">New paragraph</span></p>
</div>`

	page, err := ParsePageHTML(src, 3, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	require.Len(t, page.Blocks, 4)

	first := page.Blocks[0]
	assert.Equal(t, types.BlockText, first.Type)
	assert.Equal(t, 0, first.Number)
	require.Len(t, first.Lines, 2)
	assert.Equal(t, types.Span{Text: "Hello", Font: "Times", Size: 12}, first.Lines[0].Spans[0])
	assert.Equal(t, "there bold", first.Lines[1].Spans[0].Text)
	assert.Equal(t, "Courier", first.Lines[1].Spans[1].Font)
	assert.Equal(t, "Hello there bold code", first.Text())

	img := page.Blocks[1]
	assert.Equal(t, types.BlockImage, img.Type)
	assert.Equal(t, 1, img.Number)
	assert.Equal(t, "png", img.Ext)
	assert.Equal(t, pngBytes, img.Image)

	assert.Equal(t, "After image", page.Blocks[2].Text())
	assert.Equal(t, 2, page.Blocks[2].Number)
	assert.Equal(t, "New paragraph", page.Blocks[3].Text())
	assert.Equal(t, 3, page.Blocks[3].Number)
	assert.Equal(t, 1, page.ImageCount())
}

func TestParsePageHTMLColumnBreak(t *testing.T) {
	src := `<p style="top:500pt;left:72pt;line-height:12pt"><span>left column end</span></p>
<p style="top:72pt;left:320pt;line-height:12pt"><span>right column start</span></p>`

	page, err := ParsePageHTML(src, 1, 1.5)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 2)
	assert.Equal(t, "left column end", page.Blocks[0].Text())
	assert.Equal(t, "right column start", page.Blocks[1].Text())
}

func TestParsePageHTMLBlockGap(t *testing.T) {
	src := `<p style="top:100pt;line-height:10pt"><span>a</span></p>
<p style="top:118pt;line-height:10pt"><span>b</span></p>`

	tests := []struct {
		name   string
		gap    float64
		blocks int
	}{
		{"tight gap splits", 1.5, 2},
		{"loose gap joins", 2.0, 1},
		{"zero selects default", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParsePageHTML(src, 1, tt.gap)
			require.NoError(t, err)
			assert.Len(t, page.Blocks, tt.blocks)
		})
	}
}

func TestParsePageHTMLSkipsEmptyAndExternal(t *testing.T) {
	src := `<p style="top:10pt;line-height:10pt"></p>
<img src="https://example.com/x.png">
<p style="top:20pt;line-height:10pt">bare text</p>`

	page, err := ParsePageHTML(src, 1, 1.5)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 1)
	assert.Equal(t, "bare text", page.Blocks[0].Text())
	assert.Equal(t, 0, page.Blocks[0].Number)
}

func TestParsePageHTMLEmptyPage(t *testing.T) {
	page, err := ParsePageHTML(`<div id="page0"></div>`, 2, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)
	assert.Empty(t, page.Blocks)
}

func TestParsePageHTMLBadImage(t *testing.T) {
	_, err := ParsePageHTML(`<img src="data:image/png;base64,!!!">`, 1, 1.5)
	assert.Error(t, err)
}

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		ext     string
		wantErr bool
	}{
		{"png", pngURI(), "png", false},
		{"jpeg", "data:image/jpeg;base64,AQID", "jpeg", false},
		{"svg", "data:image/svg+xml;base64,AQID", "svg", false},
		{"no media type", "data:;base64,AQID", "bin", false},
		{"bmp alias", "data:image/x-ms-bmp;base64,AQID", "bmp", false},
		{"hyphenated subtype", "data:image/x-icon;base64,AQID", "bin", false},
		{"traversal subtype", "data:image/png/../../escaped;base64,AQID", "bin", false},
		{"not base64", "data:image/png,abc", "", true},
		{"no comma", "data:image/png;base64", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ext, err := decodeDataURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestParsePt(t *testing.T) {
	v, ok := parsePt(" 12.5pt ")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = parsePt("8px")
	assert.True(t, ok)
	assert.Equal(t, 8.0, v)

	_, ok = parsePt("auto")
	assert.False(t, ok)
}
