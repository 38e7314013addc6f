// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blocks

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc2text/internal/placeholder"
	"github.com/pdiddy/doc2text/pkg/types"
)

func textBlock(n int, spans ...string) types.Block {
	ss := make([]types.Span, len(spans))
	for i, s := range spans {
		ss[i] = types.Span{Text: s}
	}
	return types.Block{Type: types.BlockText, Number: n, Lines: []types.Line{{Spans: ss}}}
}

func imageBlock(n int, ext string) types.Block {
	return types.Block{Type: types.BlockImage, Number: n, Ext: ext, Image: []byte{byte(n)}}
}

func TestExtractPage(t *testing.T) {
	tests := []struct {
		name      string
		page      types.Page
		wantText  string
		wantNames []string
		wantSkip  int
	}{
		{
			name:      "text then image",
			page:      types.Page{Number: 1, Blocks: []types.Block{textBlock(0, "Hello"), imageBlock(3, "png")}},
			wantText:  "Hello\n[image: p1-b3.png]\n",
			wantNames: []string{"p1-b3.png"},
		},
		{
			name:     "text only",
			page:     types.Page{Number: 2, Blocks: []types.Block{textBlock(0, "World")}},
			wantText: "World\n",
		},
		{
			name: "order preserved around images",
			page: types.Page{Number: 5, Blocks: []types.Block{
				imageBlock(2, "jpeg"), textBlock(0, "b"), imageBlock(1, "jpeg"), textBlock(9, "a"),
			}},
			wantText:  "[image: p5-b2.jpeg]\nb\n[image: p5-b1.jpeg]\na\n",
			wantNames: []string{"p5-b2.jpeg", "p5-b1.jpeg"},
		},
		{
			name: "unknown block skipped silently",
			page: types.Page{Number: 1, Blocks: []types.Block{
				textBlock(0, "x"), {Type: types.BlockType(2), Number: 1}, textBlock(2, "y"),
			}},
			wantText: "x\ny\n",
			wantSkip: 1,
		},
		{
			name:     "empty text block still ends with newline",
			page:     types.Page{Number: 1, Blocks: []types.Block{{Type: types.BlockText}}},
			wantText: "\n",
		},
		{
			name: "empty page",
			page: types.Page{Number: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(types.UnknownSkip, zerolog.Nop())
			res, err := e.ExtractPage(tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, res.Text)
			assert.Equal(t, tt.wantSkip, res.Skipped)

			var names []string
			for _, r := range res.Requests {
				names = append(names, r.Filename())
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.page.ImageCount(), placeholder.Count(res.Text))
		})
	}
}

func TestExtractPage_RequestCarriesPayload(t *testing.T) {
	e := NewExtractor("", zerolog.Nop())
	res, err := e.ExtractPage(types.Page{Number: 3, Blocks: []types.Block{
		{Type: types.BlockImage, Number: 7, Ext: "png", Image: []byte("bytes")},
	}})
	require.NoError(t, err)
	require.Len(t, res.Requests, 1)

	req := res.Requests[0]
	assert.Equal(t, "p3-b7", req.Name)
	assert.Equal(t, "png", req.Ext)
	assert.Equal(t, []byte("bytes"), req.Data)
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, 7, req.Block)

	name, ok := placeholder.Parse("[image: p3-b7.png]")
	require.True(t, ok)
	assert.Equal(t, req.Filename(), name)
}

func TestExtractPage_InvalidExtension(t *testing.T) {
	tests := []struct {
		name string
		ext  string
	}{
		{"path traversal", "png/../../escaped"},
		{"separator", "x/png"},
		{"hyphen", "x-png"},
		{"dot", "tar.gz"},
		{"empty", ""},
		{"space", "p ng"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(types.UnknownSkip, zerolog.Nop())
			res, err := e.ExtractPage(types.Page{Number: 1, Blocks: []types.Block{
				textBlock(0, "before"), imageBlock(4, tt.ext),
			}})
			require.ErrorIs(t, err, ErrInvalidExt)
			assert.Contains(t, err.Error(), "page 1 block 4")
			assert.Empty(t, res.Requests)
			assert.Empty(t, res.Text)
		})
	}
}

func TestExtractPage_PlaceholderCountMatchesImages(t *testing.T) {
	for _, ext := range []string{"png", "JPG", "tif", "webp", "jp2", "bin"} {
		t.Run(ext, func(t *testing.T) {
			page := types.Page{Number: 2, Blocks: []types.Block{
				imageBlock(0, ext), textBlock(1, "mid"), imageBlock(2, ext),
			}}
			res, err := NewExtractor("", zerolog.Nop()).ExtractPage(page)
			require.NoError(t, err)
			require.Len(t, res.Requests, 2)
			assert.Equal(t, len(res.Requests), placeholder.Count(res.Text))
			for i, name := range placeholder.FindAll(res.Text) {
				assert.Equal(t, res.Requests[i].Filename(), name)
			}
		})
	}
}

func TestExtractPage_UnknownBlockError(t *testing.T) {
	e := NewExtractor(types.UnknownError, zerolog.Nop())
	_, err := e.ExtractPage(types.Page{Number: 2, Blocks: []types.Block{
		textBlock(0, "ok"), {Type: types.BlockType(3), Number: 4},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownBlock))
	assert.Contains(t, err.Error(), "page 2 block 4")
}
