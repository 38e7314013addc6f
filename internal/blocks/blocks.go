// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blocks turns a page's ordered block list into the page's text
// contribution, with one placeholder per image, and the list of images that
// must be materialized for it.
package blocks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/doc2text/internal/placeholder"
	"github.com/pdiddy/doc2text/pkg/types"
)

// ErrUnknownBlock is returned under types.UnknownError for a block whose type
// is neither text nor image.
var ErrUnknownBlock = errors.New("unrecognized block type")

// ErrInvalidExt is returned for an image block whose extension is not made
// of ASCII letters and digits.
var ErrInvalidExt = errors.New("invalid image extension")

// Request asks the materializer to persist one image block.
type Request struct {
	// Name is the file stem, p<page>-b<block>.
	Name  string
	Ext   string
	Data  []byte
	Page  int
	Block int
}

// Filename returns Name.Ext, the string embedded in the placeholder.
func (r Request) Filename() string {
	return r.Name + "." + r.Ext
}

// PageResult is the extractor's output for one page.
type PageResult struct {
	// Text is the page's blocks in order, each terminated by a newline.
	Text string

	// Requests lists the page's images in block order.
	Requests []Request

	// Skipped counts unrecognized blocks dropped under types.UnknownSkip.
	Skipped int
}

// Extractor applies the unknown-block policy while walking pages.
type Extractor struct {
	policy types.UnknownBlockPolicy
	log    zerolog.Logger
}

// NewExtractor returns an Extractor. An empty policy means types.UnknownSkip.
func NewExtractor(policy types.UnknownBlockPolicy, log zerolog.Logger) *Extractor {
	if policy == "" {
		policy = types.UnknownSkip
	}
	return &Extractor{
		policy: policy,
		log:    log.With().Str("component", "blocks").Logger(),
	}
}

// ExtractPage walks the page's blocks in their given order.
func (e *Extractor) ExtractPage(page types.Page) (PageResult, error) {
	var res PageResult
	var sb strings.Builder

	for _, b := range page.Blocks {
		switch b.Type {
		case types.BlockText:
			sb.WriteString(b.Text())
			sb.WriteByte('\n')

		case types.BlockImage:
			if !placeholder.ValidExt(b.Ext) {
				return PageResult{}, fmt.Errorf("page %d block %d: %w %q",
					page.Number, b.Number, ErrInvalidExt, b.Ext)
			}
			req := Request{
				Name:  placeholder.Stem(page.Number, b.Number),
				Ext:   b.Ext,
				Data:  b.Image,
				Page:  page.Number,
				Block: b.Number,
			}
			sb.WriteString(placeholder.Token(req.Filename()))
			sb.WriteByte('\n')
			res.Requests = append(res.Requests, req)

		default:
			if e.policy == types.UnknownError {
				return PageResult{}, fmt.Errorf("page %d block %d (type %d): %w",
					page.Number, b.Number, int(b.Type), ErrUnknownBlock)
			}
			e.log.Debug().
				Int("page", page.Number).
				Int("block", b.Number).
				Int("type", int(b.Type)).
				Msg("skipping unrecognized block")
			res.Skipped++
		}
	}

	res.Text = sb.String()
	return res, nil
}
