// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package materialize writes extracted image blocks into the staging
// directory under their placeholder filename.
package materialize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/doc2text/internal/blocks"
	"github.com/pdiddy/doc2text/internal/placeholder"
	"github.com/pdiddy/doc2text/pkg/types"
)

// ErrDecode is returned under types.DecodeAbort when image bytes cannot be
// decoded.
var ErrDecode = errors.New("image decode failed")

// jpegQuality is used only when bytes must be re-encoded to JPEG.
const jpegQuality = 95

// Image is a file produced by Materialize.
type Image struct {
	// Name is the file name, p<page>-b<block>.<ext>.
	Name  string
	Path  string
	Page  int
	Block int
	Ext   string

	// Raw reports that the bytes were stored without a successful decode.
	Raw bool
}

// Materializer persists image blocks under one staging directory.
type Materializer struct {
	dir    string
	policy types.DecodeFailurePolicy
	log    zerolog.Logger
	ready  bool
}

// New returns a Materializer writing into dir. An empty policy means
// types.DecodeAbort. The directory is created on first use.
func New(dir string, policy types.DecodeFailurePolicy, log zerolog.Logger) *Materializer {
	if policy == "" {
		policy = types.DecodeAbort
	}
	return &Materializer{
		dir:    dir,
		policy: policy,
		log:    log.With().Str("component", "materialize").Logger(),
	}
}

// Dir returns the staging directory.
func (m *Materializer) Dir() string {
	return m.dir
}

// Materialize decodes req's bytes and writes them to <dir>/<name>.<ext>.
// An existing file of the same name is overwritten.
func (m *Materializer) Materialize(req blocks.Request) (Image, error) {
	if !placeholder.ValidExt(req.Ext) {
		return Image{}, fmt.Errorf("materializing %s: %w %q", req.Name, blocks.ErrInvalidExt, req.Ext)
	}
	if err := m.ensureDir(); err != nil {
		return Image{}, err
	}

	img := Image{
		Name:  req.Filename(),
		Path:  filepath.Join(m.dir, req.Filename()),
		Page:  req.Page,
		Block: req.Block,
		Ext:   req.Ext,
	}

	data, err := normalize(req.Data, req.Ext)
	if err != nil {
		if m.policy != types.DecodeRaw {
			return Image{}, fmt.Errorf("materializing %s: %w: %v", img.Name, ErrDecode, err)
		}
		m.log.Warn().Err(err).Str("image", img.Name).Msg("storing undecodable image bytes as-is")
		data = req.Data
		img.Raw = true
	}

	if err := os.WriteFile(img.Path, data, 0o644); err != nil {
		return Image{}, fmt.Errorf("writing %s: %w", img.Path, err)
	}

	m.log.Debug().Str("image", img.Name).Int("bytes", len(data)).Msg("image materialized")
	return img, nil
}

func (m *Materializer) ensureDir() error {
	if m.ready {
		return nil
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating staging directory %s: %w", m.dir, err)
	}
	m.ready = true
	return nil
}

// normalize decodes data and returns the bytes to store. When the decoded
// format already matches ext the input is returned unchanged; otherwise the
// image is re-encoded for ext when an encoder exists.
func normalize(data []byte, ext string) ([]byte, error) {
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	want := canonicalFormat(ext)
	if want == format {
		return data, nil
	}

	encode, ok := encoders[want]
	if !ok {
		return data, nil
	}

	var buf bytes.Buffer
	if err := encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("re-encoding %s as %s: %w", format, want, err)
	}
	return buf.Bytes(), nil
}

// canonicalFormat maps a file extension to the format name reported by
// image.Decode.
func canonicalFormat(ext string) string {
	switch e := strings.ToLower(ext); e {
	case "jpg", "jpe":
		return "jpeg"
	case "tif":
		return "tiff"
	default:
		return e
	}
}

var encoders = map[string]func(io.Writer, image.Image) error{
	"png": png.Encode,
	"jpeg": func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	},
	"gif": func(w io.Writer, img image.Image) error {
		return gif.Encode(w, img, nil)
	},
	"bmp": bmp.Encode,
	"tiff": func(w io.Writer, img image.Image) error {
		return tiff.Encode(w, img, nil)
	},
}
