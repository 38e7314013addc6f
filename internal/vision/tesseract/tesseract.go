// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build tesseract

// Package tesseract implements describe.Backend with offline OCR. Images are
// transcribed rather than described, so the prompt and token limit are
// ignored. Requires the Tesseract library (libtesseract) at build time.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"github.com/pdiddy/doc2text/internal/describe"
)

// client is the subset of *gosseract.Client used here.
type client interface {
	SetLanguage(langs ...string) error
	SetImage(path string) error
	Text() (string, error)
	Close() error
}

// newClient creates the OCR client. Tests replace it.
var newClient = func() client { return gosseract.NewClient() }

// Backend transcribes images with Tesseract.
type Backend struct {
	// Languages are Tesseract language packs, e.g. ["eng", "deu"].
	// Defaults to eng.
	Languages []string
	Log       zerolog.Logger
}

func (b *Backend) Name() string { return "tesseract" }

// Init creates one OCR client for the batch.
func (b *Backend) Init(ctx context.Context) (describe.Handle, error) {
	langs := b.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	c := newClient()
	if err := c.SetLanguage(langs...); err != nil {
		c.Close()
		return nil, fmt.Errorf("setting tesseract languages %s: %w", strings.Join(langs, "+"), err)
	}
	b.Log.Debug().Strs("languages", langs).Msg("tesseract client ready")
	return &handle{c: c}, nil
}

type handle struct {
	c client
}

func (h *handle) Describe(ctx context.Context, imagePath, prompt string, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := h.c.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("loading image %s: %w", imagePath, err)
	}
	text, err := h.c.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "No text detected.", nil
	}
	return "Transcribed text: " + text, nil
}

func (h *handle) Close() error {
	return h.c.Close()
}
