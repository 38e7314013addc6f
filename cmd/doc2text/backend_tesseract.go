// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build tesseract

package main

import (
	"github.com/rs/zerolog"

	"github.com/pdiddy/doc2text/internal/describe"
	"github.com/pdiddy/doc2text/internal/vision/tesseract"
	"github.com/pdiddy/doc2text/pkg/types"
)

func init() {
	optionalBackends[types.BackendTesseract] = func(cfg types.VisionConfig, log zerolog.Logger) describe.Backend {
		return &tesseract.Backend{Languages: cfg.Languages, Log: log}
	}
}
