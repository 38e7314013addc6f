// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/doc2text/internal/describe"
	"github.com/pdiddy/doc2text/internal/vision"
	"github.com/pdiddy/doc2text/pkg/types"
)

// backendFactory builds a backend that is compiled in only under a build tag.
type backendFactory func(cfg types.VisionConfig, log zerolog.Logger) describe.Backend

// optionalBackends is filled by init functions in tagged files, so cgo
// backends stay out of default builds.
var optionalBackends = map[types.VisionBackend]backendFactory{}

// buildTags names the tag that compiles in each optional backend.
var buildTags = map[types.VisionBackend]string{
	types.BackendTesseract: "tesseract",
}

// newBackend returns the vision backend selected by cfg.Backend. Nothing is
// started here; backends do their work in Init.
func newBackend(cfg types.VisionConfig, log zerolog.Logger) (describe.Backend, error) {
	log = log.With().Str("backend", string(cfg.Backend)).Logger()

	switch cfg.Backend {
	case types.BackendLlamaCpp, "":
		return &vision.LlamaCpp{
			Server: vision.ServerConfig{
				ModelPath:     cfg.ModelPath,
				ClipModelPath: cfg.ClipModelPath,
				ContextSize:   cfg.ContextSize,
				GPULayers:     cfg.GPULayers,
			},
			ServerBin:      cfg.ServerBin,
			ContainerImage: cfg.ContainerImage,
			StartupTimeout: cfg.StartupTimeout,
			MaxRetries:     cfg.MaxRetries,
			Log:            log,
		}, nil
	case types.BackendOpenAI:
		return &vision.OpenAI{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Log:        log,
		}, nil
	case types.BackendOllama:
		return &vision.Ollama{
			ServerURL:  cfg.BaseURL,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Log:        log,
		}, nil
	}
	if factory, ok := optionalBackends[cfg.Backend]; ok {
		return factory(cfg, log), nil
	}
	if tag, ok := buildTags[cfg.Backend]; ok {
		return nil, fmt.Errorf("vision backend %q is not built in; rebuild with -tags %s", cfg.Backend, tag)
	}
	return nil, fmt.Errorf("unknown vision backend %q (want llamacpp, openai, ollama, or tesseract)", cfg.Backend)
}

func describeOptions(cfg types.VisionConfig) describe.Options {
	return describe.Options{
		Prompt:     cfg.Prompt,
		MaxTokens:  cfg.MaxTokens,
		MaxRetries: cfg.MaxRetries,
	}
}
