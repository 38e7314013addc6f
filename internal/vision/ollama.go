// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/pdiddy/doc2text/internal/describe"
	"github.com/pdiddy/doc2text/internal/httputil"
)

// DefaultOllamaURL is used when no server URL is configured.
const DefaultOllamaURL = "http://127.0.0.1:11434"

// Ollama describes images with a model served by Ollama.
type Ollama struct {
	ServerURL  string
	Model      string
	MaxRetries int
	Log        zerolog.Logger
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Init(ctx context.Context) (describe.Handle, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("ollama backend: model is required")
	}
	url := o.ServerURL
	if url == "" {
		url = DefaultOllamaURL
	}
	llm, err := ollama.New(
		ollama.WithModel(o.Model),
		ollama.WithServerURL(url),
		ollama.WithHTTPClient(httputil.NewClient(requestTimeout, o.MaxRetries).StandardClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return &chatHandle{
		model:     llm,
		imagePart: binaryPart,
		log:       o.Log,
	}, nil
}
