// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/pdiddy/doc2text/internal/describe"
	"github.com/pdiddy/doc2text/internal/httputil"
)

// requestTimeout bounds a single description request, including retries
// within the HTTP client.
const requestTimeout = 5 * time.Minute

// OpenAI describes images through an OpenAI-compatible chat completions
// endpoint.
type OpenAI struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Log        zerolog.Logger
}

func (o *OpenAI) Name() string { return "openai" }

// Init builds the client. Nothing is contacted until the first Describe.
func (o *OpenAI) Init(ctx context.Context) (describe.Handle, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("openai backend: model is required")
	}
	if o.APIKey == "" {
		return nil, fmt.Errorf("openai backend: api key is required")
	}
	h, err := newOpenAIHandle(o.BaseURL, o.APIKey, o.Model, o.MaxRetries, o.Log)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func newOpenAIHandle(baseURL, token, model string, maxRetries int, log zerolog.Logger) (*chatHandle, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(token),
		openai.WithHTTPClient(httputil.NewClient(requestTimeout, maxRetries)),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return &chatHandle{
		model:     llm,
		imagePart: dataURLPart,
		log:       log,
	}, nil
}
