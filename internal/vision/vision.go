// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vision implements describe.Backend for model servers that accept
// images over HTTP: a locally launched llama.cpp server, OpenAI-compatible
// endpoints, and Ollama.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
)

// imagePartFunc builds the message part that carries an image. OpenAI-style
// servers take a data URL; Ollama takes the raw bytes.
type imagePartFunc func(mimeType string, data []byte) llms.ContentPart

func dataURLPart(mimeType string, data []byte) llms.ContentPart {
	return llms.ImageURLPart(DataURL(mimeType, data))
}

func binaryPart(mimeType string, data []byte) llms.ContentPart {
	return llms.BinaryPart(mimeType, data)
}

// DataURL encodes data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// MimeType returns the image MIME type for path based on its extension,
// falling back to image/png for extensions the system does not know.
func MimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".jpe":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/png"
}

// chatHandle sends one image plus the prompt as a single human message and
// returns the first choice.
type chatHandle struct {
	model     llms.Model
	imagePart imagePartFunc
	log       zerolog.Logger

	// closeFn releases resources tied to the handle, such as a server
	// process. May be nil.
	closeFn func() error
}

func (h *chatHandle) Describe(ctx context.Context, imagePath, prompt string, maxTokens int) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("reading image %s: %w", imagePath, err)
	}

	msg := llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			h.imagePart(MimeType(imagePath), data),
			llms.TextPart(prompt),
		},
	}

	var opts []llms.CallOption
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	h.log.Debug().Str("image", filepath.Base(imagePath)).Int("bytes", len(data)).Msg("sending image to vision model")
	// The retrying HTTP client logs through the request context.
	ctx = h.log.With().Str("image", filepath.Base(imagePath)).Logger().WithContext(ctx)
	resp, err := h.model.GenerateContent(ctx, []llms.MessageContent{msg}, opts...)
	if err != nil {
		return "", fmt.Errorf("generating description: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("generating description: empty response")
	}
	return resp.Choices[0].Content, nil
}

func (h *chatHandle) Close() error {
	if h.closeFn == nil {
		return nil
	}
	return h.closeFn()
}
