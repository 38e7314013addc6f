// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package describe maps a batch of stored images to natural-language
// descriptions using a vision backend that is initialized once per batch.
package describe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/doc2text/pkg/types"
)

// ErrBackendInit wraps the error returned by Generate when the backend could
// not be initialized. The accompanying map is empty.
var ErrBackendInit = errors.New("vision backend initialization failed")

// errorPrefix starts every description recorded in place of a failure.
const errorPrefix = "Error: "

// MissingFileDescription is recorded for an image that is not on disk.
const MissingFileDescription = errorPrefix + "File not found."

// Backend creates a Handle. Implementations load models or start servers in
// Init, so Init runs once per batch.
type Backend interface {
	// Name identifies the backend in logs and reports.
	Name() string
	Init(ctx context.Context) (Handle, error)
}

// Handle describes images with an initialized backend. A Handle is used by
// one batch at a time and is not safe for concurrent use.
type Handle interface {
	Describe(ctx context.Context, imagePath, prompt string, maxTokens int) (string, error)
	Close() error
}

// Map holds one description per image, keyed by file name.
type Map map[string]string

// IsErrorDescription reports whether a description records a failure.
func IsErrorDescription(s string) bool {
	return strings.HasPrefix(s, errorPrefix)
}

// Outcome reports the result for one image as the batch progresses.
type Outcome struct {
	Index       int
	Total       int
	Name        string
	Path        string
	Status      types.ImageStatus
	Description string
	Err         error
}

// Observer receives one Outcome per image, in batch order.
type Observer func(Outcome)

// Options configures a Generator.
type Options struct {
	Prompt     string
	MaxTokens  int
	MaxRetries int
	Observer   Observer
}

// Generator runs description batches against one backend.
type Generator struct {
	backend Backend
	opts    Options
	log     zerolog.Logger
}

// NewGenerator returns a Generator for backend.
func NewGenerator(backend Backend, opts Options, log zerolog.Logger) *Generator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = types.DefaultMaxTokens
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Generator{
		backend: backend,
		opts:    opts,
		log:     log.With().Str("component", "describe").Str("backend", backend.Name()).Logger(),
	}
}

// Generate describes every image in paths, sequentially. Per-image failures
// are recorded in the map as "Error: ..." values and never abort the batch.
// If the backend cannot be initialized, Generate returns an empty map and an
// error wrapping ErrBackendInit.
func (g *Generator) Generate(ctx context.Context, paths []string) (Map, error) {
	result := make(Map, len(paths))
	if len(paths) == 0 {
		return result, nil
	}

	g.log.Info().Int("images", len(paths)).Msg("initializing vision backend")
	start := time.Now()
	handle, err := g.backend.Init(ctx)
	if err != nil {
		g.log.Error().Err(err).Msg("vision backend failed to initialize; no images will be described")
		return Map{}, fmt.Errorf("%w: %s: %v", ErrBackendInit, g.backend.Name(), err)
	}
	defer func() {
		if err := handle.Close(); err != nil {
			g.log.Warn().Err(err).Msg("closing vision backend")
		}
	}()
	g.log.Info().Dur("took", time.Since(start)).Msg("vision backend ready")

	for i, path := range paths {
		out := g.describeOne(ctx, handle, path)
		out.Index = i
		out.Total = len(paths)
		result[out.Name] = out.Description

		ev := g.log.Info()
		if out.Status != types.ImageDescribed {
			ev = g.log.Warn().Err(out.Err)
		}
		ev.Str("image", out.Name).
			Str("status", string(out.Status)).
			Int("index", i+1).
			Int("total", len(paths)).
			Msg("image processed")

		if g.opts.Observer != nil {
			g.opts.Observer(out)
		}
	}

	return result, nil
}

func (g *Generator) describeOne(ctx context.Context, handle Handle, path string) Outcome {
	out := Outcome{Name: filepath.Base(path), Path: path}

	if _, err := os.Stat(path); err != nil {
		out.Status = types.ImageMissing
		out.Description = MissingFileDescription
		out.Err = fmt.Errorf("stat %s: %w", path, err)
		return out
	}

	desc, err := describeWithRetry(ctx, handle, path, g.opts)
	if err != nil {
		out.Status = types.ImageFailed
		out.Description = fmt.Sprintf("%sCould not process image. Details: %v", errorPrefix, err)
		out.Err = err
		return out
	}

	out.Status = types.ImageDescribed
	out.Description = strings.TrimSpace(desc)
	return out
}

// backoffBase controls the base duration for exponential backoff between
// attempts on one image. Tests override this to avoid real sleeps.
var backoffBase = time.Second

func describeWithRetry(ctx context.Context, handle Handle, path string, opts Options) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		desc, err := handle.Describe(ctx, path, opts.Prompt, opts.MaxTokens)
		if err == nil {
			return desc, nil
		}
		lastErr = err
	}
	if opts.MaxRetries > 0 {
		return "", fmt.Errorf("after %d retries: %w", opts.MaxRetries, lastErr)
	}
	return "", lastErr
}

// ListStaged returns the paths of the regular, non-hidden files in dir,
// sorted by name. It supports describing a staging directory snapshot
// instead of an explicit list.
func ListStaged(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading staging directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
