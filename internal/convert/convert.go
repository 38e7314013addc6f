// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs the document-to-text pipeline: blocks are extracted
// page by page into linear text with image placeholders, images are stored
// in the staging directory, described in one batch, and the descriptions
// are substituted back before the text file is written.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/doc2text/internal/blocks"
	"github.com/pdiddy/doc2text/internal/describe"
	"github.com/pdiddy/doc2text/internal/linear"
	"github.com/pdiddy/doc2text/internal/materialize"
	"github.com/pdiddy/doc2text/internal/substitute"
	"github.com/pdiddy/doc2text/pkg/types"
)

// outputExt is appended to the input's base name to form the output file.
const outputExt = ".txt"

// Source is an open document: an ordered sequence of pages.
type Source interface {
	NumPages() int
	// Page returns the page at zero-based index i.
	Page(i int) (types.Page, error)
	Close() error
}

// Opener opens the document at path.
type Opener func(path string) (Source, error)

// Recorder stores finished runs. *report.Store implements it.
type Recorder interface {
	RecordRun(ctx context.Context, run *types.RunRecord) error
}

// Options configures a Pipeline.
type Options struct {
	Config types.ConversionConfig

	// Open opens input documents. Defaults to OpenDocument.
	Open Opener

	// Backend describes images. A nil Backend behaves like
	// Config.SkipDescribe.
	Backend describe.Backend

	// Describe configures the generator; its Observer, if set, is called
	// for every image after the pipeline records the outcome.
	Describe describe.Options

	// Recorder receives one record per document. May be nil.
	Recorder Recorder

	Log zerolog.Logger
}

// Pipeline converts documents one at a time.
type Pipeline struct {
	cfg      types.ConversionConfig
	open     Opener
	backend  describe.Backend
	descOpts describe.Options
	recorder Recorder
	log      zerolog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// New returns a Pipeline for opts.
func New(opts Options) *Pipeline {
	cfg := opts.Config
	if cfg.StagingDir == "" {
		cfg.StagingDir = types.DefaultStagingDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	open := opts.Open
	if open == nil {
		open = func(path string) (Source, error) { return OpenDocument(path, cfg.BlockGap) }
	}
	return &Pipeline{
		cfg:      cfg,
		open:     open,
		backend:  opts.Backend,
		descOpts: opts.Describe,
		recorder: opts.Recorder,
		log:      opts.Log.With().Str("component", "convert").Logger(),
		now:      time.Now,
	}
}

// OutputPath returns the text file written for the document at path:
// the input's base name, extension stripped, with .txt in the output
// directory.
func (p *Pipeline) OutputPath(path string) string {
	return filepath.Join(p.cfg.OutputDir, baseName(path)+outputExt)
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ConvertDocument converts one document and writes its text file.
//
// The returned record is complete whether or not the conversion succeeded
// and has already been passed to the Recorder. The error is non-nil only
// when no output was written (status failed). A backend that cannot be
// initialized degrades the run instead: the output keeps every placeholder.
func (p *Pipeline) ConvertDocument(ctx context.Context, path string) (types.RunRecord, error) {
	run := types.RunRecord{
		Document:  path,
		StartedAt: p.now(),
		Status:    types.RunConverted,
	}
	if p.describing() {
		run.Backend = p.backend.Name()
	}
	log := p.log.With().Str("document", filepath.Base(path)).Logger()

	err := p.convert(ctx, path, &run, log)
	if err != nil {
		run.Status = types.RunFailed
		run.Error = err.Error()
		run.OutputPath = ""
		log.Error().Err(err).Msg("conversion failed")
	}
	run.FinishedAt = p.now()
	p.record(ctx, &run, log)
	return run, err
}

func (p *Pipeline) describing() bool {
	return p.backend != nil && !p.cfg.SkipDescribe
}

func (p *Pipeline) convert(ctx context.Context, path string, run *types.RunRecord, log zerolog.Logger) error {
	src, err := p.open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	run.Pages = src.NumPages()
	log.Info().Int("pages", run.Pages).Msg("document opened")

	text, images, err := p.linearize(ctx, src, run, log)
	if err != nil {
		return err
	}
	run.Images = len(images)
	log.Info().Int("images", len(images)).Msg("pages linearized")

	descriptions := p.describe(ctx, images, run, log)

	final := substitute.Apply(text, descriptions)
	run.Leftovers = len(substitute.Leftovers(final))

	outPath := p.OutputPath(path)
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(final), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	run.OutputPath = outPath

	log.Info().
		Str("output", outPath).
		Int("described", run.Described).
		Int("failed", run.Failed).
		Int("leftovers", run.Leftovers).
		Msg("text written")
	return nil
}

// linearize walks every page, building the linear text and storing every
// image block before any description starts.
func (p *Pipeline) linearize(ctx context.Context, src Source, run *types.RunRecord, log zerolog.Logger) (string, []materialize.Image, error) {
	extractor := blocks.NewExtractor(p.cfg.UnknownBlocks, log)
	store := materialize.New(p.cfg.StagingDir, p.cfg.DecodeFailure, log)

	var text linear.Builder
	var images []materialize.Image
	for i := 0; i < run.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		page, err := src.Page(i)
		if err != nil {
			return "", nil, fmt.Errorf("reading page %d: %w", i+1, err)
		}
		res, err := extractor.ExtractPage(page)
		if err != nil {
			return "", nil, err
		}
		text.AddPage(res.Text)

		for _, req := range res.Requests {
			img, err := store.Materialize(req)
			if err != nil {
				return "", nil, err
			}
			images = append(images, img)
			run.Outcomes = append(run.Outcomes, types.ImageOutcome{
				Name:   img.Name,
				Page:   img.Page,
				Block:  img.Block,
				Path:   img.Path,
				Status: types.ImageSkipped,
			})
		}
	}
	return text.String(), images, nil
}

// describe runs one description batch over images. It never fails the run:
// a backend that cannot start marks the run degraded and yields no
// descriptions.
func (p *Pipeline) describe(ctx context.Context, images []materialize.Image, run *types.RunRecord, log zerolog.Logger) describe.Map {
	if len(images) == 0 {
		return describe.Map{}
	}
	if !p.describing() {
		run.Status = types.RunDegraded
		log.Info().Int("images", len(images)).Msg("description disabled; placeholders kept")
		return describe.Map{}
	}

	index := make(map[string]int, len(run.Outcomes))
	for i, o := range run.Outcomes {
		index[o.Name] = i
	}

	opts := p.descOpts
	user := opts.Observer
	opts.Observer = func(o describe.Outcome) {
		if i, ok := index[o.Name]; ok {
			run.Outcomes[i].Status = o.Status
			if o.Err != nil {
				run.Outcomes[i].Detail = o.Err.Error()
			}
		}
		if o.Status == types.ImageDescribed {
			run.Described++
		} else {
			run.Failed++
		}
		if user != nil {
			user(o)
		}
	}

	paths := make([]string, len(images))
	for i, img := range images {
		paths[i] = img.Path
	}

	descriptions, err := describe.NewGenerator(p.backend, opts, log).Generate(ctx, paths)
	if err != nil {
		run.Status = types.RunDegraded
		run.Error = err.Error()
		return describe.Map{}
	}
	return descriptions
}

func (p *Pipeline) record(ctx context.Context, run *types.RunRecord, log zerolog.Logger) {
	if p.recorder == nil {
		return
	}
	// Record even when ctx was cancelled so interrupted runs are visible.
	if err := p.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn().Err(err).Msg("recording run")
	}
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Degraded  int
	Failed    int

	Runs []types.RunRecord
}

// Total returns the total number of documents processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Degraded + r.Failed
}

// HasFailures reports whether any document failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertBatch converts each document in order, printing per-document
// status to w and returning a summary. A cancelled context stops the batch
// before the next document.
func (p *Pipeline) ConvertBatch(ctx context.Context, paths []string, w io.Writer) BatchResult {
	var result BatchResult
	for _, path := range paths {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "interrupted: %d document(s) not converted\n", len(paths)-result.Total())
			break
		}

		run, err := p.ConvertDocument(ctx, path)
		result.Runs = append(result.Runs, run)
		name := baseName(path)
		switch run.Status {
		case types.RunConverted:
			result.Converted++
			fmt.Fprintf(w, "converted: %s (%d images, %d described, %d failed)\n",
				name, run.Images, run.Described, run.Failed)
		case types.RunDegraded:
			result.Degraded++
			fmt.Fprintf(w, "degraded:  %s (%d placeholders kept)\n", name, run.Leftovers)
		default:
			result.Failed++
			fmt.Fprintf(w, "failed:    %s (%v)\n", name, err)
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d degraded, %d failed (total: %d)\n",
		result.Converted, result.Degraded, result.Failed, result.Total())
	return result
}
