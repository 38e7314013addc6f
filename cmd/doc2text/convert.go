// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc2text/internal/convert"
	"github.com/pdiddy/doc2text/internal/describe"
	"github.com/pdiddy/doc2text/internal/report"
	"github.com/pdiddy/doc2text/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [documents...]",
	Short: "Convert documents to plain text with image descriptions",
	Long: `Convert extracts text and images from each document, stores every image
in the staging directory, asks the vision backend to describe them, and
writes <output-dir>/<name>.txt with each image replaced by its description.

Documents are converted one after another. A document whose images could
not be described still produces a text file that keeps the image
placeholders; it is reported as degraded. The command exits non-zero when
any document failed outright.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("staging-dir", types.DefaultStagingDir, "directory that receives extracted images")
	convertCmd.Flags().String("output-dir", ".", "directory that receives text files")
	convertCmd.Flags().String("backend", string(types.BackendLlamaCpp), "vision backend: llamacpp, openai, ollama, or tesseract")
	convertCmd.Flags().String("unknown-blocks", string(types.UnknownSkip), "unknown block policy: skip or error")
	convertCmd.Flags().String("decode-failure", string(types.DecodeAbort), "undecodable image policy: abort or raw")
	convertCmd.Flags().Bool("no-describe", false, "skip image description and keep placeholders")
	convertCmd.Flags().Bool("clean-staging", false, "remove staged images after the batch")
	convertCmd.Flags().Bool("progress", false, "show a progress bar while describing images")

	viper.BindPFlag("staging_dir", convertCmd.Flags().Lookup("staging-dir"))
	viper.BindPFlag("output_dir", convertCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("vision.backend", convertCmd.Flags().Lookup("backend"))
	viper.BindPFlag("unknown_blocks", convertCmd.Flags().Lookup("unknown-blocks"))
	viper.BindPFlag("decode_failure", convertCmd.Flags().Lookup("decode-failure"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	noDescribe, _ := cmd.Flags().GetBool("no-describe")
	cleanStaging, _ := cmd.Flags().GetBool("clean-staging")
	showProgress, _ := cmd.Flags().GetBool("progress")
	cfg.Conversion.SkipDescribe = noDescribe

	ctx, stop := signalContext()
	defer stop()

	opts := convert.Options{
		Config:   cfg.Conversion,
		Describe: describeOptions(cfg.Vision),
		Log:      logger,
	}

	if !noDescribe {
		backend, err := newBackend(cfg.Vision, logger)
		if err != nil {
			return err
		}
		opts.Backend = backend
	}

	if cfg.Report.Enabled {
		store, err := report.Open(cfg.Report.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Recorder = store
	}

	var bar *imageProgress
	if showProgress {
		bar = &imageProgress{}
		opts.Describe.Observer = bar.observe
	}

	pipeline := convert.New(opts)
	result := pipeline.ConvertBatch(ctx, args, cmd.OutOrStdout())
	if bar != nil {
		bar.finish()
	}

	if cleanStaging {
		removeStaged(result.Runs)
	}

	if result.HasFailures() {
		return fmt.Errorf("%d of %d document(s) failed", result.Failed, result.Total())
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// removeStaged deletes the images recorded for runs. Files that are
// already gone are ignored.
func removeStaged(runs []types.RunRecord) {
	removed := 0
	for _, run := range runs {
		for _, o := range run.Outcomes {
			if o.Path == "" {
				continue
			}
			if err := os.Remove(o.Path); err == nil {
				removed++
			} else if !os.IsNotExist(err) {
				logger.Warn().Err(err).Str("path", o.Path).Msg("removing staged image")
			}
		}
	}
	logger.Debug().Int("removed", removed).Msg("cleaned staging directory")
}

// imageProgress shows one bar per document, advanced once per image.
type imageProgress struct {
	bar *progressbar.ProgressBar
}

func (p *imageProgress) observe(o describe.Outcome) {
	if o.Index == 0 {
		p.finish()
		p.bar = progressbar.NewOptions(o.Total,
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Describing images"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(os.Stderr, "\n")
			}),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *imageProgress) finish() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	p.bar = nil
}
