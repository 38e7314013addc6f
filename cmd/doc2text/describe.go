// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2text/internal/describe"
	"github.com/pdiddy/doc2text/pkg/types"
)

var describeCmd = &cobra.Command{
	Use:   "describe [dir]",
	Short: "Describe every image in a staging directory",
	Long: `Describe runs the vision backend over a snapshot of a directory (the
staging directory by default) and prints the descriptions as YAML, keyed
by file name. Images that cannot be described are listed with an
"Error: ..." value.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDescribe,
}

func init() {
	describeCmd.Flags().String("backend", "", "vision backend: llamacpp, openai, ollama, or tesseract (default from config)")

	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	if name, _ := cmd.Flags().GetString("backend"); name != "" {
		cfg.Vision.Backend = types.VisionBackend(name)
	}

	dir := cfg.Conversion.StagingDir
	if len(args) == 1 {
		dir = args[0]
	}
	paths, err := describe.ListStaged(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no images in %s\n", dir)
		return nil
	}

	backend, err := newBackend(cfg.Vision, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	gen := describe.NewGenerator(backend, describeOptions(cfg.Vision), logger)
	descriptions, err := gen.Generate(ctx, paths)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(map[string]string(descriptions)); err != nil {
		return fmt.Errorf("encoding descriptions: %w", err)
	}
	return enc.Close()
}
