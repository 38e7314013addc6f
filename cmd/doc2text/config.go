// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/doc2text/internal/secrets"
	"github.com/pdiddy/doc2text/internal/vision"
	"github.com/pdiddy/doc2text/pkg/types"
)

// envKeyReplacer maps nested keys to environment names, so vision.base_url
// is read from DOC2TEXT_VISION_BASE_URL.
var envKeyReplacer = strings.NewReplacer(".", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("staging_dir", types.DefaultStagingDir)
	v.SetDefault("output_dir", ".")
	v.SetDefault("unknown_blocks", string(types.UnknownSkip))
	v.SetDefault("decode_failure", string(types.DecodeAbort))
	v.SetDefault("block_gap", types.DefaultBlockGap)

	v.SetDefault("vision.backend", string(types.BackendLlamaCpp))
	v.SetDefault("vision.model_path", "")
	v.SetDefault("vision.clip_model_path", "")
	v.SetDefault("vision.model", "")
	v.SetDefault("vision.base_url", "")
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.max_tokens", types.DefaultMaxTokens)
	v.SetDefault("vision.context_size", 4096)
	v.SetDefault("vision.gpu_layers", -1)
	v.SetDefault("vision.server_bin", "llama-server")
	v.SetDefault("vision.container_image", "")
	v.SetDefault("vision.startup_timeout", 2*time.Minute)
	v.SetDefault("vision.max_retries", 0)
	v.SetDefault("vision.languages", []string{"eng"})
	v.SetDefault("vision.prompt_file", "")

	v.SetDefault("report.enabled", true)
	v.SetDefault("report.db", "doc2text.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func configuredLog() types.LogConfig {
	return types.LogConfig{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
	}
}

// loadConfig assembles the run configuration from v, validating policy
// names and filling the API key from secrets when it is not configured.
func loadConfig(v *viper.Viper, secretValues map[string]string) (types.Config, error) {
	unknown, err := types.ParseUnknownBlockPolicy(v.GetString("unknown_blocks"))
	if err != nil {
		return types.Config{}, err
	}
	decode, err := types.ParseDecodeFailurePolicy(v.GetString("decode_failure"))
	if err != nil {
		return types.Config{}, err
	}

	prompt, err := vision.LoadPrompt(v.GetString("vision.prompt_file"))
	if err != nil {
		return types.Config{}, err
	}

	apiKey := v.GetString("vision.api_key")
	if apiKey == "" {
		apiKey = secrets.VisionKey(secretValues)
	}

	cfg := types.Config{
		Conversion: types.ConversionConfig{
			StagingDir:    v.GetString("staging_dir"),
			OutputDir:     v.GetString("output_dir"),
			UnknownBlocks: unknown,
			DecodeFailure: decode,
			BlockGap:      v.GetFloat64("block_gap"),
		},
		Vision: types.VisionConfig{
			Backend:        types.VisionBackend(strings.ToLower(v.GetString("vision.backend"))),
			ModelPath:      v.GetString("vision.model_path"),
			ClipModelPath:  v.GetString("vision.clip_model_path"),
			Model:          v.GetString("vision.model"),
			BaseURL:        v.GetString("vision.base_url"),
			APIKey:         apiKey,
			MaxTokens:      v.GetInt("vision.max_tokens"),
			ContextSize:    v.GetInt("vision.context_size"),
			GPULayers:      v.GetInt("vision.gpu_layers"),
			ServerBin:      v.GetString("vision.server_bin"),
			ContainerImage: v.GetString("vision.container_image"),
			StartupTimeout: v.GetDuration("vision.startup_timeout"),
			MaxRetries:     v.GetInt("vision.max_retries"),
			Languages:      v.GetStringSlice("vision.languages"),
			Prompt:         prompt,
		},
		Report: types.ReportConfig{
			Enabled: v.GetBool("report.enabled"),
			DBPath:  v.GetString("report.db"),
		},
		Log: types.LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.Conversion.BlockGap <= 0 {
		return types.Config{}, fmt.Errorf("block_gap must be positive, got %v", cfg.Conversion.BlockGap)
	}
	if cfg.Vision.MaxTokens <= 0 {
		return types.Config{}, fmt.Errorf("vision.max_tokens must be positive, got %d", cfg.Vision.MaxTokens)
	}
	return cfg, nil
}
