// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// UnknownBlockPolicy decides what the block extractor does with a block
// whose type is neither text nor image.
type UnknownBlockPolicy string

const (
	// UnknownSkip drops the block without output or error.
	UnknownSkip UnknownBlockPolicy = "skip"
	// UnknownError aborts the page with an error.
	UnknownError UnknownBlockPolicy = "error"
)

// ParseUnknownBlockPolicy validates a policy name. The empty string selects
// UnknownSkip.
func ParseUnknownBlockPolicy(s string) (UnknownBlockPolicy, error) {
	switch UnknownBlockPolicy(s) {
	case "", UnknownSkip:
		return UnknownSkip, nil
	case UnknownError:
		return UnknownError, nil
	}
	return "", fmt.Errorf("unknown block policy %q (want %q or %q)", s, UnknownSkip, UnknownError)
}

// DecodeFailurePolicy decides what the materializer does with image bytes
// that cannot be decoded.
type DecodeFailurePolicy string

const (
	// DecodeAbort fails the document.
	DecodeAbort DecodeFailurePolicy = "abort"
	// DecodeRaw stores the undecoded bytes under the usual name and continues.
	DecodeRaw DecodeFailurePolicy = "raw"
)

// ParseDecodeFailurePolicy validates a policy name. The empty string selects
// DecodeAbort.
func ParseDecodeFailurePolicy(s string) (DecodeFailurePolicy, error) {
	switch DecodeFailurePolicy(s) {
	case "", DecodeAbort:
		return DecodeAbort, nil
	case DecodeRaw:
		return DecodeRaw, nil
	}
	return "", fmt.Errorf("unknown decode failure policy %q (want %q or %q)", s, DecodeAbort, DecodeRaw)
}

// VisionBackend identifies the engine that describes images.
type VisionBackend string

const (
	BackendLlamaCpp  VisionBackend = "llamacpp"
	BackendOpenAI    VisionBackend = "openai"
	BackendOllama    VisionBackend = "ollama"
	BackendTesseract VisionBackend = "tesseract"
)

// VisionConfig holds settings for the description stage.
type VisionConfig struct {
	// Backend selects the engine: llamacpp, openai, ollama, or tesseract.
	Backend VisionBackend `json:"backend" yaml:"backend"`

	// ModelPath is the vision model file (GGUF) loaded by llama-server.
	ModelPath string `json:"model_path" yaml:"model_path"`

	// ClipModelPath is the multimodal projector (mmproj) paired with ModelPath.
	ClipModelPath string `json:"clip_model_path" yaml:"clip_model_path"`

	// Model is the model identifier for openai and ollama backends.
	Model string `json:"model" yaml:"model"`

	// BaseURL is the server endpoint for openai and ollama backends.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates against the openai backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps each description (default 2048).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// ContextSize is the llama-server context window (default 4096).
	ContextSize int `json:"context_size" yaml:"context_size"`

	// GPULayers is the number of layers offloaded to the GPU; -1 offloads all.
	GPULayers int `json:"gpu_layers" yaml:"gpu_layers"`

	// ServerBin is the llama-server executable (default "llama-server").
	ServerBin string `json:"server_bin" yaml:"server_bin"`

	// ContainerImage, when set, runs llama-server in a container instead of
	// the local binary.
	ContainerImage string `json:"container_image,omitempty" yaml:"container_image,omitempty"`

	// StartupTimeout bounds how long the llamacpp backend waits for the
	// server to report healthy (default 2m).
	StartupTimeout time.Duration `json:"startup_timeout" yaml:"startup_timeout"`

	// MaxRetries is the number of extra attempts per image after a backend
	// error (default 0).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Languages lists tesseract language packs (default ["eng"]).
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`

	// Prompt is the instruction sent with every image.
	Prompt string `json:"-" yaml:"-"`
}

// ReportConfig holds settings for the run ledger.
type ReportConfig struct {
	// Enabled controls whether runs are recorded.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// DBPath is the SQLite database file (default "doc2text.db").
	DBPath string `json:"db" yaml:"db"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is a zerolog level name (default "info").
	Level string `json:"level" yaml:"level"`

	// Format is "console" or "json" (default "console").
	Format string `json:"format" yaml:"format"`
}

// Defaults applied when a setting is left empty.
const (
	DefaultStagingDir = "images_tmp"
	DefaultMaxTokens  = 2048
	DefaultBlockGap   = 1.5
)

// ConversionConfig holds settings for converting one or more documents.
type ConversionConfig struct {
	// StagingDir receives materialized images (default "images_tmp").
	StagingDir string `json:"staging_dir" yaml:"staging_dir"`

	// OutputDir receives the final text files (default ".").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	UnknownBlocks UnknownBlockPolicy  `json:"unknown_blocks" yaml:"unknown_blocks"`
	DecodeFailure DecodeFailurePolicy `json:"decode_failure" yaml:"decode_failure"`

	// BlockGap is the vertical gap, in line heights, that starts a new text
	// block when parsing PDF pages (default 1.5).
	BlockGap float64 `json:"block_gap" yaml:"block_gap"`

	// SkipDescribe leaves every placeholder in the output.
	SkipDescribe bool `json:"skip_describe" yaml:"skip_describe"`
}

// Config groups all settings for a doc2text invocation.
type Config struct {
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Vision     VisionConfig     `json:"vision" yaml:"vision"`
	Report     ReportConfig     `json:"report" yaml:"report"`
	Log        LogConfig        `json:"log" yaml:"log"`
}
