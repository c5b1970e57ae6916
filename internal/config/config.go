// Package config provides configuration loading for the transcriber.
// Supports YAML files, .env files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/pdf-transcriber/internal/domain"
	"github.com/spherical/pdf-transcriber/internal/observability"
)

const (
	DefaultModel     = "gemini-2.5-flash"
	DefaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"
	DefaultPrompt    = "Extract all readable text and describe any diagrams/figures briefly."
	DefaultInput     = "sample.pdf"
	DefaultOutput    = "gemini_output.txt"
	DefaultWorkDir   = "pdf_pages"
	DefaultScale     = 2.0
	DefaultQuality   = 85
	envPrefix        = "PDF_TRANSCRIBER_"
	maxScale         = 10.0
	BackendFitz      = "fitz"
	BackendPDFium    = "pdfium"
	FormatPNG        = "png"
	FormatJPEG       = "jpeg"
	credentialEnvVar = "GEMINI_API_KEY"
	fallbackKeyVar   = "GOOGLE_API_KEY"
)

// Config holds all configuration for one transcription run.
type Config struct {
	Credential string         `yaml:"credential"`
	ModelName  string         `yaml:"model_name"`
	InputPath  string         `yaml:"input_path"`
	OutputPath string         `yaml:"output_path"`
	WorkDir    string         `yaml:"work_dir"`
	Scale      float64        `yaml:"scale"`
	LLM        LLMConfig      `yaml:"llm"`
	Renderer   RendererConfig `yaml:"renderer"`
	Log        LogConfig      `yaml:"log"`
}

// LLMConfig holds model endpoint settings.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	Prompt  string        `yaml:"prompt"`
	Timeout time.Duration `yaml:"timeout"` // 0 means no timeout
}

// RendererConfig holds rasterization settings.
type RendererConfig struct {
	Backend     string `yaml:"backend"`      // fitz or pdfium
	ImageFormat string `yaml:"image_format"` // png or jpeg
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Option mutates a loaded configuration before validation.
type Option func(*Config)

// Load reads configuration from a YAML file, applies .env and environment
// overrides, then the given options, and validates the result.
func Load(path string, opts ...Option) (*Config, error) {
	cfg, err := load(path, opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForRender is Load for runs that only rasterize pages; it does not
// require a credential or model settings.
func LoadForRender(path string, opts ...Option) (*Config, error) {
	cfg, err := load(path, opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRenderer(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string, opts []Option) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}

	// A missing .env is fine
	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg, nil
}

// DefaultConfig returns the built-in settings. The credential has no default.
func DefaultConfig() *Config {
	return &Config{
		ModelName:  DefaultModel,
		InputPath:  DefaultInput,
		OutputPath: DefaultOutput,
		WorkDir:    DefaultWorkDir,
		Scale:      DefaultScale,
		LLM: LLMConfig{
			BaseURL: DefaultBaseURL,
			Prompt:  DefaultPrompt,
		},
		Renderer: RendererConfig{
			Backend:     BackendFitz,
			ImageFormat: FormatPNG,
			JPEGQuality: DefaultQuality,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(credentialEnvVar); v != "" {
		cfg.Credential = v
	} else if v := os.Getenv(fallbackKeyVar); v != "" && cfg.Credential == "" {
		cfg.Credential = v
	}

	stringVars := map[string]*string{
		"MODEL":     &cfg.ModelName,
		"INPUT":     &cfg.InputPath,
		"OUTPUT":    &cfg.OutputPath,
		"WORK_DIR":  &cfg.WorkDir,
		"BASE_URL":  &cfg.LLM.BaseURL,
		"RENDERER":  &cfg.Renderer.Backend,
		"LOG_LEVEL": &cfg.Log.Level,
	}
	for key, dst := range stringVars {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(envPrefix + "SCALE"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.ConfigError(fmt.Sprintf("invalid %sSCALE %q", envPrefix, v), err)
		}
		cfg.Scale = scale
	}

	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Credential) == "" {
		problems = append(problems, fmt.Sprintf("credential is required (set %s)", credentialEnvVar))
	}
	if strings.TrimSpace(c.ModelName) == "" {
		problems = append(problems, "model_name is required")
	}
	if strings.TrimSpace(c.InputPath) == "" {
		problems = append(problems, "input_path is required")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		problems = append(problems, "output_path is required")
	}
	if strings.TrimSpace(c.WorkDir) == "" {
		problems = append(problems, "work_dir is required")
	}
	if c.Scale <= 0 || c.Scale > maxScale {
		problems = append(problems, fmt.Sprintf("scale must be in (0, %g], got %g", maxScale, c.Scale))
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		problems = append(problems, "llm.base_url is required")
	}
	if strings.TrimSpace(c.LLM.Prompt) == "" {
		problems = append(problems, "llm.prompt is required")
	}
	if c.LLM.Timeout < 0 {
		problems = append(problems, "llm.timeout cannot be negative")
	}

	problems = append(problems, c.Renderer.problems()...)

	if !observability.ValidLevel(c.Log.Level) {
		problems = append(problems, fmt.Sprintf("unknown log.level %q", c.Log.Level))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("unknown log.format %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return domain.ConfigError(strings.Join(problems, "; "), nil)
	}
	return nil
}

// ValidateRenderer checks only the settings rendering needs, for runs that
// never contact the model.
func (c *Config) ValidateRenderer() error {
	problems := c.Renderer.problems()
	if strings.TrimSpace(c.WorkDir) == "" {
		problems = append(problems, "work_dir is required")
	}
	if c.Scale <= 0 || c.Scale > maxScale {
		problems = append(problems, fmt.Sprintf("scale must be in (0, %g], got %g", maxScale, c.Scale))
	}
	if len(problems) > 0 {
		return domain.ConfigError(strings.Join(problems, "; "), nil)
	}
	return nil
}

func (r RendererConfig) problems() []string {
	var problems []string
	switch r.Backend {
	case BackendFitz, BackendPDFium:
	default:
		problems = append(problems, fmt.Sprintf("unknown renderer.backend %q", r.Backend))
	}
	switch r.ImageFormat {
	case FormatPNG, FormatJPEG:
	default:
		problems = append(problems, fmt.Sprintf("unknown renderer.image_format %q", r.ImageFormat))
	}
	if r.JPEGQuality < 1 || r.JPEGQuality > 100 {
		problems = append(problems, fmt.Sprintf("renderer.jpeg_quality must be between 1 and 100, got %d", r.JPEGQuality))
	}
	return problems
}

// DPI returns the rendering resolution for the configured scale.
// PDF user space is 72 units per inch, so scale 2 renders at 144 DPI.
func (c *Config) DPI() float64 {
	return 72 * c.Scale
}

// ImageExt returns the file extension for rendered pages.
func (r RendererConfig) ImageExt() string {
	if r.ImageFormat == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}
