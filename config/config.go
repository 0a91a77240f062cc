// Package config loads service settings from the environment, an optional
// .env file and an optional YAML override file.
package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultSystemPrompt = "You are a helpful assistant. Keep your answers short and conversational."

// Config holds every runtime setting. It is built once in main and passed to
// constructors explicitly.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":3000" yaml:"listen_addr"`

	Backend       string `env:"INFERENCE_BACKEND" envDefault:"openai"    yaml:"backend"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"                           yaml:"openai_api_key"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"                          yaml:"openai_base_url"`
	Device        string `env:"DEVICE"            envDefault:"gpu"       yaml:"device"`

	TranscriptionModel string `env:"TRANSCRIPTION_MODEL" envDefault:"onnx-community/whisper-tiny"                   yaml:"transcription_model"`
	Multilingual       bool   `env:"MULTILINGUAL"        envDefault:"false"                                         yaml:"multilingual"`
	GenerationModel    string `env:"GENERATION_MODEL"    envDefault:"onnx-community/Llama-3.2-1B-Instruct-q4f16"   yaml:"generation_model"`
	SystemPrompt       string `env:"SYSTEM_PROMPT"                                                                  yaml:"system_prompt"`

	MaxNewTokens      int     `env:"MAX_NEW_TOKENS"     envDefault:"512"  yaml:"max_new_tokens"`
	Temperature       float32 `env:"TEMPERATURE"        envDefault:"0.7"  yaml:"temperature"`
	TopP              float32 `env:"TOP_P"              envDefault:"0.95" yaml:"top_p"`
	RepetitionPenalty float32 `env:"REPETITION_PENALTY" envDefault:"1.1"  yaml:"repetition_penalty"`
	DoSample          bool    `env:"DO_SAMPLE"          envDefault:"true" yaml:"do_sample"`

	// With PrefetchWeights on, model files are mirrored to
	// CacheDir/<model id>/ before a model is reported loaded. The service does
	// not read them itself: the OpenAI-compatible server must be started on
	// that directory.
	HubURL          string `env:"HUB_URL"          envDefault:"https://huggingface.co" yaml:"hub_url"`
	CacheDir        string `env:"CACHE_DIR"        envDefault:".cache/models"          yaml:"cache_dir"`
	PrefetchWeights bool   `env:"PREFETCH_WEIGHTS" envDefault:"false"                  yaml:"prefetch_weights"`

	StorePath       string `env:"STORE_PATH"       envDefault:".cache/whisper-llama.db" yaml:"store_path"`
	ConsentRequired bool   `env:"CONSENT_REQUIRED" envDefault:"true"                    yaml:"consent_required"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" yaml:"log_level"`
}

// Load reads .env (when present), the process environment and then the YAML
// file at path, if path is not empty. Values in the file win.
func Load(path string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address is required")
	}
	if c.Backend == "" {
		return errors.New("inference backend is required")
	}
	if c.Backend == "openai" && c.OpenAIBaseURL == "" && c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_BASE_URL or OPENAI_API_KEY must be set for the openai backend")
	}
	switch c.Device {
	case "gpu", "cpu":
	default:
		return errors.Errorf("device must be gpu or cpu, got %q", c.Device)
	}
	if c.TranscriptionModel == "" || c.GenerationModel == "" {
		return errors.New("transcription and generation models are required")
	}
	if c.MaxNewTokens <= 0 {
		return errors.Errorf("max_new_tokens must be positive, got %d", c.MaxNewTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return errors.Errorf("top_p must be within (0, 1], got %v", c.TopP)
	}
	if c.RepetitionPenalty < 1 {
		return errors.Errorf("repetition_penalty must be at least 1, got %v", c.RepetitionPenalty)
	}
	if c.PrefetchWeights && c.CacheDir == "" {
		return errors.New("cache_dir is required when prefetching weights")
	}
	return nil
}

// BackendSettings flattens the backend-specific fields for the pipeline
// registry.
func (c *Config) BackendSettings() map[string]string {
	prefetch := "false"
	if c.PrefetchWeights {
		prefetch = "true"
	}
	return map[string]string{
		"api_key":   c.OpenAIAPIKey,
		"base_url":  c.OpenAIBaseURL,
		"hub_url":   c.HubURL,
		"cache_dir": c.CacheDir,
		"prefetch":  prefetch,
	}
}
