package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig    `yaml:"server"`
	Audio          AudioConfig     `yaml:"audio"`
	Transcription  ProviderConfig  `yaml:"transcription"`
	Categorization ProviderConfig  `yaml:"categorization"`
	OpenAI         OpenAIConfig    `yaml:"openai"`
	Anthropic      AnthropicConfig `yaml:"anthropic"`
	Gemini         GeminiConfig    `yaml:"gemini"`
	Pushover       PushoverConfig  `yaml:"pushover"`
	Document       DocumentConfig  `yaml:"document"`
	Log            LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	AuthToken     string        `yaml:"auth_token"`
	RateLimit     int           `yaml:"rate_limit"`
	RateWindow    time.Duration `yaml:"rate_window"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxAudioBytes int64         `yaml:"max_audio_bytes"`
	MaxImageBytes int64         `yaml:"max_image_bytes"`
}

type AudioConfig struct {
	// Source is "microphone" or "directory".
	Source      string        `yaml:"source"`
	Dir         string        `yaml:"dir"`
	SampleRate  int           `yaml:"sample_rate"`
	MaxDuration time.Duration `yaml:"max_duration"`
	SilenceStop time.Duration `yaml:"silence_stop"`
}

type ProviderConfig struct {
	Provider string `yaml:"provider"`
}

type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Title   string `yaml:"title"`
	Enabled bool   `yaml:"enabled"`
}

type DocumentConfig struct {
	Title              string  `yaml:"title"`
	DownPaymentPercent float64 `yaml:"down_payment_percent"`
	Terms              string  `yaml:"terms"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references and decodes the YAML document.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 30
	}
	if c.Server.RateWindow == 0 {
		c.Server.RateWindow = time.Minute
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 2 * time.Hour
	}
	if c.Server.SweepInterval == 0 {
		c.Server.SweepInterval = 5 * time.Minute
	}
	if c.Server.MaxAudioBytes == 0 {
		c.Server.MaxAudioBytes = 25 << 20
	}
	if c.Server.MaxImageBytes == 0 {
		c.Server.MaxImageBytes = 10 << 20
	}
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.Dir == "" {
		c.Audio.Dir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.MaxDuration == 0 {
		c.Audio.MaxDuration = 5 * time.Minute
	}
	if c.Audio.SilenceStop == 0 {
		c.Audio.SilenceStop = 3 * time.Second
	}
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = ProviderOpenAI
	}
	if c.Categorization.Provider == "" {
		c.Categorization.Provider = ProviderAnthropic
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "whisper-1"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Pushover.Title == "" {
		c.Pushover.Title = "JobTalk"
	}
	if c.Document.Title == "" {
		c.Document.Title = "Job Proposal"
	}
	if c.Document.DownPaymentPercent == 0 {
		c.Document.DownPaymentPercent = 50
	}
	if c.Document.Terms == "" {
		c.Document.Terms = "Standard contractor terms apply."
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Transcription.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("transcription.provider: unsupported provider %q", c.Transcription.Provider)
	}
	switch c.Categorization.Provider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("categorization.provider: unsupported provider %q", c.Categorization.Provider)
	}
	switch c.Audio.Source {
	case "microphone", "directory":
	default:
		return fmt.Errorf("audio.source: unsupported source %q", c.Audio.Source)
	}
	if c.Document.DownPaymentPercent < 0 || c.Document.DownPaymentPercent > 100 {
		return fmt.Errorf("document.down_payment_percent: must be between 0 and 100, got %v", c.Document.DownPaymentPercent)
	}
	return nil
}
