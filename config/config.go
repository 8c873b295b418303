// Package config loads the assistant's process configuration from a YAML
// file, ASSISTANT_* environment overrides and secret environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/viper"
)

const EnvPrefix = "ASSISTANT"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Debug         bool                `mapstructure:"debug"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Segmenter     SegmenterConfig     `mapstructure:"segmenter"`
	Capture       CaptureConfig       `mapstructure:"capture"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Wit           WitConfig           `mapstructure:"wit"`
	Lighting      LightingConfig      `mapstructure:"lighting"`
	Player        PlayerConfig        `mapstructure:"player"`
	Server        ServerConfig        `mapstructure:"server"`

	Secrets Secrets `mapstructure:"-"`
}

type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate" validate:"gt=0"`
	Channels   int `mapstructure:"channels" validate:"eq=1"`
	ChunkSize  int `mapstructure:"chunk_size" validate:"gt=0"`
	// DeviceIndex < 0 selects the default input device.
	DeviceIndex int `mapstructure:"device_index"`
	// DumpDir, when set, receives a WAV copy of every utterance.
	DumpDir string `mapstructure:"dump_dir"`
}

type SegmenterConfig struct {
	Threshold    float64       `mapstructure:"threshold" validate:"gte=0"`
	SilenceLimit time.Duration `mapstructure:"silence_limit" validate:"gt=0"`
	PreRoll      time.Duration `mapstructure:"pre_roll" validate:"gte=0"`
	MaxUtterance time.Duration `mapstructure:"max_utterance" validate:"gte=0"`
}

type CaptureConfig struct {
	// Phrases < 0 listens forever.
	Phrases   int `mapstructure:"phrases"`
	QueueSize int `mapstructure:"queue_size" validate:"gt=0"`
}

type TranscriptionConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=wit whisper openai"`
	WhisperModel  string `mapstructure:"whisper_model" validate:"required_if=Backend whisper"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" validate:"omitempty,url"`
}

type WitConfig struct {
	Host    string        `mapstructure:"host" validate:"required,url"`
	Version string        `mapstructure:"version" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type LightingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BridgeURL string `mapstructure:"bridge_url" validate:"required_if=Enabled true,omitempty,url"`
	LightID   int    `mapstructure:"light_id" validate:"gte=0"`
}

type PlayerConfig struct {
	Command   string              `mapstructure:"command"`
	Args      []string            `mapstructure:"args"`
	Playlists map[string][]string `mapstructure:"playlists"`
}

type ServerConfig struct {
	// Addr empty disables the settings server.
	Addr         string `mapstructure:"addr"`
	SettingsFile string `mapstructure:"settings_file" validate:"required_with=Addr"`
}

// Secrets never live in the config file.
type Secrets struct {
	WitToken     string `env:"WIT_TOKEN"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	HueUser      string `env:"HUE_USER"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.chunk_size", 1024)
	v.SetDefault("audio.device_index", -1)
	v.SetDefault("audio.dump_dir", "")

	v.SetDefault("segmenter.threshold", 2500)
	v.SetDefault("segmenter.silence_limit", 2*time.Second)
	v.SetDefault("segmenter.pre_roll", 500*time.Millisecond)
	v.SetDefault("segmenter.max_utterance", 0)

	v.SetDefault("capture.phrases", -1)
	v.SetDefault("capture.queue_size", 4)

	v.SetDefault("transcription.backend", "wit")
	v.SetDefault("transcription.whisper_model", "")
	v.SetDefault("transcription.openai_model", "whisper-1")
	v.SetDefault("transcription.openai_base_url", "")

	v.SetDefault("wit.host", "https://api.wit.ai")
	v.SetDefault("wit.version", "20160511")
	v.SetDefault("wit.timeout", 30*time.Second)

	v.SetDefault("lighting.enabled", false)
	v.SetDefault("lighting.bridge_url", "")
	v.SetDefault("lighting.light_id", 3)

	v.SetDefault("player.command", "")
	v.SetDefault("player.args", []string{})
	v.SetDefault("player.playlists", map[string][]string{})

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.settings_file", "settings.yaml")
}

// Load reads path (optional; "" uses defaults and environment only).
func Load(ctx context.Context, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(ctx, &cfg.Secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch {
	case c.Transcription.Backend == "wit" && c.Secrets.WitToken == "":
		return fmt.Errorf("%w: WIT_TOKEN is required for the wit backend", ErrInvalid)
	case c.Transcription.Backend == "openai" && c.Secrets.OpenAIAPIKey == "":
		return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai backend", ErrInvalid)
	case c.Lighting.Enabled && c.Secrets.HueUser == "":
		return fmt.Errorf("%w: HUE_USER is required when lighting is enabled", ErrInvalid)
	}

	return nil
}

// String masks secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Debug: %t, Audio: %+v, Segmenter: %+v, Capture: %+v, Transcription: %s, Lighting: %t, Server: %s}",
		c.Debug, c.Audio, c.Segmenter, c.Capture, c.Transcription.Backend, c.Lighting.Enabled, c.Server.Addr,
	)
}
