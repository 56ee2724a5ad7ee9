package nanotts

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process-environment configuration surface for host
// programs that want to build a Pipeline from environment variables
// instead of wiring functional options by hand. The demo CLI does not use
// it; cmd/nanospeak builds its options from its own flags. The
// library itself — Pipeline and its Options — never reads the
// environment; only LoadConfig does.
type Config struct {
	Engine      string        `env:"NANOSPEAK_ENGINE" envDefault:"dummy"`
	MinTokens   int           `env:"NANOSPEAK_MIN_TOKENS" envDefault:"10"`
	MaxTokens   int           `env:"NANOSPEAK_MAX_TOKENS" envDefault:"50"`
	Timeout     time.Duration `env:"NANOSPEAK_TIMEOUT" envDefault:"800ms"`
	Workers     int           `env:"NANOSPEAK_WORKERS" envDefault:"1"`
	SampleRate  int           `env:"NANOSPEAK_SAMPLE_RATE" envDefault:"16000"`
	Channels    int           `env:"NANOSPEAK_CHANNELS" envDefault:"1"`
	SampleWidth int           `env:"NANOSPEAK_SAMPLE_WIDTH" envDefault:"16"`
	Debug       bool          `env:"NANOSPEAK_DEBUG" envDefault:"false"`

	PiperModelPath string `env:"NANOSPEAK_PIPER_MODEL_PATH"`
	PiperVoice     string `env:"NANOSPEAK_PIPER_VOICE"`

	GTTSLanguage string `env:"NANOSPEAK_GTTS_LANGUAGE" envDefault:"en"`
	GTTSTLD      string `env:"NANOSPEAK_GTTS_TLD" envDefault:"com"`
}

// LoadConfig parses Config from the process environment, applying
// envDefault tags for anything unset.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("parsing environment: %w", err)}
	}
	if cfg.MaxTokens < cfg.MinTokens {
		return nil, &ConfigError{Err: errInvalidBounds{}}
	}
	return cfg, nil
}

// OutputSpec builds the AudioSpec the Config describes.
func (c *Config) OutputSpec() AudioSpec {
	return AudioSpec{
		Codec:       "pcm",
		SampleRate:  c.SampleRate,
		Channels:    c.Channels,
		SampleWidth: c.SampleWidth,
	}
}

// EngineKwargs maps the engine-specific fields Config carries into the
// generic kwargs shape Registry.Get expects, scoped to whichever engine
// name is configured.
func (c *Config) EngineKwargs() map[string]any {
	switch c.Engine {
	case "piper":
		return map[string]any{
			"model_path": c.PiperModelPath,
			"voice":      c.PiperVoice,
		}
	case "gtts":
		return map[string]any{
			"language": c.GTTSLanguage,
			"tld":      c.GTTSTLD,
		}
	default:
		return nil
	}
}

// Options builds the functional Options implied by Config, ready to hand
// to NewPipeline alongside any caller-specific overrides.
func (c *Config) Options() []Option {
	return []Option{
		WithModel(c.Engine, c.EngineKwargs()),
		WithOutputSpec(c.OutputSpec()),
		WithTokenBounds(c.MinTokens, c.MaxTokens),
		WithTimeout(c.Timeout),
		WithWorkerCount(c.Workers),
		WithDebug(c.Debug),
	}
}
