package tts

import (
	"fmt"
	"strings"
	"time"
)

// Config contains all speech output configuration options.
//
// Values come from DefaultConfig, then the config file, then environment
// variables named in the env tags.
type Config struct {
	Enabled      bool    `yaml:"enabled" env:"VOICECTL_TTS_ENABLED"`
	Engine       string  `yaml:"engine" env:"VOICECTL_TTS_ENGINE"`
	Locale       string  `yaml:"locale" env:"VOICECTL_TTS_LOCALE"`
	Pitch        float64 `yaml:"pitch" env:"VOICECTL_TTS_PITCH"`
	Rate         float64 `yaml:"rate" env:"VOICECTL_TTS_RATE"`
	MaxChunkSize int     `yaml:"max_chunk_size" env:"VOICECTL_TTS_MAX_CHUNK_SIZE"`

	Piper PiperConfig `yaml:"piper"`
	Cache CacheConfig `yaml:"cache"`
}

// PiperConfig contains Piper engine specific settings. A missing model is
// not a configuration error; the engine reports it when it initializes.
type PiperConfig struct {
	Binary  string        `yaml:"binary" env:"VOICECTL_TTS_PIPER_BINARY"`
	Model   string        `yaml:"model" env:"VOICECTL_TTS_PIPER_MODEL"`
	Speaker int           `yaml:"speaker" env:"VOICECTL_TTS_PIPER_SPEAKER"`
	Timeout time.Duration `yaml:"timeout" env:"VOICECTL_TTS_PIPER_TIMEOUT"`
}

// CacheConfig contains settings for the synthesized audio cache.
type CacheConfig struct {
	// Dir is the cache directory. Empty disables caching.
	Dir string `yaml:"dir" env:"VOICECTL_TTS_CACHE_DIR"`
	// MaxSize is the cache capacity in megabytes.
	MaxSize int `yaml:"max_size" env:"VOICECTL_TTS_CACHE_MAX_SIZE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Engine:       "piper",
		Locale:       "en-US",
		Pitch:        1.0,
		Rate:         1.0,
		MaxChunkSize: DefaultMaxChunkSize,
		Piper: PiperConfig{
			Binary:  "piper",
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			MaxSize: 100,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{"piper", "mock"}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = strings.ToLower(c.Engine)
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w: engine '%s' must be one of %v", ErrInvalidConfig, c.Engine, validEngines)
	}

	if c.Locale == "" {
		return fmt.Errorf("%w: locale cannot be empty", ErrInvalidConfig)
	}

	if c.Pitch <= 0 || c.Pitch > 2.0 {
		return fmt.Errorf("%w: pitch must be between 0.0 and 2.0, got %.2f", ErrInvalidConfig, c.Pitch)
	}

	if c.Rate < 0.1 || c.Rate > 3.0 {
		return fmt.Errorf("%w: rate must be between 0.1 and 3.0, got %.2f", ErrInvalidConfig, c.Rate)
	}

	if c.MaxChunkSize < 1 {
		return fmt.Errorf("%w: max_chunk_size must be positive, got %d", ErrInvalidConfig, c.MaxChunkSize)
	}

	if c.Engine == "piper" {
		if err := c.Piper.Validate(); err != nil {
			return fmt.Errorf("piper config: %w", err)
		}
	}

	if c.Cache.Dir != "" && (c.Cache.MaxSize < 1 || c.Cache.MaxSize > 10000) {
		return fmt.Errorf("%w: cache max_size must be between 1 and 10000 MB, got %d", ErrInvalidConfig, c.Cache.MaxSize)
	}

	return nil
}

// Validate checks if the Piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("%w: piper binary cannot be empty", ErrInvalidConfig)
	}

	if c.Timeout < time.Second {
		return fmt.Errorf("%w: timeout must be at least 1 second, got %v", ErrInvalidConfig, c.Timeout)
	}

	return nil
}
