package tts

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech output configuration from the global
// Viper instance.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig loads speech output configuration from v, then applies
// environment overrides, then validates the result.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("tts.enabled") {
		cfg.Enabled = v.GetBool("tts.enabled")
	}
	if v.IsSet("tts.engine") {
		cfg.Engine = v.GetString("tts.engine")
	}
	if v.IsSet("tts.locale") {
		cfg.Locale = v.GetString("tts.locale")
	}
	if v.IsSet("tts.pitch") {
		cfg.Pitch = v.GetFloat64("tts.pitch")
	}
	if v.IsSet("tts.rate") {
		cfg.Rate = v.GetFloat64("tts.rate")
	}
	if v.IsSet("tts.max_chunk_size") {
		cfg.MaxChunkSize = v.GetInt("tts.max_chunk_size")
	}

	if v.IsSet("tts.piper.binary") {
		cfg.Piper.Binary = v.GetString("tts.piper.binary")
	}
	if v.IsSet("tts.piper.model") {
		cfg.Piper.Model = v.GetString("tts.piper.model")
	}
	if v.IsSet("tts.piper.speaker") {
		cfg.Piper.Speaker = v.GetInt("tts.piper.speaker")
	}
	if v.IsSet("tts.piper.timeout") {
		cfg.Piper.Timeout = v.GetDuration("tts.piper.timeout")
	}

	if v.IsSet("tts.cache.dir") {
		cfg.Cache.Dir = v.GetString("tts.cache.dir")
	}
	if v.IsSet("tts.cache.max_size") {
		cfg.Cache.MaxSize = v.GetInt("tts.cache.max_size")
	}

	// Environment variables win over the config file. Unset variables
	// leave the field alone.
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid TTS configuration: %w", err)
	}

	return cfg, nil
}
