package stt

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech input configuration from the global
// Viper instance.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig loads speech input configuration from v, then applies
// environment overrides, then validates the result.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("stt.engine") {
		cfg.Engine = v.GetString("stt.engine")
	}
	if v.IsSet("stt.language") {
		cfg.Language = v.GetString("stt.language")
	}
	if v.IsSet("stt.language_model") {
		cfg.LanguageModel = v.GetString("stt.language_model")
	}
	if v.IsSet("stt.partial_results") {
		cfg.PartialResults = v.GetBool("stt.partial_results")
	}
	if v.IsSet("stt.max_results") {
		cfg.MaxResults = v.GetInt("stt.max_results")
	}

	if v.IsSet("stt.command.binary") {
		cfg.Command.Binary = v.GetString("stt.command.binary")
	}
	if v.IsSet("stt.command.args") {
		cfg.Command.Args = v.GetStringSlice("stt.command.args")
	}
	if v.IsSet("stt.command.timeout") {
		cfg.Command.Timeout = v.GetDuration("stt.command.timeout")
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid STT configuration: %w", err)
	}

	return cfg, nil
}
