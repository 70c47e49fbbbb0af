package stt

import (
	"fmt"
	"strings"
	"time"
)

// Config contains all speech input configuration options.
//
// Values come from DefaultConfig, then the config file, then environment
// variables named in the env tags.
type Config struct {
	Engine         string `yaml:"engine" env:"VOICECTL_STT_ENGINE"`
	Language       string `yaml:"language" env:"VOICECTL_STT_LANGUAGE"`
	LanguageModel  string `yaml:"language_model" env:"VOICECTL_STT_LANGUAGE_MODEL"`
	PartialResults bool   `yaml:"partial_results" env:"VOICECTL_STT_PARTIAL_RESULTS"`
	MaxResults     int    `yaml:"max_results" env:"VOICECTL_STT_MAX_RESULTS"`

	Command CommandConfig `yaml:"command"`
}

// CommandConfig contains settings for the command recognition engine.
//
// Args may contain the placeholders {language}, {language_model} and
// {max_results}.
type CommandConfig struct {
	Binary  string        `yaml:"binary" env:"VOICECTL_STT_COMMAND_BINARY"`
	Args    []string      `yaml:"args" env:"VOICECTL_STT_COMMAND_ARGS" envSeparator:" "`
	Timeout time.Duration `yaml:"timeout" env:"VOICECTL_STT_COMMAND_TIMEOUT"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	req := DefaultRequest()
	return Config{
		Engine:         "command",
		Language:       req.Language,
		LanguageModel:  string(req.LanguageModel),
		PartialResults: req.PartialResults,
		MaxResults:     req.MaxResults,
		Command: CommandConfig{
			Binary:  "whisper-stream",
			Args:    []string{"--language", "{language}"},
			Timeout: 30 * time.Second,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{"command", "mock"}
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

	if err := c.Request().Validate(); err != nil {
		return err
	}

	if c.Engine == "command" {
		if c.Command.Binary == "" {
			return fmt.Errorf("%w: command binary cannot be empty", ErrInvalidConfig)
		}
		if c.Command.Timeout < time.Second {
			return fmt.Errorf("%w: timeout must be at least 1 second, got %v", ErrInvalidConfig, c.Command.Timeout)
		}
	}

	return nil
}

// Request returns the recognition request described by the config.
func (c *Config) Request() Request {
	return Request{
		LanguageModel:  LanguageModel(c.LanguageModel),
		Language:       c.Language,
		PartialResults: c.PartialResults,
		MaxResults:     c.MaxResults,
	}
}
