package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

// logEnv holds logging options read from the environment.
type logEnv struct {
	Debug     bool `env:"VOICECTL_DEBUG"`
	LogToFile bool `env:"VOICECTL_LOG_TO_FILE"`
}

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "voicectl").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "voicectl.log"), nil
}

// setupLog sends logs to stderr, or to a file in the cache directory when
// VOICECTL_LOG_TO_FILE is set. The returned func closes the log file.
func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[logEnv]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if !cfg.LogToFile {
		return func() error { return nil }, nil
	}

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetReportTimestamp(true)
	log.SetLevel(log.DebugLevel)
	return f.Close, nil
}
