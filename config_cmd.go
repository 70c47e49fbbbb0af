package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# log debug output
debug: false

# Speech output
tts:
  # allow speaking at all
  enabled: true
  # engine: piper or mock
  engine: "piper"
  # BCP 47 locale the voice must support
  locale: "en-US"
  # 1.0 is normal; piper only supports 1.0
  pitch: 1.0
  # 1.0 is normal, 2.0 twice as fast
  rate: 1.0
  # longest piece of text handed to the engine at once
  max_chunk_size: 4000

  piper:
    binary: "piper"
    # path to a voice model, e.g. ~/.local/share/piper/en_US-lessac-medium.onnx
    model: ""
    speaker: 0
    timeout: "30s"

  # synthesized audio cache, disabled when dir is empty
  cache:
    dir: ""
    # megabytes
    max_size: 100

# Speech input
stt:
  # engine: command or mock
  engine: "command"
  language: "en-US"
  # free_form or web_search
  language_model: "free_form"
  partial_results: true
  max_results: 1

  # transcriber printing one transcript per line;
  # {language}, {language_model} and {max_results} are substituted
  command:
    binary: "whisper-stream"
    args: ["--language", "{language}"]
    timeout: "30s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the voicectl config file",
	Long:    paragraph(fmt.Sprintf("\n%s the voicectl config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("voicectl config\nvoicectl config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("voicectl", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
