// Package main provides the entry point for the voicectl CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"golang.org/x/text/unicode/norm"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "voicectl",
		Short: "Speak text and listen for speech from the command line",
		Long: paragraph(
			fmt.Sprintf("\n%s text through a speech engine and %s for speech with a recognizer.",
				keyword("Speak"), keyword("listen")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}

	errNoText = errors.New("no text given: pass it as arguments, pipe it to stdin or use --clipboard")
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
	}

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// readText collects input from args, the clipboard or a stdin pipe, in
// that order, and normalizes it to NFC.
func readText(args []string, fromClipboard bool, stdin io.Reader) (string, error) {
	var text string
	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case fromClipboard:
		s, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("unable to read clipboard: %w", err)
		}
		text = s
	case stdin != nil:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		text = string(b)
	}

	if strings.TrimSpace(text) == "" {
		return "", errNoText
	}
	return norm.NFC.String(text), nil
}

// inputReader returns stdin when it is piped.
func inputReader() (io.Reader, error) {
	yes, err := stdinIsPipe()
	if err != nil {
		return nil, err
	}
	if !yes {
		return nil, nil
	}
	return os.Stdin, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to stderr")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.SetDefault("debug", false)

	rootCmd.AddCommand(speakCmd, listenCmd, chunksCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voicectl")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voicectl")}, dirs...)
	}

	if c := os.Getenv("VOICECTL_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voicectl")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voicectl")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "voicectl.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
