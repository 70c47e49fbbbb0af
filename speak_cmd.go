package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/voicectl/tts"
)

var (
	speakClipboard bool
	speakMarkdown  bool

	speakCmd = &cobra.Command{
		Use:   "speak [TEXT...]",
		Short: "Speak text aloud",
		Long: paragraph(fmt.Sprintf("\n%s text given as arguments, piped to stdin or copied to the clipboard. Long text is split into chunks at sentence boundaries.",
			keyword("Speak"))),
		Example: paragraph("voicectl speak Hello there\ncat README.md | voicectl speak --markdown\nvoicectl speak --clipboard --rate 1.3"),
		RunE:    runSpeak,
	}
)

func runSpeak(cmd *cobra.Command, args []string) error {
	stdin, err := inputReader()
	if err != nil {
		return err
	}
	text, err := readText(args, speakClipboard, stdin)
	if err != nil {
		return err
	}
	if speakMarkdown {
		text = markdownToText([]byte(text))
	}

	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := newSpeaker(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	start := time.Now()
	if err := s.say(ctx, text); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("unable to speak: %w", err)
	}
	log.Debug("Finished speaking", "took", time.Since(start))
	return nil
}

func init() {
	speakCmd.Flags().BoolVarP(&speakClipboard, "clipboard", "c", false, "speak the clipboard contents")
	speakCmd.Flags().BoolVarP(&speakMarkdown, "markdown", "m", false, "treat the input as markdown and speak only its text")
	speakCmd.Flags().String("engine", "", "speech engine (piper or mock)")
	speakCmd.Flags().String("locale", "", "voice locale, e.g. en-US")
	speakCmd.Flags().Float64("rate", 0, "speech rate, 1.0 is normal")
	speakCmd.Flags().String("model", "", "piper voice model")

	_ = viper.BindPFlag("tts.engine", speakCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("tts.locale", speakCmd.Flags().Lookup("locale"))
	_ = viper.BindPFlag("tts.rate", speakCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("tts.piper.model", speakCmd.Flags().Lookup("model"))
}
