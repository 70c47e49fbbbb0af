package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/voicectl/stt"
	"github.com/dgnsrekt/voicectl/tts"
)

var (
	listenContinuous bool
	listenEcho       bool

	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Transcribe speech from the microphone",
		Long: paragraph(fmt.Sprintf("\n%s for speech and print what was recognized. With --continuous a new session starts after each result until interrupted.",
			keyword("Listen"))),
		Example: paragraph("voicectl listen\nvoicectl listen --continuous --echo"),
		Args:    cobra.NoArgs,
		RunE:    runListen,
	}
)

// outcome is how a recognition session ended.
type outcome struct {
	text string
	err  string
}

// maxRepeatedFailures is how many sessions in a row may fail with the same
// error before continuous listening gives up. Silence does not count.
const maxRepeatedFailures = 5

// sessionRetry paces continuous listening after failed sessions.
type sessionRetry struct {
	backoff *backoff.ExponentialBackOff
	last    string
	repeats int
}

func newSessionRetry() *sessionRetry {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 4 * time.Second
	return &sessionRetry{backoff: b}
}

// failed records a failed session. It returns how long to wait before the
// next one, or an error once the same failure keeps repeating.
func (r *sessionRetry) failed(msg string) (time.Duration, error) {
	if isSilence(msg) {
		r.last, r.repeats = "", 0
	} else {
		if msg == r.last {
			r.repeats++
		} else {
			r.last, r.repeats = msg, 1
		}
		if r.repeats >= maxRepeatedFailures {
			return 0, fmt.Errorf("giving up after %d failed sessions: %s", r.repeats, msg)
		}
	}
	return r.backoff.NextBackOff(), nil
}

func (r *sessionRetry) succeeded() {
	r.backoff.Reset()
	r.last, r.repeats = "", 0
}

func isSilence(msg string) bool {
	return msg == stt.ErrorNoMatch.Message() || msg == stt.ErrorSpeechTimeout.Message()
}

func newRecognition(cfg stt.Config, outcomes chan<- outcome, status io.Writer) *stt.Controller {
	return stt.NewController(newRecognizer(cfg), stt.Callbacks{
		OnResult: func(text string) {
			outcomes <- outcome{text: text}
		},
		OnError: func(msg string) {
			outcomes <- outcome{err: msg}
		},
		OnListeningStateChange: func(listening bool) {
			if listening && status != nil {
				fmt.Fprintln(status, faint("Listening..."))
			}
		},
	},
		stt.WithLogger(log.Default().WithPrefix("stt")),
		stt.WithRequest(cfg.Request()),
	)
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := stt.LoadConfigFromViper()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var echo *speaker
	if listenEcho {
		ttsCfg, err := tts.LoadConfigFromViper()
		if err != nil {
			return err
		}
		if echo, err = newSpeaker(ctx, ttsCfg); err != nil {
			return err
		}
		defer echo.close()
	}

	var reload atomic.Bool
	if listenContinuous && viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration changed", "file", e.Name, "op", e.Op.String())
			reload.Store(true)
		})
		viper.WatchConfig()
	}

	var status io.Writer
	if isTerminal(os.Stderr) {
		status = os.Stderr
	}
	out := cmd.OutOrStdout()

	// Buffered so late callbacks never block the engine.
	outcomes := make(chan outcome, 8)
	ctl := newRecognition(cfg, outcomes, status)
	defer func() { ctl.Shutdown() }()
	if ctl.State() == stt.StateUnavailable {
		return errors.New(stt.UnavailableMessage)
	}

	retry := newSessionRetry()
	for {
		if reload.Swap(false) {
			next, err := stt.LoadConfigFromViper()
			if err != nil {
				log.Warn("Keeping previous configuration", "err", err)
			} else {
				ctl.Shutdown()
				ctl = newRecognition(next, outcomes, status)
				if ctl.State() == stt.StateUnavailable {
					return errors.New(stt.UnavailableMessage)
				}
			}
		}

		ctl.StartListening()

		var o outcome
		select {
		case <-ctx.Done():
			ctl.StopListening()
			return nil
		case o = <-outcomes:
		}

		if o.err != "" {
			if !listenContinuous {
				return errors.New(o.err)
			}
			fmt.Fprintln(os.Stderr, errorText(o.err))
			wait, err := retry.failed(o.err)
			if err != nil {
				return err
			}
			log.Debug("Restarting recognition", "in", wait)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		retry.succeeded()

		fmt.Fprintln(out, o.text)
		if echo != nil {
			if err := echo.say(ctx, o.text); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("Could not echo result", "err", err)
			}
		}
		if !listenContinuous {
			return nil
		}
	}
}

func init() {
	listenCmd.Flags().BoolVarP(&listenContinuous, "continuous", "C", false, "keep listening until interrupted")
	listenCmd.Flags().BoolVarP(&listenEcho, "echo", "e", false, "speak each result back")
	listenCmd.Flags().String("language", "", "recognition language, e.g. en-US")
	listenCmd.Flags().String("engine", "", "recognition engine (command or mock)")

	_ = viper.BindPFlag("stt.language", listenCmd.Flags().Lookup("language"))
	_ = viper.BindPFlag("stt.engine", listenCmd.Flags().Lookup("engine"))
}
