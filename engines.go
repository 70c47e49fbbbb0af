package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/voicectl/internal/cache"
	"github.com/dgnsrekt/voicectl/stt"
	"github.com/dgnsrekt/voicectl/stt/engines/command"
	sttmock "github.com/dgnsrekt/voicectl/stt/engines/mock"
	"github.com/dgnsrekt/voicectl/tts"
	ttsmock "github.com/dgnsrekt/voicectl/tts/engines/mock"
	"github.com/dgnsrekt/voicectl/tts/engines/piper"
)

func newSpeechEngine(cfg tts.Config) (tts.Engine, error) {
	switch cfg.Engine {
	case "mock":
		e := ttsmock.New()
		e.SetAutoProgress(true, 250*time.Millisecond)
		return e, nil
	case "piper":
		opts := []piper.Option{piper.WithLogger(log.Default().WithPrefix("piper"))}
		if cfg.Cache.Dir != "" {
			dir, err := homedir.Expand(cfg.Cache.Dir)
			if err != nil {
				return nil, fmt.Errorf("invalid cache directory: %w", err)
			}
			c, err := cache.NewDisk(dir, int64(cfg.Cache.MaxSize)*humanize.MiByte, log.Default().WithPrefix("cache"))
			if err != nil {
				return nil, err
			}
			opts = append(opts, piper.WithCache(c))
		}
		return piper.NewEngine(cfg.Piper, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", tts.ErrInvalidConfig, cfg.Engine)
	}
}

func newRecognizer(cfg stt.Config) stt.Engine {
	switch cfg.Engine {
	case "mock":
		e := sttmock.New()
		e.SetScript(time.Second, "hello from voicectl")
		return e
	default:
		return command.New(cfg.Command, command.WithLogger(log.Default().WithPrefix("stt-command")))
	}
}

// speaker speaks text and waits until the engine has finished with it.
type speaker struct {
	ctl      *tts.Controller
	maxChunk int

	mu   sync.Mutex
	last string
	done chan struct{}
}

func newSpeaker(ctx context.Context, cfg tts.Config) (*speaker, error) {
	engine, err := newSpeechEngine(cfg)
	if err != nil {
		return nil, err
	}
	return startSpeaker(ctx, engine, cfg)
}

func startSpeaker(ctx context.Context, engine tts.Engine, cfg tts.Config) (*speaker, error) {
	s := &speaker{maxChunk: cfg.MaxChunkSize}
	s.ctl = tts.NewController(engine, cfg, nil,
		tts.WithLogger(log.Default().WithPrefix("tts")),
		tts.WithProgress(s.progress),
	)

	ok, err := s.ctl.Wait(ctx)
	if err != nil {
		s.ctl.Shutdown()
		return nil, err
	}
	if !ok {
		s.ctl.Shutdown()
		return nil, errors.New("speech engine failed to initialize, run with --debug for details")
	}
	return s, nil
}

func (s *speaker) progress(p tts.Progress) {
	if p.Kind == tts.ProgressError {
		log.Warn("Could not speak chunk", "utterance", p.UtteranceID, "code", p.Code)
	}
	if p.Kind == tts.ProgressStart {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil && p.UtteranceID == s.last {
		close(s.done)
		s.done = nil
	}
}

// say speaks text and blocks until its last chunk is done or ctx ends.
func (s *speaker) say(ctx context.Context, text string) error {
	if !s.ctl.Enabled() {
		return tts.ErrDisabled
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	n := 0
	for range tts.Chunks(text, s.maxChunk) {
		n++
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.last = tts.UtteranceID(n - 1)
	s.done = done
	s.mu.Unlock()

	if _, err := s.ctl.SpeakChunks(text); err != nil {
		s.mu.Lock()
		s.done = nil
		s.mu.Unlock()
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.ctl.Stop()
		return ctx.Err()
	}
}

func (s *speaker) close() {
	s.ctl.Shutdown()
}
