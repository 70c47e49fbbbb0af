// Package piper speaks through the Piper neural TTS command line tool and
// plays the result on the audio device.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/voicectl/internal/audio"
	"github.com/dgnsrekt/voicectl/internal/cache"
	"github.com/dgnsrekt/voicectl/tts"
)

// Errors returned by the engine.
var (
	ErrNotInitialized   = errors.New("piper engine not initialized")
	ErrShutdown         = errors.New("piper engine has been shut down")
	ErrNoModel          = errors.New("no piper voice model configured")
	ErrPitchUnsupported = errors.New("piper does not support pitch changes")
)

// Cache stores synthesized PCM.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Close() error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSink plays audio through s instead of opening the audio device.
func WithSink(s audio.Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithCache looks up and stores synthesized audio in c.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

type utterance struct {
	text   string
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

// Engine implements tts.Engine on top of the piper binary.
//
// Utterances are synthesized and played one at a time by a worker goroutine
// started by Init, which also delivers all progress events.
type Engine struct {
	cfg    tts.PiperConfig
	logger *log.Logger
	sink   audio.Sink
	cache  Cache
	// openSink opens the audio device when no sink was given.
	openSink func(sampleRate int) (audio.Sink, error)

	// Set by Init.
	binary string
	model  string
	info   ModelInfo

	mu          sync.Mutex
	listener    tts.ProgressListener
	lengthScale float64
	queue       []*utterance
	current     *utterance
	started     bool
	shutdown    bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewEngine creates an engine for cfg. Nothing is checked until Init.
func NewEngine(cfg tts.PiperConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:         cfg,
		logger:      log.Default().WithPrefix("piper"),
		lengthScale: 1.0,
		wake:        make(chan struct{}, 1),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	e.openSink = func(sampleRate int) (audio.Sink, error) {
		return audio.NewPlayer(sampleRate, e.logger)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init implements tts.Engine.
func (e *Engine) Init() <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- e.load()
	}()
	return result
}

func (e *Engine) load() error {
	binary, err := homedir.Expand(e.cfg.Binary)
	if err != nil {
		return fmt.Errorf("invalid piper binary path: %w", err)
	}
	binary, err = exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("piper binary not found: %w", err)
	}

	if e.cfg.Model == "" {
		return ErrNoModel
	}
	model, err := homedir.Expand(e.cfg.Model)
	if err != nil {
		return fmt.Errorf("invalid model path: %w", err)
	}
	if _, err := os.Stat(model); err != nil {
		return fmt.Errorf("voice model not found: %w", err)
	}

	info, err := LoadModelInfo(model)
	if err != nil {
		return err
	}
	if e.cfg.Speaker >= info.Speakers {
		e.logger.Warn("Speaker out of range for model", "speaker", e.cfg.Speaker, "speakers", info.Speakers)
	}

	e.mu.Lock()
	sink, shutdown := e.sink, e.shutdown
	e.mu.Unlock()
	if shutdown {
		return ErrShutdown
	}

	owned := sink == nil
	if owned {
		sink, err = e.openSink(info.SampleRate)
		if err != nil {
			return fmt.Errorf("failed to open audio output: %w", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		if c, ok := sink.(io.Closer); ok && owned {
			if err := c.Close(); err != nil {
				e.logger.Warn("Could not close audio output", "err", err)
			}
		}
		return ErrShutdown
	}
	e.binary, e.model, e.info, e.sink = binary, model, info, sink
	e.started = true
	go e.run()

	e.logger.Debug("Piper ready", "binary", binary, "model", model, "language", info.Language, "sample_rate", info.SampleRate)
	return nil
}

// Info returns the loaded model description.
func (e *Engine) Info() ModelInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

// SetLanguage implements tts.Engine.
func (e *Engine) SetLanguage(locale string) tts.LanguageStatus {
	e.mu.Lock()
	code := e.info.Language
	e.mu.Unlock()

	switch {
	case code == "":
		return tts.LangMissingData
	case matchLocale(locale, code):
		return tts.LangAvailable
	default:
		return tts.LangNotSupported
	}
}

// SetPitch implements tts.Engine. Only the neutral pitch is accepted.
func (e *Engine) SetPitch(pitch float32) error {
	if pitch != 1.0 {
		return fmt.Errorf("%w: %.2f", ErrPitchUnsupported, pitch)
	}
	return nil
}

// SetRate implements tts.Engine. Rate maps to Piper's length scale.
func (e *Engine) SetRate(rate float32) error {
	if rate <= 0 {
		return fmt.Errorf("rate must be positive, got %.2f", rate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lengthScale = 1.0 / float64(rate)
	return nil
}

// SetProgressListener implements tts.Engine.
func (e *Engine) SetProgressListener(l tts.ProgressListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// Speak implements tts.Engine.
func (e *Engine) Speak(text string, mode tts.QueueMode, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return ErrShutdown
	}
	if !e.started {
		return ErrNotInitialized
	}
	if mode == tts.QueueFlush {
		e.clearLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.queue = append(e.queue, &utterance{text: text, id: id, ctx: ctx, cancel: cancel})

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Stop implements tts.Engine. It does not wait for the current utterance
// to wind down.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
	return nil
}

func (e *Engine) clearLocked() {
	for _, u := range e.queue {
		u.cancel()
	}
	e.queue = nil
	if e.current != nil {
		e.current.cancel()
	}
}

// IsSpeaking implements tts.Engine.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil || len(e.queue) > 0
}

// Shutdown implements tts.Engine.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return nil
	}
	e.shutdown = true
	e.clearLocked()
	started := e.started
	sink := e.sink
	e.mu.Unlock()

	close(e.quit)
	if started {
		<-e.done
	}

	var errs []error
	if c, ok := sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if e.cache != nil {
		errs = append(errs, e.cache.Close())
	}
	e.logger.Debug("Piper shut down")
	return errors.Join(errs...)
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.quit:
			return
		case <-e.wake:
		}
		for {
			u := e.next()
			if u == nil {
				break
			}
			e.process(u)
		}
	}
}

// next pops the queue head and makes it current.
func (e *Engine) next() *utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = nil
	if e.shutdown || len(e.queue) == 0 {
		return nil
	}
	u := e.queue[0]
	e.queue = e.queue[1:]
	e.current = u
	return u
}

func (e *Engine) process(u *utterance) {
	defer u.cancel()

	e.mu.Lock()
	listener := e.listener
	scale := e.lengthScale
	sink := e.sink
	e.mu.Unlock()

	if listener == nil {
		listener = nopListener{}
	}
	if u.ctx.Err() != nil {
		return
	}

	listener.OnStart(u.id)

	pcm, err := e.synthesize(u.ctx, u.text, scale)
	if u.ctx.Err() != nil {
		e.logger.Debug("Utterance canceled", "utterance", u.id)
		return
	}
	if err != nil {
		e.logger.Error("Synthesis failed", "utterance", u.id, "err", err)
		listener.OnError(u.id, tts.ErrorCodeSynthesis)
		return
	}

	if err := sink.Play(u.ctx, pcm); err != nil {
		if u.ctx.Err() != nil {
			e.logger.Debug("Playback interrupted", "utterance", u.id)
			return
		}
		e.logger.Error("Playback failed", "utterance", u.id, "err", err)
		listener.OnError(u.id, tts.ErrorCodeOutput)
		return
	}
	listener.OnDone(u.id)
}

func (e *Engine) synthesize(ctx context.Context, text string, scale float64) ([]byte, error) {
	key := cache.Key(text, e.model, scale)
	if e.cache != nil {
		if pcm, ok := e.cache.Get(key); ok {
			e.logger.Debug("Cache hit", "bytes", len(pcm))
			return pcm, nil
		}
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.binary, e.args(scale)...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Interrupt first so piper can clean up, kill if it lingers.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 100 * time.Millisecond

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("synthesis interrupted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("piper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("piper produced no audio: %s", strings.TrimSpace(stderr.String()))
	}
	pcm := stdout.Bytes()
	e.logger.Debug("Synthesized", "bytes", len(pcm), "took", time.Since(start))

	if e.cache != nil {
		if err := e.cache.Put(key, pcm); err != nil {
			e.logger.Warn("Could not cache audio", "err", err)
		}
	}
	return pcm, nil
}

func (e *Engine) args(scale float64) []string {
	args := []string{
		"--model", e.model,
		"--config", ConfigPath(e.model),
		"--output-raw",
		"--length-scale", strconv.FormatFloat(scale, 'f', 2, 64),
	}
	if e.cfg.Speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(e.cfg.Speaker))
	}
	return args
}

type nopListener struct{}

func (nopListener) OnStart(string)      {}
func (nopListener) OnDone(string)       {}
func (nopListener) OnError(string, int) {}
