// Package tts provides the speech output controller and its engine
// contract.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// ProgressKind identifies an utterance lifecycle event.
type ProgressKind int

const (
	// ProgressStart is reported when the engine starts an utterance.
	ProgressStart ProgressKind = iota
	// ProgressDone is reported when the engine finishes an utterance.
	ProgressDone
	// ProgressError is reported when the engine fails an utterance.
	ProgressError
)

// String returns the string representation of the progress kind.
func (k ProgressKind) String() string {
	switch k {
	case ProgressStart:
		return "start"
	case ProgressDone:
		return "done"
	case ProgressError:
		return "error"
	default:
		return "unknown"
	}
}

// Progress is one utterance event forwarded to the WithProgress hook.
type Progress struct {
	UtteranceID string
	Kind        ProgressKind
	Code        int // engine error code, only set for ProgressError
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used by the controller.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProgress registers a hook for per-utterance events. It runs on the
// engine's callback goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(c *Controller) {
		c.onProgress = fn
	}
}

// Controller speaks text through an Engine.
//
// It owns the engine exclusively. Initialization runs asynchronously and is
// reported once through the onInitialized callback passed to NewController.
type Controller struct {
	engine Engine
	config Config

	mu       sync.Mutex
	machine  *StateMachine
	activity Activity
	enabled  bool

	onInitialized func(bool)
	onProgress    func(Progress)
	logger        *log.Logger

	initDone chan struct{}
	initOK   bool
}

// NewController creates a controller for engine and starts initializing
// it. onInitialized is invoked exactly once, from another goroutine, with
// whether the engine is ready to speak. It must not call Wait.
func NewController(engine Engine, cfg Config, onInitialized func(bool), opts ...Option) *Controller {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if onInitialized == nil {
		onInitialized = func(bool) {}
	}

	c := &Controller{
		engine:        engine,
		config:        cfg,
		machine:       NewStateMachine(),
		enabled:       cfg.Enabled,
		onInitialized: onInitialized,
		logger:        log.Default().WithPrefix("tts"),
		initDone:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.machine.Transition(StateInitializing)

	if engine == nil {
		c.finish(ErrNoEngine)
		return c
	}

	results := engine.Init()
	go func() {
		err, ok := <-results
		if !ok && err == nil {
			err = errors.New("engine closed without reporting initialization")
		}
		c.finish(err)
	}()

	return c
}

// finish settles initialization, reports it and releases Wait.
func (c *Controller) finish(initErr error) {
	ok := c.configure(initErr)

	c.mu.Lock()
	c.initOK = ok
	c.mu.Unlock()

	c.onInitialized(ok)
	close(c.initDone)
}

// configure applies the locale and voice settings and moves the state
// machine to Ready or Failed.
func (c *Controller) configure(initErr error) bool {
	c.mu.Lock()
	engine := c.engine
	shutdown := c.machine.Current() == StateShutdown
	c.mu.Unlock()

	if shutdown {
		c.logger.Debug("Initialization finished after shutdown", "err", initErr)
		return false
	}

	err := initErr
	if err == nil && engine == nil {
		err = ErrNoEngine
	}
	if err == nil {
		switch status := engine.SetLanguage(c.config.Locale); status {
		case LangMissingData:
			err = fmt.Errorf("%w: %s", ErrLanguageMissingData, c.config.Locale)
		case LangNotSupported:
			err = fmt.Errorf("%w: %s", ErrLanguageNotSupported, c.config.Locale)
		}
	}

	if err == nil {
		if perr := engine.SetPitch(float32(c.config.Pitch)); perr != nil {
			c.logger.Warn("Could not set pitch", "pitch", c.config.Pitch, "err", perr)
		}
		if rerr := engine.SetRate(float32(c.config.Rate)); rerr != nil {
			c.logger.Warn("Could not set speech rate", "rate", c.config.Rate, "err", rerr)
		}
		engine.SetProgressListener(progressBridge{c})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.Current() == StateShutdown {
		c.logger.Debug("Initialization finished after shutdown")
		return false
	}

	if err != nil {
		c.machine.Transition(StateFailed)
		c.logger.Error("TTS initialization failed", "err", err)
		return false
	}

	c.machine.Transition(StateReady)
	c.logger.Debug("TTS initialized successfully", "locale", c.config.Locale)
	return true
}

// Wait blocks until initialization has settled or ctx is done. It returns
// whether the engine is ready.
func (c *Controller) Wait(ctx context.Context) (bool, error) {
	select {
	case <-c.initDone:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.initOK, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Speak stops any ongoing speech and speaks text. It does nothing when the
// controller is not ready, is disabled, or text is blank.
func (c *Controller) Speak(text string) {
	_, _ = c.speak(text)
}

// SpeakChunks behaves like Speak and also reports how many utterances
// reached the engine. The error says why speech was skipped or cut short.
func (c *Controller) SpeakChunks(text string) (int, error) {
	return c.speak(text)
}

// speak returns the number of utterances handed to the engine.
func (c *Controller) speak(text string) (int, error) {
	c.mu.Lock()
	engine := c.engine
	state := c.machine.Current()
	enabled := c.enabled
	maxChunkSize := c.config.MaxChunkSize
	c.mu.Unlock()

	switch {
	case state == StateShutdown:
		c.logger.Error("TTS has been shut down")
		return 0, ErrShutdown
	case state != StateReady || engine == nil:
		c.logger.Error("TTS not initialized", "state", state)
		return 0, ErrNotInitialized
	case !enabled:
		c.logger.Debug("TTS is disabled")
		return 0, ErrDisabled
	case strings.TrimSpace(text) == "":
		c.logger.Warn("Empty text provided")
		return 0, ErrEmptyText
	}

	if err := engine.Stop(); err != nil {
		c.logger.Warn("Could not stop ongoing speech", "err", err)
	}

	n := 0
	for chunk := range Chunks(text, maxChunkSize) {
		mode := QueueAdd
		if n == 0 {
			mode = QueueFlush
		}
		id := UtteranceID(n)
		if err := engine.Speak(chunk, mode, id); err != nil {
			c.logger.Error("Failed to speak", "utterance", id, "err", err)
			return n, fmt.Errorf("speak %s: %w", id, err)
		}
		n++
	}

	c.logger.Debug("Speaking chunks", "count", n)
	return n, nil
}

// UtteranceID returns the id of the chunk at index within one Speak call.
func UtteranceID(index int) string {
	return fmt.Sprintf("utterance_%d", index)
}

// Stop halts any ongoing speech. It is safe to call at any time.
func (c *Controller) Stop() {
	c.mu.Lock()
	engine := c.engine
	c.mu.Unlock()

	if engine == nil {
		return
	}
	if err := engine.Stop(); err != nil {
		c.logger.Warn("Could not stop speech", "err", err)
	}
}

// IsSpeaking reports whether the engine is rendering audio right now.
func (c *Controller) IsSpeaking() bool {
	c.mu.Lock()
	engine := c.engine
	c.mu.Unlock()

	if engine == nil {
		return false
	}
	return engine.IsSpeaking()
}

// Toggle flips whether Speak is allowed, stopping speech when it becomes
// disabled. It returns the new value.
func (c *Controller) Toggle() bool {
	c.mu.Lock()
	c.enabled = !c.enabled
	enabled := c.enabled
	c.mu.Unlock()

	if !enabled {
		c.Stop()
	}
	c.logger.Debug("TTS toggled", "enabled", enabled)
	return enabled
}

// Enabled reports whether Speak is allowed.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// State returns the lifecycle state.
func (c *Controller) State() StateType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// Activity returns the speaking activity mirrored from engine events.
func (c *Controller) Activity() Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activity
}

// Shutdown stops speech and releases the engine. Calling it more than once
// is a no-op.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	if c.machine.Current() == StateShutdown {
		c.mu.Unlock()
		return
	}
	c.machine.Transition(StateShutdown)
	engine := c.engine
	c.engine = nil
	c.activity = ActivityIdle
	c.mu.Unlock()

	if engine == nil {
		return
	}
	if err := engine.Stop(); err != nil {
		c.logger.Warn("Could not stop speech", "err", err)
	}
	if err := engine.Shutdown(); err != nil {
		c.logger.Warn("Could not shut down engine", "err", err)
	}
	c.logger.Debug("TTS shut down")
}

// progressBridge forwards engine events into the controller.
type progressBridge struct {
	c *Controller
}

func (b progressBridge) OnStart(id string) {
	b.c.logger.Debug("TTS started speaking", "utterance", id)
	b.c.setActivity(ActivitySpeaking)
	b.c.report(Progress{UtteranceID: id, Kind: ProgressStart})
}

func (b progressBridge) OnDone(id string) {
	b.c.logger.Debug("TTS finished speaking", "utterance", id)
	b.c.setActivity(ActivityIdle)
	b.c.report(Progress{UtteranceID: id, Kind: ProgressDone})
}

func (b progressBridge) OnError(id string, code int) {
	b.c.logger.Error("TTS error", "utterance", id, "code", code)
	b.c.setActivity(ActivityIdle)
	b.c.report(Progress{UtteranceID: id, Kind: ProgressError, Code: code})
}

func (c *Controller) setActivity(a Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machine.Current() == StateReady {
		c.activity = a
	}
}

func (c *Controller) report(p Progress) {
	if c.State() != StateReady || c.onProgress == nil {
		return
	}
	c.onProgress(p)
}
