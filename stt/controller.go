// Package stt provides the speech input controller and its engine
// contract.
package stt

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Callbacks are the hooks a Controller reports through. They run on the
// engine's callback goroutine, or on the caller's goroutine for failures
// detected synchronously. Nil hooks are ignored.
type Callbacks struct {
	OnResult               func(text string)
	OnError                func(message string)
	OnListeningStateChange func(listening bool)
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

// WithRequest overrides the request issued by StartListening.
func WithRequest(req Request) Option {
	return func(c *Controller) {
		c.request = req
	}
}

// Controller runs recognition sessions on an Engine.
type Controller struct {
	mu        sync.Mutex
	engine    Engine
	state     StateType
	listening bool
	// session is set from StartListening until speech ends or the session
	// terminates, so a second StartListening before the engine reports
	// readiness is a no-op.
	session bool

	request   Request
	callbacks Callbacks
	logger    *log.Logger
}

// NewController creates a controller for engine. If engine is nil or
// reports recognition as unavailable, OnError is invoked before
// NewController returns and the controller stays inert.
func NewController(engine Engine, cb Callbacks, opts ...Option) *Controller {
	if cb.OnResult == nil {
		cb.OnResult = func(string) {}
	}
	if cb.OnError == nil {
		cb.OnError = func(string) {}
	}
	if cb.OnListeningStateChange == nil {
		cb.OnListeningStateChange = func(bool) {}
	}

	c := &Controller{
		state:     StateUninitialized,
		request:   DefaultRequest(),
		callbacks: cb,
		logger:    log.Default().WithPrefix("stt"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if engine == nil || !engine.Available() {
		c.state = StateUnavailable
		c.logger.Error("Speech recognition unavailable")
		cb.OnError(UnavailableMessage)
		return c
	}

	c.engine = engine
	c.state = StateReady
	engine.SetListener(recognitionBridge{c})
	return c
}

// StartListening starts a recognition session unless one is already
// running.
func (c *Controller) StartListening() {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		c.logger.Debug("Ignoring start", "state", c.State())
		return
	}
	if c.listening || c.session {
		c.mu.Unlock()
		c.logger.Debug("Already listening")
		return
	}
	c.session = true
	engine, req := c.engine, c.request
	c.mu.Unlock()

	if err := engine.StartListening(req); err != nil {
		c.logger.Error("Failed to start listening", "err", err)

		c.mu.Lock()
		c.listening = false
		c.session = false
		c.mu.Unlock()

		c.callbacks.OnError("Failed to start voice recognition: " + err.Error())
		c.callbacks.OnListeningStateChange(false)
		return
	}
	c.logger.Debug("Listening requested", "language", req.Language, "model", req.LanguageModel)
}

// StopListening ends the current session. Results the engine already
// captured may still arrive through OnResult.
func (c *Controller) StopListening() {
	c.mu.Lock()
	if c.state != StateReady || (!c.listening && !c.session) {
		c.mu.Unlock()
		return
	}
	wasListening := c.listening
	c.listening = false
	c.session = false
	engine := c.engine
	c.mu.Unlock()

	if err := engine.StopListening(); err != nil {
		c.logger.Warn("Could not stop listening", "err", err)
	}
	if wasListening {
		c.callbacks.OnListeningStateChange(false)
	}
}

// IsListening reports whether the engine is capturing speech.
func (c *Controller) IsListening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// State returns the lifecycle state.
func (c *Controller) State() StateType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Shutdown releases the engine. Calling it more than once is a no-op.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	if c.state == StateShutdown || c.state == StateUnavailable {
		c.mu.Unlock()
		return
	}
	c.state = StateShutdown
	engine := c.engine
	c.engine = nil
	c.listening = false
	c.session = false
	c.mu.Unlock()

	if engine == nil {
		return
	}
	if err := engine.Destroy(); err != nil {
		c.logger.Warn("Could not destroy engine", "err", err)
	}
	c.logger.Debug("STT shut down")
}

// setListening updates the mirror and reports whether the controller is
// still accepting events. end also closes the session.
func (c *Controller) setListening(listening, end bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return false
	}
	c.listening = listening
	if end {
		c.session = false
	}
	return true
}

// recognitionBridge forwards engine events into the controller.
type recognitionBridge struct {
	c *Controller
}

func (b recognitionBridge) OnReadyForSpeech() {
	b.c.logger.Debug("Ready for speech")
	if b.c.setListening(true, false) {
		b.c.callbacks.OnListeningStateChange(true)
	}
}

func (b recognitionBridge) OnBeginningOfSpeech() {
	b.c.logger.Debug("Beginning of speech")
}

func (b recognitionBridge) OnRmsChanged(float32) {}

func (b recognitionBridge) OnBufferReceived([]byte) {}

func (b recognitionBridge) OnEndOfSpeech() {
	b.c.logger.Debug("End of speech")
	if b.c.setListening(false, true) {
		b.c.callbacks.OnListeningStateChange(false)
	}
}

func (b recognitionBridge) OnError(code ErrorCode) {
	msg := code.Message()
	b.c.logger.Error("Recognition error", "code", int(code), "message", msg)
	if !b.c.setListening(false, true) {
		return
	}
	b.c.callbacks.OnListeningStateChange(false)
	b.c.callbacks.OnError(msg)
}

func (b recognitionBridge) OnResults(transcripts []string) {
	if b.c.State() != StateReady {
		return
	}
	if len(transcripts) > 0 {
		b.c.logger.Debug("Recognized", "text", transcripts[0])
		b.c.callbacks.OnResult(transcripts[0])
	}
	if b.c.setListening(false, true) {
		b.c.callbacks.OnListeningStateChange(false)
	}
}

func (b recognitionBridge) OnPartialResults([]string) {}

func (b recognitionBridge) OnEvent(int) {}
