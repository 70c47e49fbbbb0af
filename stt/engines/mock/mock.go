// Package mock provides a scriptable speech recognition engine for testing.
package mock

import (
	"errors"
	"sync"
	"time"

	"github.com/dgnsrekt/voicectl/stt"
)

// ErrDestroyed is returned by engine calls made after Destroy.
var ErrDestroyed = errors.New("mock recognizer has been destroyed")

// MockEngine implements stt.Engine for testing.
type MockEngine struct {
	mu sync.Mutex

	available bool
	startErr  error
	listener  stt.Listener
	destroyed bool

	// Scripted sessions
	script    []string
	autoDelay time.Duration
	auto      bool
	sessions  sync.WaitGroup

	// Recorded calls
	requests     []stt.Request
	stopCalls    int
	destroyCalls int
}

// New creates a new available mock recognizer.
func New() *MockEngine {
	return &MockEngine{available: true}
}

// Available returns the configured availability.
func (e *MockEngine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// SetListener records the listener.
func (e *MockEngine) SetListener(l stt.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// StartListening records the request. With a script set it also plays a
// full session on a separate goroutine.
func (e *MockEngine) StartListening(req stt.Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return ErrDestroyed
	}
	if e.startErr != nil {
		return e.startErr
	}
	e.requests = append(e.requests, req)

	if e.auto {
		l, script, delay := e.listener, append([]string(nil), e.script...), e.autoDelay
		e.sessions.Add(1)
		go func() {
			defer e.sessions.Done()
			playSession(l, script, delay)
		}()
	}
	return nil
}

func playSession(l stt.Listener, script []string, delay time.Duration) {
	if l == nil {
		return
	}
	l.OnReadyForSpeech()
	l.OnBeginningOfSpeech()
	time.Sleep(delay)
	l.OnEndOfSpeech()
	if len(script) == 0 {
		l.OnError(stt.ErrorNoMatch)
		return
	}
	l.OnResults(script)
}

// StopListening records the call.
func (e *MockEngine) StopListening() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCalls++
	return nil
}

// Destroy marks the recognizer unusable and drops the listener.
func (e *MockEngine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyCalls++
	e.destroyed = true
	e.listener = nil
	return nil
}

// Test control methods

// SetAvailable sets what Available returns.
func (e *MockEngine) SetAvailable(available bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.available = available
}

// SetStartError makes StartListening fail with err. Pass nil to clear it.
func (e *MockEngine) SetStartError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startErr = err
}

// SetScript makes every session recognize transcripts after delay. An
// empty script ends sessions with a no-match error.
func (e *MockEngine) SetScript(delay time.Duration, transcripts ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auto = true
	e.autoDelay = delay
	e.script = transcripts
}

// WaitSessions blocks until scripted sessions have finished.
func (e *MockEngine) WaitSessions() {
	e.sessions.Wait()
}

// EmitReady reports readiness for speech.
func (e *MockEngine) EmitReady() {
	if l := e.getListener(); l != nil {
		l.OnReadyForSpeech()
	}
}

// EmitEndOfSpeech reports the end of speech.
func (e *MockEngine) EmitEndOfSpeech() {
	if l := e.getListener(); l != nil {
		l.OnEndOfSpeech()
	}
}

// EmitError reports a recognition error.
func (e *MockEngine) EmitError(code stt.ErrorCode) {
	if l := e.getListener(); l != nil {
		l.OnError(code)
	}
}

// EmitResults reports final transcripts.
func (e *MockEngine) EmitResults(transcripts ...string) {
	if l := e.getListener(); l != nil {
		l.OnResults(transcripts)
	}
}

// EmitNoise reports the events a controller is expected to ignore.
func (e *MockEngine) EmitNoise() {
	if l := e.getListener(); l != nil {
		l.OnBeginningOfSpeech()
		l.OnRmsChanged(-2.5)
		l.OnBufferReceived([]byte{0, 1})
		l.OnPartialResults([]string{"partial"})
		l.OnEvent(42)
	}
}

func (e *MockEngine) getListener() stt.Listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener
}

// Listener returns the registered listener.
func (e *MockEngine) Listener() stt.Listener {
	return e.getListener()
}

// Requests returns a copy of the recorded StartListening requests.
func (e *MockEngine) Requests() []stt.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]stt.Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// StopCount returns the number of StopListening calls.
func (e *MockEngine) StopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCalls
}

// DestroyCount returns the number of Destroy calls.
func (e *MockEngine) DestroyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyCalls
}
