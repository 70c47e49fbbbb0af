// Package mock provides a scriptable speech synthesis engine for testing.
package mock

import (
	"errors"
	"sync"
	"time"

	"github.com/dgnsrekt/voicectl/tts"
)

// ErrShutdown is returned by engine calls made after Shutdown.
var ErrShutdown = errors.New("mock engine has been shut down")

// Utterance records one Speak call.
type Utterance struct {
	Text string
	Mode tts.QueueMode
	ID   string
}

// MockEngine implements tts.Engine for testing.
type MockEngine struct {
	mu sync.Mutex

	// Initialization control
	initErr    error
	manualInit bool
	initCh     chan error
	language   tts.LanguageStatus

	// Voice settings
	locale string
	pitch  float32
	rate   float32

	// Playback simulation
	autoProgress bool
	delay        time.Duration
	speakErr     error
	speaking     bool
	// Auto progress plays utterances in order. Stop and QueueFlush close
	// cancel and start a new generation.
	cancel  chan struct{}
	tail    chan struct{}
	gen     int
	pending int
	playing sync.WaitGroup

	// Recorded calls
	listener      tts.ProgressListener
	utterances    []Utterance
	stopCalls     int
	shutdownCalls int
	shutdown      bool
}

// New creates a new mock engine that initializes successfully.
func New() *MockEngine {
	return &MockEngine{
		language: tts.LangAvailable,
		pitch:    1.0,
		rate:     1.0,
	}
}

// Init reports the configured initialization result. In manual mode the
// result is delivered by CompleteInit.
func (e *MockEngine) Init() <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.initCh = make(chan error, 1)
	if !e.manualInit {
		e.initCh <- e.initErr
		close(e.initCh)
	}
	return e.initCh
}

// SetLanguage records the locale and returns the configured status.
func (e *MockEngine) SetLanguage(locale string) tts.LanguageStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locale = locale
	return e.language
}

// SetPitch records the pitch.
func (e *MockEngine) SetPitch(pitch float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pitch = pitch
	return nil
}

// SetRate records the speech rate.
func (e *MockEngine) SetRate(rate float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	return nil
}

// SetProgressListener records the listener.
func (e *MockEngine) SetProgressListener(l tts.ProgressListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// Speak records the utterance. In auto progress mode it also queues a
// simulated playback that reports start and done to the listener from
// another goroutine.
func (e *MockEngine) Speak(text string, mode tts.QueueMode, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		return ErrShutdown
	}
	if e.speakErr != nil {
		return e.speakErr
	}
	e.utterances = append(e.utterances, Utterance{Text: text, Mode: mode, ID: id})
	e.speaking = true

	if !e.autoProgress || e.listener == nil {
		return nil
	}
	if mode == tts.QueueFlush {
		e.cancelLocked()
	}
	if e.cancel == nil {
		e.cancel = make(chan struct{})
	}
	prev, done := e.tail, make(chan struct{})
	e.tail = done
	e.pending++
	e.playing.Add(1)
	go e.play(e.listener, id, e.delay, e.gen, prev, done, e.cancel)
	return nil
}

func (e *MockEngine) play(l tts.ProgressListener, id string, delay time.Duration, gen int, prev, done, cancel chan struct{}) {
	defer e.playing.Done()
	defer close(done)

	if prev != nil {
		select {
		case <-prev:
		case <-cancel:
			return
		}
	}
	select {
	case <-cancel:
		return
	default:
	}

	l.OnStart(id)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-cancel:
		return
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.pending--
	e.speaking = e.pending > 0
	e.mu.Unlock()
	l.OnDone(id)
}

// cancelLocked abandons every queued playback. Callers hold e.mu.
func (e *MockEngine) cancelLocked() {
	if e.cancel != nil {
		close(e.cancel)
		e.cancel = nil
	}
	e.tail = nil
	e.pending = 0
	e.gen++
}

// Stop records the call, cancels simulated playback and clears the
// speaking flag.
func (e *MockEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCalls++
	e.speaking = false
	e.cancelLocked()
	return nil
}

// IsSpeaking returns the simulated speaking flag.
func (e *MockEngine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Shutdown marks the engine unusable.
func (e *MockEngine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdownCalls++
	e.shutdown = true
	e.speaking = false
	e.cancelLocked()
	return nil
}

// Test control methods

// SetInitError makes Init report err.
func (e *MockEngine) SetInitError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initErr = err
}

// SetManualInit holds the Init result until CompleteInit is called.
func (e *MockEngine) SetManualInit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manualInit = true
}

// CompleteInit delivers err as the pending Init result.
func (e *MockEngine) CompleteInit(err error) {
	e.mu.Lock()
	ch := e.initCh
	e.initCh = nil
	e.mu.Unlock()

	if ch == nil {
		return
	}
	ch <- err
	close(ch)
}

// SetLanguageStatus sets what SetLanguage returns.
func (e *MockEngine) SetLanguageStatus(s tts.LanguageStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.language = s
}

// SetSpeakError makes Speak fail with err. Pass nil to clear it.
func (e *MockEngine) SetSpeakError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speakErr = err
}

// SetSpeaking overrides the simulated speaking flag.
func (e *MockEngine) SetSpeaking(speaking bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speaking = speaking
}

// SetAutoProgress makes every Speak play in the background: report start,
// wait delay, then report done.
func (e *MockEngine) SetAutoProgress(enabled bool, delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoProgress = enabled
	e.delay = delay
}

// WaitPlayback blocks until every simulated playback has finished or been
// canceled.
func (e *MockEngine) WaitPlayback() {
	e.playing.Wait()
}

// EmitStart reports an utterance start to the listener.
func (e *MockEngine) EmitStart(id string) {
	if l := e.getListener(); l != nil {
		l.OnStart(id)
	}
}

// EmitDone reports an utterance completion to the listener.
func (e *MockEngine) EmitDone(id string) {
	if l := e.getListener(); l != nil {
		l.OnDone(id)
	}
}

// EmitError reports an utterance failure to the listener.
func (e *MockEngine) EmitError(id string, code int) {
	if l := e.getListener(); l != nil {
		l.OnError(id, code)
	}
}

func (e *MockEngine) getListener() tts.ProgressListener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener
}

// Utterances returns a copy of the recorded Speak calls.
func (e *MockEngine) Utterances() []Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Utterance, len(e.utterances))
	copy(out, e.utterances)
	return out
}

// StopCount returns the number of Stop calls.
func (e *MockEngine) StopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCalls
}

// ShutdownCount returns the number of Shutdown calls.
func (e *MockEngine) ShutdownCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdownCalls
}

// Locale returns the last locale passed to SetLanguage.
func (e *MockEngine) Locale() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locale
}

// Voice returns the recorded pitch and rate.
func (e *MockEngine) Voice() (pitch, rate float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pitch, e.rate
}

// HasListener reports whether a progress listener is registered.
func (e *MockEngine) HasListener() bool {
	return e.getListener() != nil
}
