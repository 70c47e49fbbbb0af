package stt_test

import (
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/voicectl/stt"
	"github.com/dgnsrekt/voicectl/stt/engines/mock"
)

var quiet = stt.WithLogger(log.New(io.Discard))

// recorder collects controller callbacks.
type recorder struct {
	mu      sync.Mutex
	results []string
	errors  []string
	states  []bool
}

func (r *recorder) callbacks() stt.Callbacks {
	return stt.Callbacks{
		OnResult: func(text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.results = append(r.results, text)
		},
		OnError: func(msg string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, msg)
		},
		OnListeningStateChange: func(listening bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, listening)
		},
	}
}

func (r *recorder) snapshot() (results, errs []string, states []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.results), slices.Clone(r.errors), slices.Clone(r.states)
}

func newController(t *testing.T) (*stt.Controller, *mock.MockEngine, *recorder) {
	t.Helper()
	engine := mock.New()
	rec := &recorder{}
	c := stt.NewController(engine, rec.callbacks(), quiet)
	if c.State() != stt.StateReady {
		t.Fatalf("Expected state ready, got %s", c.State())
	}
	return c, engine, rec
}

// TestControllerUnavailable tests that an unavailable engine leaves the
// controller inert.
func TestControllerUnavailable(t *testing.T) {
	engine := mock.New()
	engine.SetAvailable(false)
	rec := &recorder{}

	c := stt.NewController(engine, rec.callbacks(), quiet)

	_, errs, _ := rec.snapshot()
	if len(errs) != 1 || errs[0] != stt.UnavailableMessage {
		t.Fatalf("Expected unavailable error, got %q", errs)
	}
	if c.State() != stt.StateUnavailable {
		t.Errorf("Expected state unavailable, got %s", c.State())
	}
	if engine.Listener() != nil {
		t.Error("Unavailable controller should not register a listener")
	}

	c.StartListening()
	c.StopListening()
	c.Shutdown()
	c.Shutdown()

	if n := len(engine.Requests()); n != 0 {
		t.Errorf("Expected no start requests, got %d", n)
	}
	if c.IsListening() {
		t.Error("Unavailable controller should not be listening")
	}
	if _, errs, _ := rec.snapshot(); len(errs) != 1 {
		t.Errorf("Expected exactly one error, got %d", len(errs))
	}
}

// TestControllerNilEngine tests that a missing engine counts as unavailable.
func TestControllerNilEngine(t *testing.T) {
	rec := &recorder{}
	c := stt.NewController(nil, rec.callbacks(), quiet)

	if c.State() != stt.StateUnavailable {
		t.Errorf("Expected state unavailable, got %s", c.State())
	}
	c.StartListening()
	c.Shutdown()
}

// TestControllerStartListening tests the request issued to the engine.
func TestControllerStartListening(t *testing.T) {
	c, engine, _ := newController(t)

	c.StartListening()

	requests := engine.Requests()
	if len(requests) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(requests))
	}
	want := stt.Request{
		LanguageModel:  stt.LanguageModelFreeForm,
		Language:       "en-US",
		PartialResults: true,
		MaxResults:     1,
	}
	if requests[0] != want {
		t.Errorf("Expected request %+v, got %+v", want, requests[0])
	}
}

// TestControllerStartListeningTwice tests that a second start is ignored.
func TestControllerStartListeningTwice(t *testing.T) {
	c, engine, _ := newController(t)

	// Before the engine reports readiness.
	c.StartListening()
	c.StartListening()
	if n := len(engine.Requests()); n != 1 {
		t.Fatalf("Expected 1 request before ready, got %d", n)
	}

	// After the engine reports readiness.
	engine.EmitReady()
	c.StartListening()
	if n := len(engine.Requests()); n != 1 {
		t.Errorf("Expected 1 request while listening, got %d", n)
	}
}

// TestControllerStartFailure tests a start request rejected by the engine.
func TestControllerStartFailure(t *testing.T) {
	c, engine, rec := newController(t)
	engine.SetStartError(errors.New("microphone in use"))

	c.StartListening()

	_, errs, states := rec.snapshot()
	if len(errs) != 1 || errs[0] != "Failed to start voice recognition: microphone in use" {
		t.Errorf("Unexpected errors: %q", errs)
	}
	if !slices.Equal(states, []bool{false}) {
		t.Errorf("Expected listening state [false], got %v", states)
	}
	if c.IsListening() {
		t.Error("Should not be listening after start failure")
	}

	// A later start is attempted again.
	engine.SetStartError(nil)
	c.StartListening()
	if n := len(engine.Requests()); n != 1 {
		t.Errorf("Expected retry to reach the engine, got %d requests", n)
	}
}

// TestControllerSession tests a full session ending with a result.
func TestControllerSession(t *testing.T) {
	c, engine, rec := newController(t)

	c.StartListening()
	engine.EmitReady()
	if !c.IsListening() {
		t.Fatal("Should be listening after ready for speech")
	}

	engine.EmitNoise()
	engine.EmitEndOfSpeech()
	if c.IsListening() {
		t.Error("Should not be listening after end of speech")
	}

	engine.EmitResults("turn on the lights", "turn on the light")

	results, errs, states := rec.snapshot()
	if !slices.Equal(results, []string{"turn on the lights"}) {
		t.Errorf("Expected first transcript, got %q", results)
	}
	if len(errs) != 0 {
		t.Errorf("Expected no errors, got %q", errs)
	}
	if !slices.Equal(states, []bool{true, false, false}) {
		t.Errorf("Expected listening states [true false false], got %v", states)
	}

	// The session is over, so a new one can start.
	c.StartListening()
	if n := len(engine.Requests()); n != 2 {
		t.Errorf("Expected 2 requests, got %d", n)
	}
}

// TestControllerRestartAfterEndOfSpeech tests that a session can be
// restarted once the engine reports the end of speech.
func TestControllerRestartAfterEndOfSpeech(t *testing.T) {
	c, engine, rec := newController(t)

	c.StartListening()
	engine.EmitReady()
	engine.EmitEndOfSpeech()
	if c.IsListening() {
		t.Fatal("Should not be listening after end of speech")
	}

	c.StartListening()
	if n := len(engine.Requests()); n != 2 {
		t.Errorf("Expected 2 engine requests, got %d", n)
	}

	engine.EmitReady()
	if !c.IsListening() {
		t.Error("Should be listening in the restarted session")
	}
	_, _, states := rec.snapshot()
	if !slices.Equal(states, []bool{true, false, true}) {
		t.Errorf("Expected listening states [true false true], got %v", states)
	}
}

// TestControllerEmptyResults tests results without transcripts.
func TestControllerEmptyResults(t *testing.T) {
	c, engine, rec := newController(t)

	c.StartListening()
	engine.EmitReady()
	engine.EmitResults()

	results, _, states := rec.snapshot()
	if len(results) != 0 {
		t.Errorf("Expected no results, got %q", results)
	}
	if !slices.Equal(states, []bool{true, false}) {
		t.Errorf("Expected listening states [true false], got %v", states)
	}
	if c.IsListening() {
		t.Error("Should not be listening after results")
	}
}

// TestControllerEngineError tests error code mapping and state reset.
func TestControllerEngineError(t *testing.T) {
	tests := []struct {
		code stt.ErrorCode
		msg  string
	}{
		{stt.ErrorAudio, "Audio recording error"},
		{stt.ErrorClient, "Client side error"},
		{stt.ErrorInsufficientPermissions, "Insufficient permissions"},
		{stt.ErrorNetwork, "Network error"},
		{stt.ErrorNetworkTimeout, "Network timeout"},
		{stt.ErrorNoMatch, "No speech match found"},
		{stt.ErrorRecognizerBusy, "Recognition service busy"},
		{stt.ErrorServer, "Server error"},
		{stt.ErrorSpeechTimeout, "No speech input"},
		{stt.ErrorCode(0), "Unknown error occurred"},
		{stt.ErrorCode(99), "Unknown error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			c, engine, rec := newController(t)

			c.StartListening()
			engine.EmitReady()
			engine.EmitError(tt.code)

			_, errs, states := rec.snapshot()
			if !slices.Equal(errs, []string{tt.msg}) {
				t.Errorf("Expected error %q, got %q", tt.msg, errs)
			}
			if !slices.Equal(states, []bool{true, false}) {
				t.Errorf("Expected listening states [true false], got %v", states)
			}
			if c.IsListening() {
				t.Error("Should not be listening after an error")
			}
		})
	}
}

// TestControllerStopListening tests stopping an active session.
func TestControllerStopListening(t *testing.T) {
	c, engine, rec := newController(t)

	// Stopping while idle does nothing.
	c.StopListening()
	if engine.StopCount() != 0 {
		t.Errorf("Expected no engine stop while idle, got %d", engine.StopCount())
	}

	c.StartListening()
	engine.EmitReady()
	c.StopListening()

	if engine.StopCount() != 1 {
		t.Errorf("Expected 1 engine stop, got %d", engine.StopCount())
	}
	if c.IsListening() {
		t.Error("Should not be listening after stop")
	}
	_, _, states := rec.snapshot()
	if !slices.Equal(states, []bool{true, false}) {
		t.Errorf("Expected listening states [true false], got %v", states)
	}

	// Results captured before the stop are still delivered.
	engine.EmitResults("late result")
	results, _, _ := rec.snapshot()
	if !slices.Equal(results, []string{"late result"}) {
		t.Errorf("Expected late result to be delivered, got %q", results)
	}
}

// TestControllerStopBeforeReady tests stopping a session that has not
// reported readiness yet.
func TestControllerStopBeforeReady(t *testing.T) {
	c, engine, rec := newController(t)

	c.StartListening()
	c.StopListening()

	if engine.StopCount() != 1 {
		t.Errorf("Expected 1 engine stop, got %d", engine.StopCount())
	}
	if _, _, states := rec.snapshot(); len(states) != 0 {
		t.Errorf("Expected no listening state change, got %v", states)
	}

	c.StartListening()
	if n := len(engine.Requests()); n != 2 {
		t.Errorf("Expected a new session after stop, got %d requests", n)
	}
}

// TestControllerShutdown tests that shutdown is terminal and idempotent.
func TestControllerShutdown(t *testing.T) {
	c, engine, rec := newController(t)

	c.StartListening()
	engine.EmitReady()
	listener := engine.Listener()

	c.Shutdown()
	c.Shutdown()

	if engine.DestroyCount() != 1 {
		t.Errorf("Expected engine destroyed once, got %d", engine.DestroyCount())
	}
	if c.State() != stt.StateShutdown {
		t.Errorf("Expected state shutdown, got %s", c.State())
	}
	if c.IsListening() {
		t.Error("Should not be listening after shutdown")
	}

	// Late events from the engine are dropped.
	listener.OnResults([]string{"too late"})
	listener.OnError(stt.ErrorServer)

	results, errs, _ := rec.snapshot()
	if len(results) != 0 || len(errs) != 0 {
		t.Errorf("Expected late events to be dropped, got results %q errors %q", results, errs)
	}

	c.StartListening()
	if n := len(engine.Requests()); n != 1 {
		t.Errorf("Expected no new requests after shutdown, got %d", n)
	}
}

// TestControllerCustomRequest tests overriding the request.
func TestControllerCustomRequest(t *testing.T) {
	engine := mock.New()
	req := stt.Request{
		LanguageModel: stt.LanguageModelWebSearch,
		Language:      "de-DE",
		MaxResults:    3,
	}

	c := stt.NewController(engine, stt.Callbacks{}, quiet, stt.WithRequest(req))
	c.StartListening()

	requests := engine.Requests()
	if len(requests) != 1 || requests[0] != req {
		t.Errorf("Expected request %+v, got %+v", req, requests)
	}
}

// TestControllerScriptedSession tests callbacks delivered from another
// goroutine.
func TestControllerScriptedSession(t *testing.T) {
	c, engine, rec := newController(t)
	engine.SetScript(5*time.Millisecond, "hello there")

	c.StartListening()
	engine.WaitSessions()

	results, errs, states := rec.snapshot()
	if !slices.Equal(results, []string{"hello there"}) {
		t.Errorf("Expected scripted result, got %q", results)
	}
	if len(errs) != 0 {
		t.Errorf("Expected no errors, got %q", errs)
	}
	if !slices.Equal(states, []bool{true, false, false}) {
		t.Errorf("Expected listening states [true false false], got %v", states)
	}
}
