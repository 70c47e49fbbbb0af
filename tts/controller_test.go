package tts_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/voicectl/tts"
	"github.com/dgnsrekt/voicectl/tts/engines/mock"
)

var quiet = tts.WithLogger(log.New(io.Discard))

// initRecorder counts onInitialized calls.
type initRecorder struct {
	calls atomic.Int32
	last  atomic.Bool
}

func (r *initRecorder) callback(ok bool) {
	r.calls.Add(1)
	r.last.Store(ok)
}

func waitInit(t *testing.T, c *tts.Controller) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, err := c.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return ok
}

func newReadyController(t *testing.T, engine *mock.MockEngine, opts ...tts.Option) *tts.Controller {
	t.Helper()
	opts = append([]tts.Option{quiet}, opts...)
	c := tts.NewController(engine, tts.DefaultConfig(), nil, opts...)
	if !waitInit(t, c) {
		t.Fatal("Expected controller to initialize")
	}
	return c
}

// TestControllerInitialize tests successful initialization.
func TestControllerInitialize(t *testing.T) {
	engine := mock.New()
	rec := &initRecorder{}

	cfg := tts.DefaultConfig()
	cfg.Pitch = 1.2
	cfg.Rate = 0.8
	c := tts.NewController(engine, cfg, rec.callback, quiet)

	if !waitInit(t, c) {
		t.Fatal("Expected initialization to succeed")
	}
	if got := rec.calls.Load(); got != 1 {
		t.Errorf("Expected onInitialized once, got %d", got)
	}
	if !rec.last.Load() {
		t.Error("Expected onInitialized(true)")
	}
	if c.State() != tts.StateReady {
		t.Errorf("Expected state ready, got %s", c.State())
	}
	if engine.Locale() != "en-US" {
		t.Errorf("Expected locale en-US, got %q", engine.Locale())
	}
	pitch, rate := engine.Voice()
	if pitch != 1.2 || rate != 0.8 {
		t.Errorf("Expected pitch 1.2 and rate 0.8, got %v and %v", pitch, rate)
	}
	if !engine.HasListener() {
		t.Error("Expected progress listener to be registered")
	}
}

// TestControllerInitializeFailure tests the failure paths of initialization.
func TestControllerInitializeFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *mock.MockEngine)
	}{
		{
			name:  "engine error",
			setup: func(e *mock.MockEngine) { e.SetInitError(errors.New("no voices")) },
		},
		{
			name:  "language missing data",
			setup: func(e *mock.MockEngine) { e.SetLanguageStatus(tts.LangMissingData) },
		},
		{
			name:  "language not supported",
			setup: func(e *mock.MockEngine) { e.SetLanguageStatus(tts.LangNotSupported) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := mock.New()
			tt.setup(engine)
			rec := &initRecorder{}

			c := tts.NewController(engine, tts.DefaultConfig(), rec.callback, quiet)
			if waitInit(t, c) {
				t.Fatal("Expected initialization to fail")
			}
			if got := rec.calls.Load(); got != 1 {
				t.Errorf("Expected onInitialized once, got %d", got)
			}
			if rec.last.Load() {
				t.Error("Expected onInitialized(false)")
			}
			if c.State() != tts.StateFailed {
				t.Errorf("Expected state failed, got %s", c.State())
			}
			if c.IsSpeaking() {
				t.Error("Failed controller should not be speaking")
			}

			c.Speak("Hello there.")
			if n := len(engine.Utterances()); n != 0 {
				t.Errorf("Expected no utterances, got %d", n)
			}
		})
	}
}

// TestControllerNilEngine tests that a missing engine reports failure.
func TestControllerNilEngine(t *testing.T) {
	rec := &initRecorder{}
	c := tts.NewController(nil, tts.DefaultConfig(), rec.callback, quiet)

	if waitInit(t, c) {
		t.Fatal("Expected initialization to fail without an engine")
	}
	if rec.calls.Load() != 1 || rec.last.Load() {
		t.Error("Expected a single onInitialized(false)")
	}

	c.Speak("ignored")
	c.Stop()
	c.Shutdown()
	c.Shutdown()
}

// TestControllerSpeakBeforeInit tests that Speak is ignored while initializing.
func TestControllerSpeakBeforeInit(t *testing.T) {
	engine := mock.New()
	engine.SetManualInit()

	c := tts.NewController(engine, tts.DefaultConfig(), nil, quiet)
	if c.State() != tts.StateInitializing {
		t.Fatalf("Expected state initializing, got %s", c.State())
	}

	c.Speak("too early")
	if n := len(engine.Utterances()); n != 0 {
		t.Errorf("Expected no utterances before init, got %d", n)
	}

	engine.CompleteInit(nil)
	if !waitInit(t, c) {
		t.Fatal("Expected initialization to succeed")
	}

	c.Speak("now it works")
	if n := len(engine.Utterances()); n != 1 {
		t.Errorf("Expected 1 utterance after init, got %d", n)
	}
}

// TestControllerSpeakBlank tests that blank text never reaches the engine.
func TestControllerSpeakBlank(t *testing.T) {
	engine := mock.New()
	c := newReadyController(t, engine)

	for _, text := range []string{"", "   ", "\n\t "} {
		c.Speak(text)
	}

	if n := len(engine.Utterances()); n != 0 {
		t.Errorf("Expected no utterances for blank text, got %d", n)
	}
	if engine.StopCount() != 0 {
		t.Errorf("Blank text should not stop speech, got %d stops", engine.StopCount())
	}
}

// TestControllerSpeakChunks tests queue modes and utterance ids.
func TestControllerSpeakChunks(t *testing.T) {
	engine := mock.New()
	cfg := tts.DefaultConfig()
	cfg.MaxChunkSize = 15

	c := tts.NewController(engine, cfg, nil, quiet)
	if !waitInit(t, c) {
		t.Fatal("Expected initialization to succeed")
	}

	c.Speak("Hello world. This is a test.")

	got := engine.Utterances()
	want := []mock.Utterance{
		{Text: "Hello world. ", Mode: tts.QueueFlush, ID: "utterance_0"},
		{Text: "This is a test.", Mode: tts.QueueAdd, ID: "utterance_1"},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d utterances, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Utterance %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
	if engine.StopCount() != 1 {
		t.Errorf("Expected ongoing speech to be stopped once, got %d", engine.StopCount())
	}
}

// TestControllerSpeakLongText tests that long text is split at the default size.
func TestControllerSpeakLongText(t *testing.T) {
	engine := mock.New()
	c := newReadyController(t, engine)

	text := strings.Repeat("This sentence is ten words long, more or less. ", 200)
	c.Speak(text)

	utterances := engine.Utterances()
	if len(utterances) < 2 {
		t.Fatalf("Expected multiple utterances, got %d", len(utterances))
	}

	var sb strings.Builder
	for i, u := range utterances {
		sb.WriteString(u.Text)
		if i > 0 && u.Mode != tts.QueueAdd {
			t.Errorf("Utterance %d should be queued with add mode", i)
		}
	}
	if sb.String() != text {
		t.Error("Utterances do not reassemble the original text")
	}
}

// TestControllerSpeakError tests that engine failures are absorbed.
func TestControllerSpeakError(t *testing.T) {
	engine := mock.New()
	c := newReadyController(t, engine)

	engine.SetSpeakError(errors.New("synthesis failed"))
	c.Speak("This will fail.")

	engine.SetSpeakError(nil)
	c.Speak("This will work.")
	if n := len(engine.Utterances()); n != 1 {
		t.Errorf("Expected 1 utterance, got %d", n)
	}
}

// TestControllerSpeakChunksErrors tests the reasons reported when speech
// does not reach the engine.
func TestControllerSpeakChunksErrors(t *testing.T) {
	engine := mock.New()
	c := newReadyController(t, engine)

	if n, err := c.SpeakChunks("Hello. World."); err != nil || n != 1 {
		t.Errorf("Expected 1 utterance and no error, got %d, %v", n, err)
	}
	if _, err := c.SpeakChunks("   "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got %v", err)
	}

	boom := errors.New("synthesis failed")
	engine.SetSpeakError(boom)
	if _, err := c.SpeakChunks("This will fail."); !errors.Is(err, boom) {
		t.Errorf("Expected engine error, got %v", err)
	}
	engine.SetSpeakError(nil)

	c.Toggle()
	if _, err := c.SpeakChunks("Muted."); !errors.Is(err, tts.ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}

// TestControllerToggle tests enabling and disabling speech.
func TestControllerToggle(t *testing.T) {
	engine := mock.New()
	c := newReadyController(t, engine)

	if !c.Enabled() {
		t.Fatal("Controller should start enabled")
	}

	c.Speak("Speaking now.")
	stops := engine.StopCount()

	if c.Toggle() {
		t.Error("First toggle should disable")
	}
	if engine.StopCount() != stops+1 {
		t.Error("Disabling should stop ongoing speech")
	}
	if engine.IsSpeaking() {
		t.Error("Engine should not be speaking after disable")
	}

	c.Speak("Ignored while disabled.")
	if n := len(engine.Utterances()); n != 1 {
		t.Errorf("Expected disabled speak to be ignored, got %d utterances", n)
	}

	if !c.Toggle() {
		t.Error("Second toggle should enable")
	}
	if engine.StopCount() != stops+1 {
		t.Error("Enabling should not stop speech")
	}

	c.Speak("Back again.")
	if n := len(engine.Utterances()); n != 2 {
		t.Errorf("Expected 2 utterances, got %d", n)
	}
}

// TestControllerDisabledByConfig tests the initial enabled flag.
func TestControllerDisabledByConfig(t *testing.T) {
	engine := mock.New()
	cfg := tts.DefaultConfig()
	cfg.Enabled = false

	c := tts.NewController(engine, cfg, nil, quiet)
	if !waitInit(t, c) {
		t.Fatal("Expected initialization to succeed")
	}

	c.Speak("Should not be spoken.")
	if n := len(engine.Utterances()); n != 0 {
		t.Errorf("Expected no utterances, got %d", n)
	}
}

// TestControllerIsSpeaking tests that speaking state comes from the engine.
func TestControllerIsSpeaking(t *testing.T) {
	engine := mock.New()
	c := newReadyController(t, engine)

	if c.IsSpeaking() {
		t.Error("Should not be speaking initially")
	}

	engine.SetSpeaking(true)
	if !c.IsSpeaking() {
		t.Error("Should report engine speaking state")
	}

	c.Stop()
	c.Stop()
	if c.IsSpeaking() {
		t.Error("Should not be speaking after stop")
	}
}

// TestControllerShutdown tests that shutdown is terminal and idempotent.
func TestControllerShutdown(t *testing.T) {
	engine := mock.New()
	c := newReadyController(t, engine)
	engine.SetSpeaking(true)

	c.Shutdown()
	c.Shutdown()

	if engine.ShutdownCount() != 1 {
		t.Errorf("Expected engine shutdown once, got %d", engine.ShutdownCount())
	}
	if c.State() != tts.StateShutdown {
		t.Errorf("Expected state shutdown, got %s", c.State())
	}
	if c.IsSpeaking() {
		t.Error("Shut down controller should not be speaking")
	}

	c.Speak("After shutdown.")
	c.Stop()
	if n := len(engine.Utterances()); n != 0 {
		t.Errorf("Expected no utterances after shutdown, got %d", n)
	}
}

// TestControllerShutdownDuringInit tests a late init result after shutdown.
func TestControllerShutdownDuringInit(t *testing.T) {
	engine := mock.New()
	engine.SetManualInit()
	rec := &initRecorder{}

	c := tts.NewController(engine, tts.DefaultConfig(), rec.callback, quiet)
	c.Shutdown()
	engine.CompleteInit(nil)

	if waitInit(t, c) {
		t.Error("Initialization after shutdown should report failure")
	}
	if rec.calls.Load() != 1 || rec.last.Load() {
		t.Error("Expected a single onInitialized(false)")
	}
	if c.State() != tts.StateShutdown {
		t.Errorf("Expected state shutdown, got %s", c.State())
	}
}

// TestControllerProgress tests per-utterance progress reporting.
func TestControllerProgress(t *testing.T) {
	engine := mock.New()

	var mu sync.Mutex
	var events []tts.Progress
	c := newReadyController(t, engine, tts.WithProgress(func(p tts.Progress) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, p)
	}))

	engine.EmitStart("utterance_0")
	if c.Activity() != tts.ActivitySpeaking {
		t.Errorf("Expected activity speaking, got %s", c.Activity())
	}
	engine.EmitDone("utterance_0")
	if c.Activity() != tts.ActivityIdle {
		t.Errorf("Expected activity idle, got %s", c.Activity())
	}
	engine.EmitError("utterance_1", tts.ErrorCodeSynthesis)

	mu.Lock()
	defer mu.Unlock()
	want := []tts.Progress{
		{UtteranceID: "utterance_0", Kind: tts.ProgressStart},
		{UtteranceID: "utterance_0", Kind: tts.ProgressDone},
		{UtteranceID: "utterance_1", Kind: tts.ProgressError, Code: tts.ErrorCodeSynthesis},
	}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(events))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("Event %d: got %+v, want %+v", i, events[i], want[i])
		}
	}
}

// TestControllerAutoProgress tests a full speak cycle with simulated playback.
func TestControllerAutoProgress(t *testing.T) {
	engine := mock.New()
	engine.SetAutoProgress(true, 0)

	var done atomic.Int32
	c := newReadyController(t, engine, tts.WithProgress(func(p tts.Progress) {
		if p.Kind == tts.ProgressDone {
			done.Add(1)
		}
	}))

	c.Speak("One. Two.")
	engine.WaitPlayback()

	if done.Load() != 1 {
		t.Errorf("Expected 1 completed utterance, got %d", done.Load())
	}
	if c.IsSpeaking() {
		t.Error("Should not be speaking after all utterances completed")
	}
}
