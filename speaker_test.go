package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/voicectl/tts"
	ttsmock "github.com/dgnsrekt/voicectl/tts/engines/mock"
)

func newTestSpeaker(t *testing.T, engine *ttsmock.MockEngine) *speaker {
	t.Helper()
	cfg := tts.DefaultConfig()
	cfg.MaxChunkSize = 10

	s, err := startSpeaker(context.Background(), engine, cfg)
	if err != nil {
		t.Fatalf("startSpeaker failed: %v", err)
	}
	t.Cleanup(s.close)
	return s
}

func TestSpeakerSay(t *testing.T) {
	engine := ttsmock.New()
	engine.SetAutoProgress(true, time.Millisecond)
	s := newTestSpeaker(t, engine)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.say(ctx, "First one. Second one."); err != nil {
		t.Fatalf("say failed: %v", err)
	}
	if n := len(engine.Utterances()); n != 3 {
		t.Errorf("Expected 3 utterances, got %d", n)
	}
}

func TestSpeakerSayEngineFailure(t *testing.T) {
	engine := ttsmock.New()
	engine.SetAutoProgress(true, time.Millisecond)
	boom := errors.New("synthesis failed")
	engine.SetSpeakError(boom)
	s := newTestSpeaker(t, engine)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	err := s.say(ctx, "This will not be spoken.")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected engine error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("say took %v to report the failure", elapsed)
	}
}

func TestSpeakerSayDisabled(t *testing.T) {
	s := newTestSpeaker(t, ttsmock.New())
	s.ctl.Toggle()

	if err := s.say(context.Background(), "Muted."); !errors.Is(err, tts.ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}
