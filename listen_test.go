package main

import (
	"testing"

	"github.com/dgnsrekt/voicectl/stt"
)

func TestSessionRetry(t *testing.T) {
	crash := stt.ErrorClient.Message()

	r := newSessionRetry()
	for i := 1; i < maxRepeatedFailures; i++ {
		wait, err := r.failed(crash)
		if err != nil {
			t.Fatalf("Failure %d gave up early: %v", i, err)
		}
		if wait <= 0 {
			t.Errorf("Failure %d: expected a pause, got %v", i, wait)
		}
	}
	if _, err := r.failed(crash); err == nil {
		t.Error("Expected repeated failures to give up")
	}
}

func TestSessionRetryResets(t *testing.T) {
	crash := stt.ErrorClient.Message()
	r := newSessionRetry()

	for range maxRepeatedFailures - 1 {
		if _, err := r.failed(crash); err != nil {
			t.Fatal(err)
		}
	}
	r.succeeded()
	if _, err := r.failed(crash); err != nil {
		t.Errorf("Success should reset the failure count: %v", err)
	}

	// A different error starts a new count.
	for range maxRepeatedFailures - 2 {
		if _, err := r.failed(crash); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.failed(stt.ErrorNetwork.Message()); err != nil {
		t.Errorf("A different error should not give up: %v", err)
	}
}

func TestSessionRetrySilence(t *testing.T) {
	r := newSessionRetry()
	for i := range 3 * maxRepeatedFailures {
		wait, err := r.failed(stt.ErrorNoMatch.Message())
		if err != nil {
			t.Fatalf("Silence %d should not give up: %v", i, err)
		}
		if wait <= 0 {
			t.Errorf("Silence %d: expected a pause, got %v", i, wait)
		}
	}
}
