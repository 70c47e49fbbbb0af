package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		name  string
		bytes int
		rate  int
		want  time.Duration
	}{
		{"one second", 44100, 22050, time.Second},
		{"half second", 22050, 22050, 500 * time.Millisecond},
		{"odd byte ignored", 3, 1, time.Second},
		{"empty", 0, 22050, 0},
		{"no rate", 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Duration(make([]byte, tt.bytes), tt.rate); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecorderPlay(t *testing.T) {
	r := NewRecorder(0)

	if err := r.Play(context.Background(), []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := r.Play(context.Background(), []byte{9}); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty for a partial sample, got %v", err)
	}

	played := r.Played()
	if len(played) != 1 || len(played[0]) != 4 {
		t.Errorf("Expected one 4 byte buffer, got %v", played)
	}
}

func TestRecorderInterrupt(t *testing.T) {
	r := NewRecorder(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- r.Play(ctx, []byte{0, 0})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Play did not return after cancel")
	}
	if r.Interrupted() != 1 {
		t.Errorf("Expected 1 interrupted play, got %d", r.Interrupted())
	}
	if len(r.Played()) != 0 {
		t.Error("Interrupted play should not be recorded")
	}
}

func TestRecorderError(t *testing.T) {
	r := NewRecorder(0)
	boom := errors.New("device lost")
	r.SetError(boom)

	if err := r.Play(context.Background(), []byte{0, 0}); !errors.Is(err, boom) {
		t.Errorf("Expected configured error, got %v", err)
	}
}
