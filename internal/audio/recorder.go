package audio

import (
	"context"
	"sync"
	"time"
)

// Recorder is a Sink that keeps what it is given instead of playing it.
// Each Play takes the configured delay, so tests can interrupt it.
type Recorder struct {
	mu     sync.Mutex
	delay  time.Duration
	err    error
	played [][]byte
	cut    int
}

// NewRecorder returns a Recorder whose Play calls last delay.
func NewRecorder(delay time.Duration) *Recorder {
	return &Recorder{delay: delay}
}

// SetError makes Play fail with err. Pass nil to clear it.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Play implements Sink.
func (r *Recorder) Play(ctx context.Context, pcm []byte) error {
	r.mu.Lock()
	delay, err := r.delay, r.err
	r.mu.Unlock()

	if err != nil {
		return err
	}
	if len(trim(pcm)) == 0 {
		return ErrEmpty
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.mu.Lock()
		r.cut++
		r.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, append([]byte(nil), pcm...))
	return nil
}

// Played returns the buffers played to completion.
func (r *Recorder) Played() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.played...)
}

// Interrupted returns how many Play calls were cut short.
func (r *Recorder) Interrupted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cut
}
