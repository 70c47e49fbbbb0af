//go:build nocgo
// +build nocgo

package audio

import (
	"context"

	"github.com/charmbracelet/log"
)

// Player is a stub for builds without cgo.
type Player struct{}

// NewPlayer always fails with ErrUnavailable.
func NewPlayer(sampleRate int, logger *log.Logger) (*Player, error) {
	return nil, ErrUnavailable
}

// SampleRate returns zero.
func (p *Player) SampleRate() int {
	return 0
}

// Play implements Sink.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	return ErrUnavailable
}

// Close does nothing.
func (p *Player) Close() error {
	return nil
}
