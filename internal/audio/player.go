//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// Format is the oto sample format matching BitDepth.
const Format = oto.FormatSignedInt16LE

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func openContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: Channels,
			Format:       Format,
			BufferSize:   100 * time.Millisecond,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("%w: %w", ErrUnavailable, err)
			return
		}
		<-ready
		otoCtx, otoRate = ctx, sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("audio device already open at %d Hz, cannot play %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// Player plays PCM on the system audio device. Calls to Play are
// serialized.
type Player struct {
	ctx        *oto.Context
	sampleRate int
	logger     *log.Logger

	mu     sync.Mutex
	closed bool
}

// NewPlayer opens the audio device at sampleRate.
func NewPlayer(sampleRate int, logger *log.Logger) (*Player, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if logger == nil {
		logger = log.Default().WithPrefix("audio")
	}
	ctx, err := openContext(sampleRate)
	if err != nil {
		return nil, err
	}
	logger.Debug("Audio device opened", "sample_rate", sampleRate)
	return &Player{ctx: ctx, sampleRate: sampleRate, logger: logger}, nil
}

// SampleRate returns the rate the device was opened at.
func (p *Player) SampleRate() int {
	return p.sampleRate
}

// Play implements Sink.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	pcm = trim(pcm)
	if len(pcm) == 0 {
		return ErrEmpty
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	p.logger.Debug("Playing audio", "bytes", len(pcm), "duration", Duration(pcm, p.sampleRate))

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}

// Close releases the player. The oto context stays open for the life of the
// process, so a later NewPlayer at the same rate succeeds.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
