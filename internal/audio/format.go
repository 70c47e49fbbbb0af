package audio

import (
	"context"
	"errors"
	"time"
)

// Audio format shared by cgo and nocgo builds. Engines emit signed 16-bit
// little endian mono PCM.
const (
	// DefaultSampleRate is used when a voice model does not declare one.
	DefaultSampleRate = 22050
	// Channels is the number of audio channels (1 = mono)
	Channels = 1
	// BitDepth is the bit depth per sample
	BitDepth = 16
	// BytesPerSample is the number of bytes per sample
	BytesPerSample = BitDepth / 8
)

// ErrUnavailable is returned when no audio device can be opened.
var ErrUnavailable = errors.New("audio playback not available")

// ErrEmpty is returned when asked to play no samples.
var ErrEmpty = errors.New("audio data is empty")

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("audio player is closed")

// Sink plays PCM audio. Play blocks until playback finishes or ctx is done,
// in which case playback is cut short and ctx.Err() is returned.
type Sink interface {
	Play(ctx context.Context, pcm []byte) error
}

// Duration returns how long pcm takes to play at sampleRate.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / (Channels * BytesPerSample)
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// trim drops a trailing odd byte so the buffer holds whole samples.
func trim(pcm []byte) []byte {
	return pcm[:len(pcm)-len(pcm)%(Channels*BytesPerSample)]
}
