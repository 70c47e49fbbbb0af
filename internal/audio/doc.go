// Package audio plays raw PCM produced by speech engines through the
// system audio device using oto/v3.
//
// Builds with the nocgo tag get a stub player that always fails with
// ErrUnavailable.
package audio
