package stt

// Engine defines the interface for speech recognition engines.
//
// Engines deliver Listener callbacks serially from their own goroutine.
type Engine interface {
	// Available reports whether recognition can run on this host.
	Available() bool

	// SetListener registers the listener for recognition events.
	SetListener(l Listener)

	// StartListening begins a recognition session.
	StartListening(req Request) error

	// StopListening ends the current session. Results captured so far may
	// still be delivered.
	StopListening() error

	// Destroy releases the engine. The engine is unusable afterwards.
	Destroy() error
}

// Listener receives recognition events from an Engine.
type Listener interface {
	OnReadyForSpeech()
	OnBeginningOfSpeech()
	OnRmsChanged(rmsDB float32)
	OnBufferReceived(buf []byte)
	OnEndOfSpeech()
	OnError(code ErrorCode)
	OnResults(transcripts []string)
	OnPartialResults(transcripts []string)
	OnEvent(eventType int)
}
