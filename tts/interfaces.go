package tts

// Engine defines the interface for speech synthesis engines.
//
// Engines deliver progress callbacks serially from their own goroutine.
type Engine interface {
	// Init starts acquiring the engine. The returned channel receives
	// exactly one value (nil on success) and is then closed.
	Init() <-chan error

	// SetLanguage selects the voice locale, e.g. "en-US".
	SetLanguage(locale string) LanguageStatus

	// SetPitch adjusts the voice pitch (1.0 = normal).
	SetPitch(pitch float32) error

	// SetRate adjusts the speech rate (1.0 = normal).
	SetRate(rate float32) error

	// SetProgressListener registers the listener for utterance events.
	SetProgressListener(l ProgressListener)

	// Speak submits one utterance. QueueFlush drops anything pending.
	Speak(text string, mode QueueMode, utteranceID string) error

	// Stop halts the current utterance and discards the queue.
	Stop() error

	// IsSpeaking reports whether audio is being rendered right now.
	IsSpeaking() bool

	// Shutdown releases the engine. The engine is unusable afterwards.
	Shutdown() error
}

// ProgressListener receives utterance lifecycle events from an Engine.
type ProgressListener interface {
	OnStart(utteranceID string)
	OnDone(utteranceID string)
	OnError(utteranceID string, code int)
}

// QueueMode controls how a new utterance interacts with pending ones.
type QueueMode int

const (
	// QueueFlush discards pending utterances before enqueueing.
	QueueFlush QueueMode = iota
	// QueueAdd appends to the pending utterances.
	QueueAdd
)

// String returns the string representation of the queue mode.
func (m QueueMode) String() string {
	switch m {
	case QueueFlush:
		return "flush"
	case QueueAdd:
		return "add"
	default:
		return "unknown"
	}
}

// LanguageStatus is the result of selecting a locale on an engine.
type LanguageStatus int

const (
	// LangAvailable means the locale is supported and its data installed.
	LangAvailable LanguageStatus = iota
	// LangMissingData means the locale is known but its data is missing.
	LangMissingData
	// LangNotSupported means the engine cannot speak the locale.
	LangNotSupported
)

// String returns the string representation of the language status.
func (s LanguageStatus) String() string {
	switch s {
	case LangAvailable:
		return "available"
	case LangMissingData:
		return "missing data"
	case LangNotSupported:
		return "not supported"
	default:
		return "unknown"
	}
}

// Engine error codes reported through ProgressListener.OnError.
const (
	ErrorCodeSynthesis    = -3
	ErrorCodeService      = -4
	ErrorCodeOutput       = -5
	ErrorCodeInvalidInput = -8
)
