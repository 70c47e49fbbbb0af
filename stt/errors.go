package stt

import "errors"

// Common errors for the speech input controller.
var (
	ErrUnavailable   = errors.New("speech recognition is not available")
	ErrShutdown      = errors.New("speech input has been shut down")
	ErrBusy          = errors.New("recognition session already running")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UnavailableMessage is reported through OnError when the host cannot run
// speech recognition.
const UnavailableMessage = "Speech recognition is not available on this device"

// ErrorCode is a recognition error reported by an Engine.
type ErrorCode int

// Recognition error codes.
const (
	ErrorNetworkTimeout          ErrorCode = 1
	ErrorNetwork                 ErrorCode = 2
	ErrorAudio                   ErrorCode = 3
	ErrorServer                  ErrorCode = 4
	ErrorClient                  ErrorCode = 5
	ErrorSpeechTimeout           ErrorCode = 6
	ErrorNoMatch                 ErrorCode = 7
	ErrorRecognizerBusy          ErrorCode = 8
	ErrorInsufficientPermissions ErrorCode = 9
)

// Message returns the human readable description of the code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorAudio:
		return "Audio recording error"
	case ErrorClient:
		return "Client side error"
	case ErrorInsufficientPermissions:
		return "Insufficient permissions"
	case ErrorNetwork:
		return "Network error"
	case ErrorNetworkTimeout:
		return "Network timeout"
	case ErrorNoMatch:
		return "No speech match found"
	case ErrorRecognizerBusy:
		return "Recognition service busy"
	case ErrorServer:
		return "Server error"
	case ErrorSpeechTimeout:
		return "No speech input"
	default:
		return "Unknown error occurred"
	}
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	return c.Message()
}
