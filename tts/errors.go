package tts

import "errors"

// Common errors for the speech output controller.
var (
	// Controller errors
	ErrNotInitialized = errors.New("speech output not initialized")
	ErrDisabled       = errors.New("speech output is disabled")
	ErrEmptyText      = errors.New("empty text provided")
	ErrShutdown       = errors.New("speech output has been shut down")

	// Initialization errors
	ErrLanguageMissingData  = errors.New("language data missing")
	ErrLanguageNotSupported = errors.New("language not supported")
	ErrNoEngine             = errors.New("no speech engine provided")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)
