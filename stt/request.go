package stt

import "fmt"

// LanguageModel selects the recognizer's language model.
type LanguageModel string

const (
	// LanguageModelFreeForm is tuned for dictation.
	LanguageModelFreeForm LanguageModel = "free_form"
	// LanguageModelWebSearch is tuned for short search-like phrases.
	LanguageModelWebSearch LanguageModel = "web_search"
)

// Request configures one recognition session.
type Request struct {
	LanguageModel  LanguageModel
	Language       string // BCP 47 tag, e.g. "en-US"
	PartialResults bool
	MaxResults     int
}

// DefaultRequest returns the request issued by StartListening when no
// configuration overrides it.
func DefaultRequest() Request {
	return Request{
		LanguageModel:  LanguageModelFreeForm,
		Language:       "en-US",
		PartialResults: true,
		MaxResults:     1,
	}
}

// Validate checks if the request is usable.
func (r Request) Validate() error {
	switch r.LanguageModel {
	case LanguageModelFreeForm, LanguageModelWebSearch:
	default:
		return fmt.Errorf("%w: unknown language model %q", ErrInvalidConfig, r.LanguageModel)
	}
	if r.Language == "" {
		return fmt.Errorf("%w: language cannot be empty", ErrInvalidConfig)
	}
	if r.MaxResults < 1 {
		return fmt.Errorf("%w: max results must be at least 1, got %d", ErrInvalidConfig, r.MaxResults)
	}
	return nil
}
