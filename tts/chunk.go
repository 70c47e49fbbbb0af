package tts

import (
	"iter"
	"slices"
)

// DefaultMaxChunkSize is the largest utterance, in characters, handed to an
// engine in one Speak call.
const DefaultMaxChunkSize = 4000

// Chunks splits text into utterances of at most maxChunkSize characters.
//
// Each window is cut after the last sentence terminator (. ! ? or newline)
// it contains, together with any spaces that directly follow it. Without a
// terminator the window is cut before its last space, and without a space
// it is cut at the window boundary. Concatenating the chunks yields text
// unchanged. The sequence can be iterated any number of times.
func Chunks(text string, maxChunkSize int) iter.Seq[string] {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	return func(yield func(string) bool) {
		if text == "" {
			return
		}

		runes := []rune(text)
		if len(runes) <= maxChunkSize {
			yield(text)
			return
		}

		start := 0
		for start < len(runes) {
			end := min(start+maxChunkSize, len(runes))
			cut := end
			if end < len(runes) {
				cut = splitPoint(runes, start, end)
			}
			if !yield(string(runes[start:cut])) {
				return
			}
			start = cut
		}
	}
}

// SplitChunks returns the chunks of text as a slice.
func SplitChunks(text string, maxChunkSize int) []string {
	return slices.Collect(Chunks(text, maxChunkSize))
}

// splitPoint finds where to cut the window runes[start:end]. The result is
// always in (start, end].
func splitPoint(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		if isSentenceEnd(runes[i]) {
			cut := i + 1
			for cut < end && runes[cut] == ' ' {
				cut++
			}
			return cut
		}
	}

	for i := end - 1; i > start; i-- {
		if runes[i] == ' ' {
			return i
		}
	}

	// mid-word fallback
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}
