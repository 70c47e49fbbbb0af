package piper

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dgnsrekt/voicectl/internal/audio"
)

// ModelInfo describes a Piper voice model, read from the JSON file that
// ships next to the .onnx file.
type ModelInfo struct {
	SampleRate int
	Language   string // e.g. "en_US", empty if the model does not say
	Speakers   int
}

type voiceConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
	NumSpeakers int `json:"num_speakers"`
}

// ConfigPath returns the path of the JSON file describing model.
func ConfigPath(model string) string {
	return model + ".json"
}

// LoadModelInfo reads the voice description for model. A missing file
// yields defaults with no language.
func LoadModelInfo(model string) (ModelInfo, error) {
	info := ModelInfo{SampleRate: audio.DefaultSampleRate, Speakers: 1}

	data, err := os.ReadFile(ConfigPath(model))
	if errors.Is(err, os.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("failed to read voice config: %w", err)
	}

	var vc voiceConfig
	if err := json.Unmarshal(data, &vc); err != nil {
		return info, fmt.Errorf("failed to parse voice config: %w", err)
	}
	if vc.Audio.SampleRate > 0 {
		info.SampleRate = vc.Audio.SampleRate
	}
	if vc.NumSpeakers > 0 {
		info.Speakers = vc.NumSpeakers
	}
	info.Language = vc.Language.Code
	return info, nil
}

// matchLocale reports whether a BCP 47 locale such as "en-US" names the
// same language as a Piper code such as "en_US".
func matchLocale(locale, code string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	}
	return norm(locale) == norm(code)
}
