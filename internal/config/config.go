// Package config loads the dictation engine's bootstrap configuration
// and applies live updates pushed by the UI collaborator over IPC.
//
// Two layers, two formats, mirroring the teacher platform: a local TOML
// file read once at startup (github.com/BurntSushi/toml, grounded on
// foundation/core/config), and a JSON document applied at runtime
// whenever a CONFIG:<json> message arrives (grounded on
// voiceassistant/settings_persistence.go's merge-over-defaults pattern).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Mode identifies one of the three dictation modes.
type Mode string

const (
	ModeDictate   Mode = "dictate"
	ModeProofread Mode = "proofread"
	ModeLetter    Mode = "letter"
)

// PostProcessRules configures text cleanup applied before delivery,
// regardless of mode (spec.md §3 ModeConfig.post_processing_rules).
type PostProcessRules struct {
	FilterFillerWords bool     `toml:"filter_filler_words" json:"filterFillerWords"`
	FillerWords       []string `toml:"filler_words" json:"fillerWords"`
}

// ModeConfig holds the per-mode configuration described in spec.md §3.
type ModeConfig struct {
	WakeWords        []string         `toml:"wake_words" json:"wakeWords"`
	PromptTemplate   string           `toml:"prompt_template" json:"promptTemplate"`
	ModelID          string           `toml:"model_id" json:"modelId"`
	PostProcessRules PostProcessRules `toml:"post_process" json:"postProcessRules"`
}

// AudioConfig configures the Audio Source glue (§4's Audio Source leaf).
type AudioConfig struct {
	SampleRate      int    `toml:"sample_rate" json:"sample_rate"`
	FrameDurationMs int    `toml:"frame_duration_ms" json:"frame_duration_ms"`
	InputDevice     string `toml:"input_device" json:"input_device"`
}

// VADConfig configures the Frame Classifier (§4.1).
type VADConfig struct {
	Mode                   int `toml:"mode" json:"mode"`
	SkipAmplitudeThreshold int `toml:"skip_amplitude_threshold" json:"skip_amplitude_threshold"`
	SkipConsecutiveFrames  int `toml:"skip_consecutive_frames" json:"skip_consecutive_frames"`
}

// RecorderConfig configures the Utterance Recorder (§4.3).
type RecorderConfig struct {
	MaxUtteranceFrames        int     `toml:"max_utterance_frames" json:"max_utterance_frames"`
	AutoStopSilenceSeconds    float64 `toml:"auto_stop_silence_seconds" json:"auto_stop_silence_seconds"`
	ProgressiveCleanupSeconds float64 `toml:"progressive_cleanup_seconds" json:"progressive_cleanup_seconds"`
	HardCapSeconds            float64 `toml:"hard_cap_seconds" json:"hard_cap_seconds"`
}

// LLMConfig configures the LLM Streaming Engine (§4.5).
type LLMConfig struct {
	TokenIdleTimeoutSeconds int                 `toml:"token_idle_timeout_seconds" json:"token_idle_timeout_seconds"`
	MaxRepetitions          int                 `toml:"max_repetitions" json:"max_repetitions"`
	SeedPhrases             map[string][]string `toml:"seed_phrases" json:"seed_phrases"`
	GPTOSSFamilyTag         string              `toml:"gpt_oss_family_tag" json:"gpt_oss_family_tag"`
}

// TimeoutsConfig configures the remaining long-running operation timeouts (§5).
type TimeoutsConfig struct {
	TranscriptionSeconds int `toml:"transcription_seconds" json:"transcription_seconds"`
}

// CacheConfig configures the optional fingerprinted-utterance cache (§3, §9).
type CacheConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// Config is the engine's full bootstrap configuration.
type Config struct {
	LogLevel string                `toml:"log_level"`
	Audio    AudioConfig           `toml:"audio"`
	VAD      VADConfig             `toml:"vad"`
	Recorder RecorderConfig        `toml:"recorder"`
	LLM      LLMConfig             `toml:"llm"`
	Timeouts TimeoutsConfig        `toml:"timeouts"`
	Cache    CacheConfig           `toml:"cache"`
	Modes    map[Mode]ModeConfig   `toml:"modes"`
}

// Default returns the engine's default configuration, matching the
// numeric defaults spec.md calls out explicitly (VAD_SKIP_AMPLITUDE_THRESHOLD=5,
// VAD_SKIP_CONSECUTIVE_FRAMES=10, MAX_UTTERANCE_FRAMES≈600,
// AUTO_STOP_SILENCE_SECONDS=1.5, max_repetitions=3).
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			SampleRate:      16000,
			FrameDurationMs: 20,
			InputDevice:     "default",
		},
		VAD: VADConfig{
			Mode:                   2,
			SkipAmplitudeThreshold: 5,
			SkipConsecutiveFrames:  10,
		},
		Recorder: RecorderConfig{
			MaxUtteranceFrames:        600,
			AutoStopSilenceSeconds:    1.5,
			ProgressiveCleanupSeconds: 60,
			HardCapSeconds:            150,
		},
		LLM: LLMConfig{
			TokenIdleTimeoutSeconds: 30,
			MaxRepetitions:          3,
			SeedPhrases: map[string][]string{
				"default": {"The correct term is"},
			},
			GPTOSSFamilyTag: "gpt-oss",
		},
		Timeouts: TimeoutsConfig{
			TranscriptionSeconds: 60,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "dictation-cache.db",
		},
		Modes: map[Mode]ModeConfig{
			ModeDictate: {
				WakeWords: []string{"note"},
			},
			ModeProofread: {
				WakeWords:      []string{"proofread"},
				PromptTemplate: "Correct spelling and grammar in the following dictation.",
				ModelID:        "local-llm",
			},
			ModeLetter: {
				WakeWords:      []string{"letter"},
				PromptTemplate: "Format the following dictation as a professional letter.",
				ModelID:        "local-llm",
			},
		},
	}
}

// Load reads a bootstrap TOML file on top of Default, so a partial file
// only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// ModePrecedence is the tie-break order from spec.md §4.2 when two wake
// phrases match within the same recognition window: proofread beats
// letter beats dictate. Documented here, not buried in the recognizer,
// since it is a configuration decision a deployer might reasonably want
// to see alongside the rest of the mode setup.
var ModePrecedence = []Mode{ModeProofread, ModeLetter, ModeDictate}
