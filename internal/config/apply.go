package config

import "encoding/json"

// liveSettings mirrors the subset of configuration the UI collaborator
// may push over a CONFIG:<json> IPC message (spec.md §6.3). Fields are
// pointers so a partial document only touches the keys it sets — the
// same non-zero-merge idiom the teacher platform uses in
// settings_persistence.go, just against JSON instead of a settings file.
type liveSettings struct {
	LogLevel *string              `json:"logLevel"`
	Modes    map[Mode]ModeConfig  `json:"modes"`
	VAD      *VADConfig           `json:"vad"`
	Recorder *RecorderConfig      `json:"recorder"`
	LLM      *LLMConfig           `json:"llm"`
	Cache    *CacheConfig         `json:"cache"`
}

// ApplyJSON merges a CONFIG:<json> payload into cfg in place, leaving any
// field the payload omits untouched. Malformed JSON is a Protocol error
// per spec.md §7 and is returned for the caller to log and drop the
// message, never to crash the session.
func ApplyJSON(cfg *Config, raw []byte) error {
	var incoming liveSettings
	if err := json.Unmarshal(raw, &incoming); err != nil {
		return err
	}

	if incoming.LogLevel != nil {
		cfg.LogLevel = *incoming.LogLevel
	}
	if incoming.VAD != nil {
		cfg.VAD = *incoming.VAD
	}
	if incoming.Recorder != nil {
		cfg.Recorder = *incoming.Recorder
	}
	if incoming.LLM != nil {
		cfg.LLM = *incoming.LLM
	}
	if incoming.Cache != nil {
		cfg.Cache = *incoming.Cache
	}
	for mode, mc := range incoming.Modes {
		if cfg.Modes == nil {
			cfg.Modes = make(map[Mode]ModeConfig)
		}
		cfg.Modes[mode] = mc
	}

	return nil
}
