package statusbus

import (
	"encoding/json"
	"fmt"
)

// StatusColor is one of the six wire colors spec.md §6.1 permits on a
// STATUS line.
type StatusColor string

const (
	ColorGrey   StatusColor = "grey"
	ColorBlue   StatusColor = "blue"
	ColorGreen  StatusColor = "green"
	ColorOrange StatusColor = "orange"
	ColorRed    StatusColor = "red"
	ColorYellow StatusColor = "yellow"
)

// StreamKind identifies the PROOF_STREAM multiplex kind.
type StreamKind string

const (
	StreamThinking StreamKind = "thinking"
	StreamChunk    StreamKind = "chunk"
	StreamEnd      StreamKind = "end"
)

// AudioState is the STATE message's audioState enum.
type AudioState string

const (
	AudioActivation AudioState = "activation"
	AudioDictation  AudioState = "dictation"
	AudioProcessing AudioState = "processing"
	AudioInactive   AudioState = "inactive"
)

// StateSnapshot is the JSON payload of a STATE: message.
type StateSnapshot struct {
	ProgramActive    bool   `json:"programActive"`
	AudioState       string `json:"audioState"`
	IsDictating      bool   `json:"isDictating"`
	IsProofingActive bool   `json:"isProofingActive"`
	CanDictate       bool   `json:"canDictate"`
	CurrentMode      string `json:"currentMode"` // "dictate" | "proofread" | "letter" | ""
}

// Line renders one complete, single-line outbound message. It never
// contains an embedded raw newline; any caller-supplied payload text
// has already been escaped via escape().
type Line string

// OneShot messages.
func PythonBackendReady() Line { return Line("PYTHON_BACKEND_READY") }
func GetConfig() Line          { return Line("GET_CONFIG") }

// Models announces the available ASR/LLM model identifiers.
func Models(payload any) (Line, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal models payload: %w", err)
	}
	return Line("MODELS:" + string(raw)), nil
}

// ModelSelected announces a mode<->model binding change.
func ModelSelected(mode, modelID string) Line {
	return Line(fmt.Sprintf("MODEL_SELECTED:%s:%s", mode, modelID))
}

// State renders a STATE: snapshot line.
func State(s StateSnapshot) (Line, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal state snapshot: %w", err)
	}
	return Line("STATE:" + string(raw)), nil
}

// Status renders a free-form STATUS:<color>:<text> line. text is
// escaped so it can never split the transport into multiple lines.
func Status(color StatusColor, text string) Line {
	return Line(fmt.Sprintf("STATUS:%s:%s", color, escape(text)))
}

// ProofStream renders a STATUS:<color>:PROOF_STREAM:<kind>:<payload>
// line, the LLM streaming multiplex. payload is escaped.
func ProofStream(color StatusColor, kind StreamKind, payload string) Line {
	return Line(fmt.Sprintf("STATUS:%s:PROOF_STREAM:%s:%s", color, kind, escape(payload)))
}

// AudioAmp renders an amplitude sample, clamped to 0..100.
func AudioAmp(level int) Line {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	return Line(fmt.Sprintf("AUDIO_AMP:%d", level))
}

// FinalTranscript renders the dictate-mode final text line.
func FinalTranscript(text string) Line {
	return Line("FINAL_TRANSCRIPT:" + escape(text))
}

// DictationPreview renders the raw pre-LLM transcript line.
func DictationPreview(text string) Line {
	return Line("DICTATION_PREVIEW:" + escape(text))
}

// Transcription renders the cleaned, final LLM artifact line for
// proofread or letter mode.
func Transcription(kind string, text string) Line {
	return Line(fmt.Sprintf("TRANSCRIPTION:%s:%s", kind, escape(text)))
}

// VocabResponse echoes a VOCABULARY_API RPC response.
func VocabResponse(id string, payload any) (Line, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal vocab response: %w", err)
	}
	return Line(fmt.Sprintf("VOCAB_RESPONSE:%s:%s", id, string(raw))), nil
}
