// Package llmstream is the LLM Streaming Engine (spec.md §4.5): it
// demultiplexes a raw token stream into "thinking" and "response"
// channels, handles the closed set of model-specific channel marker
// families, reassembles chunk-boundary artefacts without injecting
// spurious whitespace, deduplicates word/hyphen joins, and detects
// runaway repetition against a small set of per-family seed phrases.
//
// Grounded on original_source/src/llm/llm_handler.py's <think>/
// <思考过程> inline-tag handling and src/llm/gpt_oss_parser.py's
// channel-tag state machine; the teacher platform's client.OllamaClient
// supplies the token-by-token HTTP streaming shape this engine
// consumes.
package llmstream

import "strings"

// Family identifies a closed set of marker tuples a model uses to
// delimit its thinking channel from its response channel. Per
// spec.md §9: "Plug-in thinking-tag formats are a closed set of marker
// tuples keyed by model family; adding a family is additive."
type Family string

const (
	// FamilyThinkTagEN is the Qwen/DeepSeek-style reasoning model family:
	// <think>...</think> around the whole thinking block, English tags
	// only.
	FamilyThinkTagEN Family = "think-en"

	// FamilyThinkTagCN is the same shape with the Chinese tag pair some
	// model checkpoints emit instead of the English one.
	FamilyThinkTagCN Family = "think-cn"

	// FamilyGPTOSS is OpenAI's gpt-oss channel-tagged format:
	// <|channel|>analysis<|message|>...<|end|> for thinking,
	// <|channel|>final<|message|>...<|end|> for the response, optionally
	// prefixed by <|start|>assistant.
	FamilyGPTOSS Family = "gpt-oss"
)

// marker tuple for the inline <tag>...</tag> families.
type inlineMarkers struct {
	open  string
	close string
}

var inlineMarkerSets = map[Family]inlineMarkers{
	FamilyThinkTagEN: {open: "<think>", close: "</think>"},
	FamilyThinkTagCN: {open: "<思考过程>", close: "</思考过程>"},
}

// gpt-oss channel tags, long and short forms (a provider may omit the
// <|start|>assistant prefix on continuation chunks).
const (
	gptossAnalysisLong  = "<|start|>assistant<|channel|>analysis<|message|>"
	gptossFinalLong     = "<|start|>assistant<|channel|>final<|message|>"
	gptossAnalysisShort = "<|channel|>analysis<|message|>"
	gptossFinalShort    = "<|channel|>final<|message|>"
	gptossEnd           = "<|end|>"
)

// DetectFamily inspects a chunk of already-seen buffered text and
// reports which marker family it matches, if any, so a caller holding
// the first chunk containing a recognisable marker can pick which
// parser to drive for the rest of the stream.
func DetectFamily(buffered string) (Family, bool) {
	switch {
	case containsAny(buffered, gptossAnalysisLong, gptossFinalLong, gptossAnalysisShort, gptossFinalShort):
		return FamilyGPTOSS, true
	case containsAny(buffered, inlineMarkerSets[FamilyThinkTagEN].open):
		return FamilyThinkTagEN, true
	case containsAny(buffered, inlineMarkerSets[FamilyThinkTagCN].open):
		return FamilyThinkTagCN, true
	default:
		return "", false
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
