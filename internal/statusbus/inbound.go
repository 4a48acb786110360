package statusbus

import (
	"fmt"
	"strings"
)

// CommandKind enumerates the accepted inbound command prefixes from
// spec.md §6.2.
type CommandKind string

const (
	CmdStartDictate   CommandKind = "start_dictate"
	CmdStartProofread CommandKind = "start_proofread"
	CmdStartLetter    CommandKind = "start_letter"
	CmdStopDictation  CommandKind = "STOP_DICTATION"
	CmdAbortDictation CommandKind = "ABORT_DICTATION"
	CmdToggleActive   CommandKind = "TOGGLE_ACTIVE"
	CmdRestart        CommandKind = "RESTART"
	CmdShutdown       CommandKind = "SHUTDOWN"
	CmdConfig         CommandKind = "CONFIG"
	CmdModelsRequest  CommandKind = "MODELS_REQUEST"
	CmdVocabularyAPI  CommandKind = "VOCABULARY_API"
)

// Command is one parsed inbound line.
type Command struct {
	Kind    CommandKind
	Payload string // raw JSON for CONFIG; "<id>:<json>" body for VOCABULARY_API
}

var bareCommands = map[string]CommandKind{
	string(CmdStartDictate):   CmdStartDictate,
	string(CmdStartProofread): CmdStartProofread,
	string(CmdStartLetter):    CmdStartLetter,
	string(CmdStopDictation):  CmdStopDictation,
	string(CmdAbortDictation): CmdAbortDictation,
	string(CmdToggleActive):   CmdToggleActive,
	string(CmdRestart):        CmdRestart,
	string(CmdShutdown):       CmdShutdown,
	string(CmdModelsRequest):  CmdModelsRequest,
}

// ParseCommand decodes one inbound IPC line. A malformed or
// unrecognised line is a Protocol error per spec.md §7: the caller is
// expected to log it, drop it, and emit a yellow warning status — this
// function only classifies, it never emits.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")

	if kind, ok := bareCommands[line]; ok {
		return Command{Kind: kind}, nil
	}

	if payload, ok := strings.CutPrefix(line, "CONFIG:"); ok {
		return Command{Kind: CmdConfig, Payload: payload}, nil
	}

	if payload, ok := strings.CutPrefix(line, "VOCABULARY_API:"); ok {
		return Command{Kind: CmdVocabularyAPI, Payload: payload}, nil
	}

	return Command{}, fmt.Errorf("unrecognised inbound command: %q", line)
}

// SplitVocabularyAPI splits a VOCABULARY_API payload of the form
// "<id>:<json>" into its id and JSON parts.
func SplitVocabularyAPI(payload string) (id string, json string, err error) {
	idx := strings.Index(payload, ":")
	if idx == -1 {
		return "", "", fmt.Errorf("malformed VOCABULARY_API payload: %q", payload)
	}
	return payload[:idx], payload[idx+1:], nil
}
