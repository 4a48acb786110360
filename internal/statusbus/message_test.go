package statusbus

import (
	"strings"
	"testing"
)

func TestStatusEscapesPayload(t *testing.T) {
	line := Status(ColorBlue, "line one\nline two")
	if strings.Contains(string(line), "\n") {
		t.Fatalf("Status line must not contain a raw newline, got %q", line)
	}
	want := `STATUS:blue:line one\nline two`
	if string(line) != want {
		t.Errorf("Status() = %q, want %q", line, want)
	}
}

func TestProofStreamFormat(t *testing.T) {
	line := ProofStream(ColorBlue, StreamChunk, "- A.\n")
	want := `STATUS:blue:PROOF_STREAM:chunk:- A.\n`
	if string(line) != want {
		t.Errorf("ProofStream() = %q, want %q", line, want)
	}
}

func TestAudioAmpClamps(t *testing.T) {
	if got := AudioAmp(-5); got != "AUDIO_AMP:0" {
		t.Errorf("AudioAmp(-5) = %q, want AUDIO_AMP:0", got)
	}
	if got := AudioAmp(150); got != "AUDIO_AMP:100" {
		t.Errorf("AudioAmp(150) = %q, want AUDIO_AMP:100", got)
	}
	if got := AudioAmp(42); got != "AUDIO_AMP:42" {
		t.Errorf("AudioAmp(42) = %q, want AUDIO_AMP:42", got)
	}
}

func TestFinalTranscriptEscapesPayload(t *testing.T) {
	line := FinalTranscript("hello\nworld")
	if string(line) != `FINAL_TRANSCRIPT:hello\nworld` {
		t.Errorf("FinalTranscript() = %q", line)
	}
}

func TestStateMarshalsJSON(t *testing.T) {
	line, err := State(StateSnapshot{
		ProgramActive: true,
		AudioState:    string(AudioDictation),
		IsDictating:   true,
		CanDictate:    true,
		CurrentMode:   "dictate",
	})
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !strings.HasPrefix(string(line), "STATE:{") {
		t.Errorf("State() = %q, want STATE:{...}", line)
	}
	if strings.Contains(string(line), "\n") {
		t.Errorf("State() line must not contain raw newline")
	}
}

func TestTranscriptionFormat(t *testing.T) {
	line := Transcription("PROOFED", "Cleaned text.")
	want := "TRANSCRIPTION:PROOFED:Cleaned text."
	if string(line) != want {
		t.Errorf("Transcription() = %q, want %q", line, want)
	}
}
