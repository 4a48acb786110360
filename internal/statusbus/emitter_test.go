package statusbus

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/localdictate/engine/pkg/core/logging"
)

func TestEmitterWritesSingleLine(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, logging.New("test"))

	if err := e.Emit(Status(ColorGreen, "ready")); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one newline, got %q", out)
	}
	if out != "STATUS:green:ready\n" {
		t.Errorf("Emit() wrote %q", out)
	}
}

func TestEmitterEachMessageOnItsOwnLine(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, logging.New("test"))

	_ = e.Emit(Status(ColorBlue, "one"))
	_ = e.Emit(Status(ColorBlue, "two\nembedded"))

	scanner := bufio.NewScanner(&buf)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 transport lines, got %d: %v", len(lines), lines)
	}
	if lines[1] != `STATUS:blue:two\nembedded` {
		t.Errorf("line 2 = %q", lines[1])
	}
}
