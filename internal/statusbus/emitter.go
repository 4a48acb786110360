package statusbus

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/localdictate/engine/pkg/core/logging"
)

// Emitter is the single writer of the outbound transport. All outbound
// messages funnel through one Emitter instance so line integrity (one
// logical message per line, §8) holds even when multiple goroutines
// (Session Controller, Wake-Word Recogniser, LLM Streaming Engine) all
// produce status lines concurrently.
type Emitter struct {
	mu  sync.Mutex
	w   *bufio.Writer
	log *logging.Logger
}

// NewEmitter wraps w (normally os.Stdout) as the outbound transport.
func NewEmitter(w io.Writer, log *logging.Logger) *Emitter {
	return &Emitter{w: bufio.NewWriter(w), log: log}
}

// Emit writes one line, terminated by a single '\n', and flushes
// immediately so the UI collaborator observes it without buffering
// delay.
func (e *Emitter) Emit(line Line) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := fmt.Fprintln(e.w, string(line)); err != nil {
		return fmt.Errorf("write status line: %w", err)
	}
	return e.w.Flush()
}

// EmitStatus is a convenience wrapper around Emit(Status(...)).
func (e *Emitter) EmitStatus(color StatusColor, text string) error {
	return e.Emit(Status(color, text))
}

// EmitProofStream is a convenience wrapper around Emit(ProofStream(...)).
func (e *Emitter) EmitProofStream(color StatusColor, kind StreamKind, payload string) error {
	return e.Emit(ProofStream(color, kind, payload))
}
