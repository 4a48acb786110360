package llmstream

import (
	"context"
	"fmt"

	"github.com/localdictate/engine/internal/config"
	"github.com/localdictate/engine/internal/statusbus"
	"github.com/localdictate/engine/pkg/core/logging"
)

// familyParser is the common interface InlineParser and GPTOSSParser
// both satisfy, letting Engine drive either without caring which
// marker family is in play.
type familyParser interface {
	Feed(token string) []Emission
	Finalize() []Emission
}

// Message is one chat turn sent to the Client.
type Message struct {
	Role    string
	Content string
}

// Client streams chat completions token by token. ctx cancellation
// must stop the stream promptly — spec.md §8's cancellation
// promptness invariant depends on it.
type Client interface {
	StreamChat(ctx context.Context, messages []Message, family Family, onToken func(token string) error) error
}

// Result is the Engine's final outcome for one LLM pass.
type Result struct {
	Thinking    string
	Response    string
	LoopStopped bool
}

// Engine runs one streaming LLM pass: demultiplexing thinking/response
// channels, reassembling chunk boundaries, deduplicating streaming
// artefacts, watching for runaway repetition, and publishing
// PROOF_STREAM events to the Status Bus as it goes.
type Engine struct {
	client   Client
	emitter  *statusbus.Emitter
	llmCfg   config.LLMConfig
	log      *logging.Logger
}

// New builds an Engine.
func New(client Client, emitter *statusbus.Emitter, llmCfg config.LLMConfig) *Engine {
	return &Engine{client: client, emitter: emitter, llmCfg: llmCfg, log: logging.New("llmstream")}
}

// Run streams one chat completion and returns the demultiplexed
// result. family is pinned up front by the caller (the Session
// Controller picks FamilyGPTOSS when the model ID contains the
// configured gpt-oss tag, and FamilyThinkTagEN otherwise).
func (e *Engine) Run(ctx context.Context, messages []Message, family Family) (Result, error) {
	parser := e.newParser(family)
	seeds := e.llmCfg.SeedPhrases[string(family)]
	if seeds == nil {
		seeds = e.llmCfg.SeedPhrases["default"]
	}
	detector := NewRepetitionDetector(seeds, e.llmCfg.MaxRepetitions)

	var thinking, response string
	loopStopped := false

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := e.client.StreamChat(streamCtx, messages, family, func(token string) error {
		for _, em := range parser.Feed(token) {
			switch em.Channel {
			case ChannelThinking:
				thinking = JoinChunk(thinking, em.Text)
				thinking = DedupSelfHyphenated(DedupWordPairs(DedupHyphenJoins(thinking)))
				_ = e.emitter.EmitProofStream(statusbus.ColorBlue, statusbus.StreamThinking, em.Text)
			case ChannelResponse:
				response = JoinChunk(response, em.Text)
				response = DedupSelfHyphenated(DedupWordPairs(DedupHyphenJoins(response)))
				_ = e.emitter.EmitProofStream(statusbus.ColorBlue, statusbus.StreamChunk, em.Text)

				if loop, seed := detector.Feed(em.Text); loop {
					e.log.Warn("repetition loop detected, terminating stream", "seed", seed)
					loopStopped = true
					cancel()
					return fmt.Errorf("repetition loop on seed phrase %q", seed)
				}
			}
		}
		return nil
	})

	for _, em := range parser.Finalize() {
		switch em.Channel {
		case ChannelThinking:
			thinking = JoinChunk(thinking, em.Text)
		case ChannelResponse:
			response = JoinChunk(response, em.Text)
		}
	}

	_ = e.emitter.EmitProofStream(statusbus.ColorBlue, statusbus.StreamEnd, "")

	// Bullet-break normalization runs once, on the assembled artifact,
	// rather than per-chunk: it reasons about line structure, which only
	// exists once the full text is in hand.
	thinking = NormalizeBulletBreaks(thinking)
	response = NormalizeBulletBreaks(response)

	if loopStopped {
		return Result{Thinking: thinking, Response: response, LoopStopped: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("stream chat: %w", err)
	}
	return Result{Thinking: thinking, Response: response}, nil
}

func (e *Engine) newParser(family Family) familyParser {
	if family == FamilyGPTOSS {
		return NewGPTOSSParser()
	}
	return NewInlineParser(family)
}
