package llmstream

import "strings"

// Channel identifies which demultiplexed output a piece of text
// belongs to.
type Channel int

const (
	ChannelNone Channel = iota
	ChannelThinking
	ChannelResponse
)

// Emission is one piece of channel-tagged text the parser has
// determined is safe to flush downstream.
type Emission struct {
	Channel Channel
	Text    string
}

// InlineParser demultiplexes a token stream against a single
// open/close tag pair (the <think>/</think> and <思考过程>/</思考过程>
// families). It buffers across chunk boundaries so a marker split
// between two tokens (e.g. "<th" + "ink>") is still recognised —
// spec.md's tail-buffer requirement.
//
// Grounded on llm_handler.py's inline handling: text before the open
// tag is itself response content (the model may emit a short preamble
// before entering its thinking block), text between open and close is
// thinking, text after close is response.
type InlineParser struct {
	open, close string
	state       Channel // ChannelResponse outside the tags, ChannelThinking between open and close
	tail        string  // unresolved buffered text that might contain a partial marker
}

// NewInlineParser builds a parser for the given family. Only
// FamilyThinkTagEN and FamilyThinkTagCN are valid; FamilyGPTOSS uses
// GPTOSSParser instead.
func NewInlineParser(family Family) *InlineParser {
	m := inlineMarkerSets[family]
	return &InlineParser{open: m.open, close: m.close, state: ChannelResponse}
}

// Feed processes one token and returns every Emission it makes safe to
// flush. The parser always withholds a suffix long enough to contain
// the start of a not-yet-complete marker, so it never prematurely
// emits content whose last characters turn out to belong to a marker
// in the next token.
func (p *InlineParser) Feed(token string) []Emission {
	p.tail += token

	var out []Emission
	for {
		switch p.state {
		case ChannelResponse:
			if idx := strings.Index(p.tail, p.open); idx >= 0 {
				if idx > 0 {
					out = append(out, Emission{Channel: ChannelResponse, Text: p.tail[:idx]})
				}
				p.tail = p.tail[idx+len(p.open):]
				p.state = ChannelThinking
				continue
			}
			safe := safeEmitLen(p.tail, p.open)
			if safe > 0 {
				out = append(out, Emission{Channel: ChannelResponse, Text: p.tail[:safe]})
				p.tail = p.tail[safe:]
			}
		case ChannelThinking:
			if idx := strings.Index(p.tail, p.close); idx >= 0 {
				if idx > 0 {
					out = append(out, Emission{Channel: ChannelThinking, Text: p.tail[:idx]})
				}
				p.tail = p.tail[idx+len(p.close):]
				p.state = ChannelResponse
				continue
			}
			safe := safeEmitLen(p.tail, p.close)
			if safe > 0 {
				out = append(out, Emission{Channel: ChannelThinking, Text: p.tail[:safe]})
				p.tail = p.tail[safe:]
			}
		}
		break
	}
	return out
}

// Finalize flushes any remaining buffered text as a final emission in
// the parser's current channel, for use when the stream ends without
// a trailing marker.
func (p *InlineParser) Finalize() []Emission {
	if p.tail == "" {
		return nil
	}
	channel := p.state
	if channel == ChannelNone {
		channel = ChannelResponse
	}
	text := p.tail
	p.tail = ""
	return []Emission{{Channel: channel, Text: text}}
}

// safeEmitLen returns how many leading bytes of buf are guaranteed not
// to be the prefix of marker — i.e. how much may be flushed now
// without risking that the next token completes a marker that started
// in the withheld suffix.
func safeEmitLen(buf, marker string) int {
	maxOverlap := len(marker) - 1
	if maxOverlap > len(buf) {
		maxOverlap = len(buf)
	}
	for overlap := maxOverlap; overlap > 0; overlap-- {
		if strings.HasSuffix(buf, marker[:overlap]) {
			return len(buf) - overlap
		}
	}
	return len(buf)
}
