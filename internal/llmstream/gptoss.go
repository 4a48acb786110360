package llmstream

import "strings"

// gptossState mirrors GPTOssStreamingParser's three-value state:
// nil/"cot"/"final" in the Python original.
type gptossState int

const (
	gptossStateNone gptossState = iota
	gptossStateAnalysis
	gptossStateFinal
)

// GPTOSSParser demultiplexes OpenAI's gpt-oss channel-tagged stream
// format. Direct port of gpt_oss_parser.py's GPTOssStreamingParser
// state machine: buffer everything, flip state on a start tag, flush
// accumulated text on <|end|>, repeat.
type GPTOSSParser struct {
	buf   string
	state gptossState
}

// NewGPTOSSParser builds a ready-to-use parser.
func NewGPTOSSParser() *GPTOSSParser {
	return &GPTOSSParser{}
}

// Feed processes one token and returns every Emission it makes safe to
// flush, in arrival order.
func (p *GPTOSSParser) Feed(token string) []Emission {
	if token == "" {
		return nil
	}
	p.buf += token

	var out []Emission
	for {
		if p.state == gptossStateNone {
			tag, state, ok := p.matchStartTag()
			if !ok {
				break
			}
			p.state = state
			p.buf = cutAfter(p.buf, tag)
			continue
		}

		if idx := strings.Index(p.buf, gptossEnd); idx >= 0 {
			chunk := p.buf[:idx]
			p.buf = p.buf[idx+len(gptossEnd):]
			out = append(out, Emission{Channel: p.channel(), Text: chunk})
			p.state = gptossStateNone
			continue
		}

		// No complete <|end|> yet: flush what's safe to flush (withhold
		// a suffix long enough to contain a partial <|end|>) and wait
		// for the next token.
		safe := safeEmitLen(p.buf, gptossEnd)
		if safe > 0 {
			out = append(out, Emission{Channel: p.channel(), Text: p.buf[:safe]})
			p.buf = p.buf[safe:]
		}
		break
	}
	return out
}

// Finalize flushes whatever remains buffered, in whatever channel was
// active.
func (p *GPTOSSParser) Finalize() []Emission {
	if p.buf == "" {
		return nil
	}
	channel := p.channel()
	text := p.buf
	p.buf = ""
	return []Emission{{Channel: channel, Text: text}}
}

func (p *GPTOSSParser) channel() Channel {
	if p.state == gptossStateAnalysis {
		return ChannelThinking
	}
	return ChannelResponse
}

// matchStartTag reports the earliest-starting tag of the four
// recognised start-tag spellings present in p.buf, preferring the
// longer (prefixed) form when both a long and short tag of the same
// kind are present, matching the Python original's `in` checks.
func (p *GPTOSSParser) matchStartTag() (tag string, state gptossState, ok bool) {
	analysisTag, hasAnalysis := firstOf(p.buf, gptossAnalysisLong, gptossAnalysisShort)
	finalTag, hasFinal := firstOf(p.buf, gptossFinalLong, gptossFinalShort)

	switch {
	case hasAnalysis && hasFinal:
		if strings.Index(p.buf, analysisTag) <= strings.Index(p.buf, finalTag) {
			return analysisTag, gptossStateAnalysis, true
		}
		return finalTag, gptossStateFinal, true
	case hasAnalysis:
		return analysisTag, gptossStateAnalysis, true
	case hasFinal:
		return finalTag, gptossStateFinal, true
	default:
		return "", gptossStateNone, false
	}
}

// firstOf returns the longer tag if present, else the shorter, mirroring
// the Python "long in buf or short in buf -> prefer long" check.
func firstOf(buf, long, short string) (string, bool) {
	if strings.Contains(buf, long) {
		return long, true
	}
	if strings.Contains(buf, short) {
		return short, true
	}
	return "", false
}

func cutAfter(s, marker string) string {
	idx := strings.Index(s, marker)
	if idx < 0 {
		return s
	}
	return s[idx+len(marker):]
}
