package llmstream

import "testing"

func collectText(emissions []Emission, ch Channel) string {
	out := ""
	for _, e := range emissions {
		if e.Channel == ch {
			out += e.Text
		}
	}
	return out
}

func TestInlineParserSingleTokenFullMarkers(t *testing.T) {
	p := NewInlineParser(FamilyThinkTagEN)
	emissions := p.Feed("<think>I should check</think>The answer is 4.")

	if got := collectText(emissions, ChannelThinking); got != "I should check" {
		t.Errorf("thinking = %q", got)
	}
	if got := collectText(emissions, ChannelResponse); got != "The answer is 4." {
		t.Errorf("response = %q", got)
	}
}

func TestInlineParserMarkerSplitAcrossTokens(t *testing.T) {
	p := NewInlineParser(FamilyThinkTagEN)

	var all []Emission
	for _, tok := range []string{"<th", "ink>", "reasoning", "</th", "ink>", "answer"} {
		all = append(all, p.Feed(tok)...)
	}
	all = append(all, p.Finalize()...)

	if got := collectText(all, ChannelThinking); got != "reasoning" {
		t.Errorf("thinking = %q, want %q", got, "reasoning")
	}
	if got := collectText(all, ChannelResponse); got != "answer" {
		t.Errorf("response = %q, want %q", got, "answer")
	}
}

func TestInlineParserPreambleBeforeOpenTagIsResponse(t *testing.T) {
	p := NewInlineParser(FamilyThinkTagEN)
	emissions := p.Feed("Sure, ")
	emissions = append(emissions, p.Feed("<think>hmm</think>")...)
	emissions = append(emissions, p.Feed("done")...)

	if got := collectText(emissions, ChannelResponse); got != "Sure, done" {
		t.Errorf("response = %q, want %q", got, "Sure, done")
	}
	if got := collectText(emissions, ChannelThinking); got != "hmm" {
		t.Errorf("thinking = %q, want %q", got, "hmm")
	}
}

func TestInlineParserChineseTagFamily(t *testing.T) {
	p := NewInlineParser(FamilyThinkTagCN)
	emissions := p.Feed("<思考过程>内部推理</思考过程>最终答案")

	if got := collectText(emissions, ChannelThinking); got != "内部推理" {
		t.Errorf("thinking = %q", got)
	}
	if got := collectText(emissions, ChannelResponse); got != "最终答案" {
		t.Errorf("response = %q", got)
	}
}

func TestInlineParserFinalizeFlushesHeldBackPartialMarker(t *testing.T) {
	p := NewInlineParser(FamilyThinkTagEN)
	// "</th" overlaps a prefix of "</think>" and is withheld by Feed
	// pending either completion or stream end; Finalize must flush it
	// as ordinary thinking-channel content rather than drop it.
	fed := p.Feed("<think>reasoning</th")
	final := p.Finalize()

	if got := collectText(fed, ChannelThinking); got != "reasoning" {
		t.Fatalf("Feed emitted thinking = %q, want %q", got, "reasoning")
	}
	if len(final) != 1 || final[0].Channel != ChannelThinking || final[0].Text != "</th" {
		t.Fatalf("Finalize() = %+v, want a single held-back thinking emission of %q", final, "</th")
	}
}

func TestInlineParserFinalizeNoOpWhenEmpty(t *testing.T) {
	p := NewInlineParser(FamilyThinkTagEN)
	p.Feed("<think>x</think>y")
	if got := p.Finalize(); got != nil {
		t.Errorf("Finalize() = %+v, want nil", got)
	}
}

func TestSafeEmitLenWithholdsPartialMarkerSuffix(t *testing.T) {
	tests := []struct {
		buf    string
		marker string
		want   int
	}{
		{"hello world", "<think>", 11},
		{"hello <th", "<think>", 6},
		{"<thi", "<think>", 0},
		{"", "<think>", 0},
		{"abc", "xyz", 3},
	}

	for _, tt := range tests {
		if got := safeEmitLen(tt.buf, tt.marker); got != tt.want {
			t.Errorf("safeEmitLen(%q, %q) = %d, want %d", tt.buf, tt.marker, got, tt.want)
		}
	}
}
