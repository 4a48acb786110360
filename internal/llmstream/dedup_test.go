package llmstream

import "testing"

func TestDedupWordPairs(t *testing.T) {
	tests := []struct{ in, want string }{
		{"the the patient presented", "the patient presented"},
		{"no repeats here", "no repeats here"},
		{"The The patient", "The patient"},
		{"word word word", "word"}, // collapses to fixed point, not just one pairwise pass
		{"", ""},
	}

	for _, tt := range tests {
		if got := DedupWordPairs(tt.in); got != tt.want {
			t.Errorf("DedupWordPairs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupWordPairsIdempotent(t *testing.T) {
	in := "the the the patient"
	once := DedupWordPairs(in)
	twice := DedupWordPairs(once)
	if once != twice {
		t.Errorf("DedupWordPairs not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestDedupHyphenJoins(t *testing.T) {
	tests := []struct{ in, want string }{
		{"self-aware self-aware system", "self-aware system"},
		{"well-known fact", "well-known fact"},
		{"21-year-old 21-year-old patient", "21-year-old patient"},
	}

	for _, tt := range tests {
		if got := DedupHyphenJoins(tt.in); got != tt.want {
			t.Errorf("DedupHyphenJoins(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupSelfHyphenated(t *testing.T) {
	tests := []struct{ in, want string }{
		{"term-term appears here", "term appears here"},
		{"the self-aware-aware system", "the self-aware system"},
		{"well-known fact", "well-known fact"},
	}

	for _, tt := range tests {
		if got := DedupSelfHyphenated(tt.in); got != tt.want {
			t.Errorf("DedupSelfHyphenated(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeBulletBreaks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"inline dash break becomes its own line",
			"Findings so far - patient reports mild fatigue",
			"Findings so far\n- patient reports mild fatigue",
		},
		{
			"multiple inline breaks",
			"Vitals stable - no fever - discharge pending",
			"Vitals stable\n- no fever\n- discharge pending",
		},
		{
			"dash after period with a space gets its own line",
			"Plan is set. - Continue monitoring",
			"Plan is set.\n- Continue monitoring",
		},
		{
			"dash glued to period still gets its own line",
			"Plan is set.- Continue monitoring",
			"Plan is set.\n- Continue monitoring",
		},
		{
			"hyphenated compound is untouched",
			"a 21-year-old self-aware patient",
			"a 21-year-old self-aware patient",
		},
		{
			"text with no dash is unchanged",
			"no bullets in this sentence",
			"no bullets in this sentence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBulletBreaks(tt.in); got != tt.want {
				t.Errorf("NormalizeBulletBreaks(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
