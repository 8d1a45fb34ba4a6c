package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		candidate string
		kind      MatchKind
		score     float64
	}{
		{"exact ignoring case", "EMAIL", "email", MatchExact, 1.0},
		{"exact ignoring punctuation", "Submitted_At", "submitted at", MatchExact, 1.0},
		{"header contains candidate", "Full Name", "Name", MatchContainment, 0.9},
		{"candidate contains header", "rating", "Overall rating", MatchContainment, 0.9},
		{"too short to contain", "go", "Go services", MatchOverlap, 0.5},
		{"no overlap", "xyz random", "Email", MatchNone, 0},
		{"empty header", "", "Email", MatchNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.header, tt.candidate)
			assert.Equal(t, tt.kind, got.Kind)
			assert.InDelta(t, tt.score, got.Score, 1e-9)
		})
	}
}

func TestScore_OverlapBonusIsCapped(t *testing.T) {
	plain := Score("weekly course survey", "course survey results")
	assert.Equal(t, MatchOverlap, plain.Kind)
	// 2 shared of 3 words, plus the bonus for "course"
	assert.InDelta(t, 2.0/3.0+0.1, plain.Score, 1e-9)

	boosted := Score("team manager name email", "name email team manager role")
	assert.Equal(t, MatchOverlap, boosted.Kind)
	assert.Equal(t, 0.95, boosted.Score)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "e mail", Normalize("E-mail"))
	assert.Equal(t, "how are you", Normalize("  How are   you?? "))
	assert.Equal(t, "", Normalize("--"))
}
