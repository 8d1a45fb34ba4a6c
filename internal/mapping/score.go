package mapping

import (
	"strings"
	"unicode"
)

const (
	ExactScore       = 1.0
	ContainmentScore = 0.9
	PatternScore     = 0.8
	// token overlap never reaches containment confidence, whatever the bonus
	overlapCap  = 0.95
	domainBonus = 0.1

	// MappingThreshold is the minimum confidence for a header to be mapped.
	MappingThreshold = 0.5
	// PatternFallbackBelow enables the pattern battery when similarity scored lower.
	PatternFallbackBelow = 0.6

	minContainmentLen = 3
)

type MatchKind string

const (
	MatchNone        MatchKind = "none"
	MatchExact       MatchKind = "exact"
	MatchContainment MatchKind = "containment"
	MatchOverlap     MatchKind = "token_overlap"
	MatchPattern     MatchKind = "pattern"
)

// Match is the result of scoring one header against one candidate text.
type Match struct {
	Score float64
	Kind  MatchKind
}

// domainTerms earn a bonus when both sides share them.
var domainTerms = map[string]bool{
	"name": true, "email": true, "mail": true, "role": true, "organization": true,
	"department": true, "phone": true, "date": true, "status": true, "course": true,
	"skill": true, "skills": true, "rating": true, "experience": true, "confidence": true,
	"team": true, "manager": true, "feedback": true, "topic": true, "topics": true,
}

// Score rates how well header describes candidate. It is pure and symmetric in its
// containment rule; thresholds live in the constants above.
func Score(header, candidate string) Match {
	h, c := Normalize(header), Normalize(candidate)
	if h == "" || c == "" {
		return Match{Kind: MatchNone}
	}

	if h == c {
		return Match{Score: ExactScore, Kind: MatchExact}
	}

	shorter := h
	if len(c) < len(h) {
		shorter = c
	}
	if len(shorter) >= minContainmentLen && (strings.Contains(h, c) || strings.Contains(c, h)) {
		return Match{Score: ContainmentScore, Kind: MatchContainment}
	}

	return overlap(tokens(h), tokens(c))
}

func overlap(a, b []string) Match {
	if len(a) == 0 || len(b) == 0 {
		return Match{Kind: MatchNone}
	}

	inB := make(map[string]bool, len(b))
	for _, t := range b {
		inB[t] = true
	}

	shared, bonus := 0, 0.0
	seen := make(map[string]bool, len(a))
	for _, t := range a {
		if seen[t] || !inB[t] {
			continue
		}
		seen[t] = true
		shared++
		if domainTerms[t] {
			bonus += domainBonus
		}
	}
	if shared == 0 {
		return Match{Kind: MatchNone}
	}

	denom := len(uniq(a))
	if n := len(uniq(b)); n > denom {
		denom = n
	}
	score := float64(shared)/float64(denom) + bonus
	if score > overlapCap {
		score = overlapCap
	}
	return Match{Score: score, Kind: MatchOverlap}
}

// Normalize lowercases s and reduces every run of non-alphanumeric characters to one space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

func tokens(normalized string) []string {
	return strings.Fields(normalized)
}

func uniq(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}
