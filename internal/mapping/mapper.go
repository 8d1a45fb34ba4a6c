// Package mapping associates free-form column headers with question ids and participant
// fields.
package mapping

import (
	"fmt"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/survey"
)

// Participant and submission fields that headers may map to besides questions.
const (
	FieldParticipantName = "participant_name"
	FieldEmail           = "email"
	FieldRole            = "role"
	FieldOrganization    = "organization"
	FieldDepartment      = "department"
	FieldPhone           = "phone"
	FieldSubmittedAt     = "submitted_at"
	FieldStatus          = "status"
)

// Candidate is one mapping target.
type Candidate struct {
	ID         string
	Text       string
	IsQuestion bool
}

// Diagnosis explains the best candidate for a header, whether or not it passed the threshold.
type Diagnosis struct {
	Header     string    `json:"header"`
	Candidate  string    `json:"candidate"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Kind       MatchKind `json:"kind"`
	Reason     string    `json:"reason"`
	Mapped     bool      `json:"mapped"`
}

// Mapper matches headers against a fixed candidate list. Candidate order is part of the
// contract: on equal scores the longer candidate text wins, then the earlier candidate.
type Mapper struct {
	candidates []Candidate
	byID       map[string]Candidate
}

func participantCandidates() []Candidate {
	return []Candidate{
		{ID: FieldParticipantName, Text: "Name"},
		{ID: FieldEmail, Text: "Email"},
		{ID: FieldRole, Text: "Role"},
		{ID: FieldOrganization, Text: "Organization"},
		{ID: FieldDepartment, Text: "Department"},
		{ID: FieldPhone, Text: "Phone"},
		{ID: FieldSubmittedAt, Text: "Submitted At"},
		{ID: FieldStatus, Text: "Status"},
	}
}

// NewMapper builds the candidate list from the participant fields followed by the registry's
// questions in survey order.
func NewMapper(registry *survey.Registry) *Mapper {
	candidates := participantCandidates()
	if registry != nil {
		for _, q := range registry.Questions() {
			candidates = append(candidates, Candidate{ID: q.ID, Text: q.Text, IsQuestion: true})
		}
	}
	return NewMapperWithCandidates(candidates)
}

func NewMapperWithCandidates(candidates []Candidate) *Mapper {
	m := &Mapper{byID: make(map[string]Candidate, len(candidates))}
	for _, c := range candidates {
		if _, dup := m.byID[c.ID]; dup {
			continue
		}
		m.byID[c.ID] = c
		m.candidates = append(m.candidates, c)
	}
	return m
}

func (m *Mapper) Candidate(id string) (Candidate, bool) {
	c, ok := m.byID[id]
	return c, ok
}

// AutoMap returns a suggestion for every header whose best candidate reaches
// MappingThreshold, in header order.
func (m *Mapper) AutoMap(headers []string) []models.MappingSuggestion {
	suggestions := make([]models.MappingSuggestion, 0, len(headers))
	for _, d := range m.Diagnose(headers) {
		if !d.Mapped {
			continue
		}
		suggestions = append(suggestions, models.MappingSuggestion{
			ColumnHeader:     d.Header,
			SuggestedMapping: d.Candidate,
			Confidence:       d.Confidence,
			MatchReason:      d.Reason,
		})
	}
	return suggestions
}

// Diagnose reports the best candidate for every header without filtering.
func (m *Mapper) Diagnose(headers []string) []Diagnosis {
	out := make([]Diagnosis, 0, len(headers))
	for _, h := range headers {
		out = append(out, m.best(h))
	}
	return out
}

func (m *Mapper) best(header string) Diagnosis {
	d := Diagnosis{Header: header, Kind: MatchNone, Reason: "no similar candidate"}

	var best Match
	var bestCandidate Candidate
	found := false
	for _, c := range m.candidates {
		match := Score(header, c.Text)
		if byID := Score(header, c.ID); byID.Score > match.Score {
			match = byID
		}
		if match.Score == 0 {
			continue
		}
		if !found || match.Score > best.Score || (match.Score == best.Score && len(c.Text) > len(bestCandidate.Text)) {
			best, bestCandidate, found = match, c, true
		}
	}

	if found {
		d.Candidate = bestCandidate.ID
		d.Text = bestCandidate.Text
		d.Confidence = best.Score
		d.Kind = best.Kind
		d.Reason = describe(best, bestCandidate)
	}

	if d.Confidence < PatternFallbackBelow {
		if target, keyword, ok := matchPattern(header); ok {
			if c, known := m.byID[target]; known {
				d.Candidate = c.ID
				d.Text = c.Text
				d.Confidence = PatternScore
				d.Kind = MatchPattern
				d.Reason = fmt.Sprintf("header contains %q", keyword)
			}
		}
	}

	d.Mapped = d.Confidence >= MappingThreshold
	return d
}

func describe(match Match, c Candidate) string {
	switch match.Kind {
	case MatchExact:
		return fmt.Sprintf("exact match with %q", c.Text)
	case MatchContainment:
		return fmt.Sprintf("contains or is contained in %q", c.Text)
	case MatchOverlap:
		return fmt.Sprintf("shares words with %q (%.2f)", c.Text, match.Score)
	default:
		return "no similar candidate"
	}
}
