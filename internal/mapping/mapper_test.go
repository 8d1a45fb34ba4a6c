package mapping

import (
	"testing"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *survey.Registry {
	return survey.BuildRegistry(&models.Survey{
		Type: "course-feedback",
		Sections: []models.Section{
			{
				Title: "Course",
				Type:  models.SectionQuestions,
				Questions: []models.Question{
					{ID: "overall", Type: models.QuestionScale, Question: "Overall course rating", ScaleLabels: []string{"Low", "Mid", "High"}},
					{ID: "q_confidence", Type: models.QuestionScaleGrid, Question: "How confident do you feel", Prompts: []string{"Go", "SQL"}},
					{ID: "comments", Type: models.QuestionText, Question: "Additional comments"},
				},
			},
		},
	})
}

func TestAutoMap(t *testing.T) {
	m := NewMapper(testRegistry())

	suggestions := m.AutoMap([]string{"Full Name", "E-mail", "xyz_random"})

	require.Len(t, suggestions, 2)
	assert.Equal(t, "Full Name", suggestions[0].ColumnHeader)
	assert.Equal(t, FieldParticipantName, suggestions[0].SuggestedMapping)
	assert.GreaterOrEqual(t, suggestions[0].Confidence, 0.8)

	assert.Equal(t, "E-mail", suggestions[1].ColumnHeader)
	assert.Equal(t, FieldEmail, suggestions[1].SuggestedMapping)
	assert.GreaterOrEqual(t, suggestions[1].Confidence, 0.8)
}

func TestAutoMap_Questions(t *testing.T) {
	m := NewMapper(testRegistry())

	tests := []struct {
		header string
		want   string
		score  float64
	}{
		{"overall course rating", "overall", ExactScore},
		{"Overall Course Rating (1-3)", "overall", ContainmentScore},
		{"comments", "comments", ExactScore},
		{"q_confidence", "q_confidence", ExactScore},
		{"Department", FieldDepartment, ExactScore},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got := m.AutoMap([]string{tt.header})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].SuggestedMapping)
			assert.Equal(t, tt.score, got[0].Confidence)
		})
	}
}

func TestAutoMap_Deterministic(t *testing.T) {
	headers := []string{"Name", "Course rating", "Team", "Mobile number", "random"}

	first := NewMapper(testRegistry()).AutoMap(headers)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, NewMapper(testRegistry()).AutoMap(headers))
	}
}

func TestAutoMap_PatternFallback(t *testing.T) {
	m := NewMapper(testRegistry())

	got := m.AutoMap([]string{"Mobile number", "Company"})
	require.Len(t, got, 2)
	assert.Equal(t, FieldPhone, got[0].SuggestedMapping)
	assert.Equal(t, PatternScore, got[0].Confidence)
	assert.Equal(t, FieldOrganization, got[1].SuggestedMapping)
}

func TestMatchPattern_WholeWords(t *testing.T) {
	tests := []struct {
		header string
		target string
		ok     bool
	}{
		{header: "E-mail address", target: FieldEmail, ok: true},
		{header: "Tel.", target: FieldPhone, ok: true},
		{header: "Telephone", target: FieldPhone, ok: true},
		{header: "Mobile phone", target: FieldPhone, ok: true},
		{header: "Current job", target: FieldRole, ok: true},
		{header: "Hotel preference"},
		{header: "Problem statement"},
		{header: "Jobs satisfaction"},
		{header: "Gmail"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			target, _, ok := matchPattern(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.target, target)
		})
	}
}

func TestAutoMap_TieBreakPrefersLongerText(t *testing.T) {
	m := NewMapperWithCandidates([]Candidate{
		{ID: "short", Text: "rating"},
		{ID: "long", Text: "course rating"},
	})

	got := m.AutoMap([]string{"overall course rating given"})
	require.Len(t, got, 1)
	assert.Equal(t, "long", got[0].SuggestedMapping)
}

func TestDiagnose_Unfiltered(t *testing.T) {
	m := NewMapper(testRegistry())

	diags := m.Diagnose([]string{"xyz_random", "", "Full Name"})
	require.Len(t, diags, 3)

	assert.Equal(t, "xyz_random", diags[0].Header)
	assert.False(t, diags[0].Mapped)
	assert.Less(t, diags[0].Confidence, MappingThreshold)

	assert.False(t, diags[1].Mapped)
	assert.Equal(t, MatchNone, diags[1].Kind)

	assert.True(t, diags[2].Mapped)
	assert.Equal(t, FieldParticipantName, diags[2].Candidate)
	assert.NotEmpty(t, diags[2].Reason)
}
