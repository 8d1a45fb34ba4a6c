package validator

import (
	"testing"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSurvey() *models.Survey {
	return &models.Survey{
		Type:  "onboarding",
		Title: "Onboarding feedback",
		Sections: []models.Section{
			{Title: "Welcome", Type: models.SectionInstructions, Content: "Thanks for taking part."},
			{
				Title: "About the course",
				Type:  models.SectionQuestions,
				Questions: []models.Question{
					{ID: "pace", Type: models.QuestionRadio, Question: "How was the pace?", Options: []string{"Slow", "Right", "Fast"}},
					{ID: "topics", Type: models.QuestionCheckbox, Question: "Which topics helped?", Options: []string{"Go", "SQL", "HTTP"}, MaxSelections: 2},
					{ID: "overall", Type: models.QuestionScale, Question: "Overall rating", ScaleLabels: []string{"Low", "Mid", "High"}},
					{ID: "skills", Type: models.QuestionScaleGrid, Question: "Rate your skills", Prompts: []string{"Go", "SQL"}, ScaleLabels: []string{"1", "2", "3"}},
					{ID: "comments", Type: models.QuestionText, Question: "Anything else?"},
				},
			},
		},
	}
}

func TestValidateSurvey(t *testing.T) {
	v := New()

	t.Run("valid survey", func(t *testing.T) {
		assert.NoError(t, v.ValidateSurvey(validSurvey()))
	})

	t.Run("unknown question type", func(t *testing.T) {
		s := validSurvey()
		s.Sections[1].Questions[0].Type = "dropdown"

		err := v.ValidateSurvey(s)
		require.Error(t, err)

		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, "question_type", errs[0].Rule)
		assert.Equal(t, "type", errs[0].Field)
	})

	t.Run("bad survey type slug", func(t *testing.T) {
		s := validSurvey()
		s.Type = "Onboarding Survey"
		assert.Error(t, v.ValidateSurvey(s))
	})

	t.Run("duplicate ids", func(t *testing.T) {
		s := validSurvey()
		s.Sections[1].Questions[1].ID = "pace"

		err := v.ValidateSurvey(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sections[1].questions[1].id")
	})

	t.Run("id that looks like a grid key", func(t *testing.T) {
		s := validSurvey()
		s.Sections[1].Questions[4].ID = "comment_2"
		assert.Error(t, v.ValidateSurvey(s))
	})

	t.Run("scale-grid without prompts", func(t *testing.T) {
		s := validSurvey()
		s.Sections[1].Questions[3].Prompts = nil
		assert.Error(t, v.ValidateSurvey(s))
	})

	t.Run("max selections beyond options", func(t *testing.T) {
		s := validSurvey()
		s.Sections[1].Questions[1].MaxSelections = 5
		assert.Error(t, v.ValidateSurvey(s))
	})

	t.Run("empty questions section", func(t *testing.T) {
		s := validSurvey()
		s.Sections[1].Questions = nil
		assert.Error(t, v.ValidateSurvey(s))
	})
}

func TestQuestionValidator_ValidateID(t *testing.T) {
	v := NewQuestionValidator()

	tests := []struct {
		id      string
		wantErr bool
	}{
		{"overall", false},
		{"q_overall", false},
		{"team_size_band", false},
		{"q_2", true},
		{"skills_10", true},
		{"", true},
		{"has space", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := v.ValidateID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateActivityKind(t *testing.T) {
	v := New()

	type activity struct {
		Kind string `json:"kind" validate:"required,activity_kind"`
	}

	assert.NoError(t, v.Validate(activity{Kind: "scroll"}))

	err := v.Validate(activity{Kind: "resize"})
	require.Error(t, err)
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "kind", errs[0].Field)
	assert.Contains(t, errs[0].Message, "activity kind")
}
