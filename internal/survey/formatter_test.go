package survey

import (
	"testing"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatAnswer(t *testing.T) {
	scale := QuestionInfo{Type: models.QuestionScale, ScaleLabels: []string{"Low", "Mid", "High"}}
	grid := QuestionInfo{Type: models.QuestionScaleGrid, ScaleLabels: []string{"Never", "Sometimes", "Always"}}
	checkbox := QuestionInfo{Type: models.QuestionCheckbox}
	text := QuestionInfo{Type: models.QuestionText}

	tests := []struct {
		name string
		q    QuestionInfo
		v    models.AnswerValue
		want string
	}{
		{"scale label", scale, models.StringAnswer("2"), "Mid"},
		{"scale first label", scale, models.StringAnswer("1"), "Low"},
		{"scale float value", scale, models.StringAnswer("3.0"), "High"},
		{"scale out of range", scale, models.StringAnswer("4"), "4"},
		{"scale zero", scale, models.StringAnswer("0"), "0"},
		{"scale non numeric", scale, models.StringAnswer("High"), "High"},
		{"scale without labels", QuestionInfo{Type: models.QuestionScale}, models.StringAnswer("2"), "2"},
		{"grid prompt", grid, models.StringAnswer("3"), "Always"},
		{"checkbox list", checkbox, models.ListAnswer("Go", " SQL ", ""), "Go, SQL"},
		{"text trimmed", text, models.StringAnswer("  fine  "), "fine"},
		{"list on text question", text, models.ListAnswer("a", "b"), "a, b"},
		{"empty", text, models.StringAnswer("   "), ""},
		{"unknown question", UnknownQuestion, models.StringAnswer("kept"), "kept"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAnswer(tt.q, tt.v))
		})
	}
}

func TestFormatAnswer_NumericJSON(t *testing.T) {
	var v models.AnswerValue
	assert.NoError(t, v.UnmarshalJSON([]byte(`2`)))

	scale := QuestionInfo{Type: models.QuestionScale, ScaleLabels: []string{"Low", "Mid", "High"}}
	assert.Equal(t, "Mid", FormatAnswer(scale, v))
}
