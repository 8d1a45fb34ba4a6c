package survey

import (
	"strconv"
	"strings"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// FormatAnswer renders a stored answer for humans. Scale values are 1-based indexes into the
// question's scale labels; anything that cannot be mapped is returned as stored.
func FormatAnswer(q QuestionInfo, v models.AnswerValue) string {
	if v.IsEmpty() {
		return ""
	}

	switch q.Type {
	case models.QuestionScale, models.QuestionScaleGrid:
		if v.IsList {
			return joinTrimmed(v.List)
		}
		return scaleLabel(q.ScaleLabels, v.Text)
	case models.QuestionCheckbox:
		if v.IsList {
			return joinTrimmed(v.List)
		}
		return strings.TrimSpace(v.Text)
	default:
		if v.IsList {
			return joinTrimmed(v.List)
		}
		return strings.TrimSpace(v.Text)
	}
}

func scaleLabel(labels []string, raw string) string {
	raw = strings.TrimSpace(raw)
	if len(labels) == 0 {
		return raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return raw
	}
	n := int(f)
	if n < 1 || n > len(labels) {
		return raw
	}
	return labels[n-1]
}

func joinTrimmed(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ", ")
}
