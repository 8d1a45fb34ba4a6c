package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// QuestionValidator handles question-specific validation
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateSurvey checks the rules struct tags cannot express: unique ids across the whole
// survey, ids that cannot be confused with composite grid keys, and per-type fields.
func (v *QuestionValidator) ValidateSurvey(s *models.Survey) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]string)

	for si, section := range s.Sections {
		sectionField := fmt.Sprintf("sections[%d]", si)

		switch section.Type {
		case models.SectionInstructions:
			if len(section.Questions) > 0 {
				errs = append(errs, *NewValidationError(sectionField+".questions", "must be empty for an instructions section", len(section.Questions)))
			}
			continue
		case models.SectionQuestions:
			if len(section.Questions) == 0 {
				errs = append(errs, *NewValidationError(sectionField+".questions", "must contain at least one question", nil))
			}
		}

		for qi, q := range section.Questions {
			field := fmt.Sprintf("%s.questions[%d]", sectionField, qi)

			if prev, dup := seen[q.ID]; dup {
				errs = append(errs, *NewValidationError(field+".id", fmt.Sprintf("duplicates the id of %s", prev), q.ID))
			} else {
				seen[q.ID] = field
			}

			if err := v.ValidateID(q.ID); err != nil {
				errs = append(errs, *NewValidationError(field+".id", err.Error(), q.ID))
			}

			if err := v.ValidateQuestion(&q); err != nil {
				errs = append(errs, *NewValidationError(field, err.Error(), q.ID))
			}
		}
	}

	fieldIDs := make(map[string]bool)
	for fi, f := range s.ParticipantFields {
		if fieldIDs[f.ID] {
			errs = append(errs, *NewValidationError(fmt.Sprintf("participant_fields[%d].id", fi), "must be unique", f.ID))
		}
		fieldIDs[f.ID] = true
	}

	return errs
}

// ValidateID rejects ids whose last "_" segment is numeric; such ids are indistinguishable from
// the "{id}_{promptIndex}" keys that scale-grid answers are stored under.
func (v *QuestionValidator) ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("question id cannot be empty")
	}
	if strings.ContainsAny(id, " \t\n") {
		return fmt.Errorf("question id cannot contain whitespace")
	}
	if i := strings.LastIndex(id, "_"); i >= 0 {
		if _, err := strconv.Atoi(id[i+1:]); err == nil {
			return fmt.Errorf("question id cannot end with '_' followed by a number")
		}
	}
	return nil
}

// ValidateQuestion validates the type-specific fields of a question
func (v *QuestionValidator) ValidateQuestion(q *models.Question) error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question text is required")
	}

	switch q.Type {
	case models.QuestionRadio:
		return v.validateOptions(q.Options)
	case models.QuestionCheckbox:
		if err := v.validateOptions(q.Options); err != nil {
			return err
		}
		if q.MaxSelections < 0 {
			return fmt.Errorf("max selections cannot be negative")
		}
		if q.MaxSelections > len(q.Options) {
			return fmt.Errorf("max selections cannot exceed the number of options")
		}
	case models.QuestionScale:
		if len(q.ScaleLabels) < 2 {
			return fmt.Errorf("scale question must have at least 2 scale labels")
		}
	case models.QuestionScaleGrid:
		if len(q.Prompts) == 0 {
			return fmt.Errorf("scale-grid question must have at least 1 prompt")
		}
		for _, p := range q.Prompts {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("prompt text cannot be empty")
			}
		}
	case models.QuestionText:
		if len(q.Options) > 0 || len(q.Prompts) > 0 {
			return fmt.Errorf("text question cannot have options or prompts")
		}
	default:
		return fmt.Errorf("unsupported question type: %s", q.Type)
	}
	return nil
}

func (v *QuestionValidator) validateOptions(options []string) error {
	if len(options) < 2 {
		return fmt.Errorf("must have at least 2 options")
	}
	seen := make(map[string]bool, len(options))
	for _, option := range options {
		if strings.TrimSpace(option) == "" {
			return fmt.Errorf("option text cannot be empty")
		}
		if seen[option] {
			return fmt.Errorf("duplicate option '%s'", option)
		}
		seen[option] = true
	}
	return nil
}
