package models

type SectionType string

const (
	SectionInstructions SectionType = "instructions"
	SectionQuestions    SectionType = "questions"
)

type QuestionType string

const (
	QuestionRadio     QuestionType = "radio"
	QuestionCheckbox  QuestionType = "checkbox"
	QuestionScale     QuestionType = "scale"
	QuestionScaleGrid QuestionType = "scale-grid"
	QuestionText      QuestionType = "text"

	// QuestionUnknown is only ever produced by the registry for ids that are not in the survey.
	QuestionUnknown QuestionType = "unknown"
)

// Survey is a static questionnaire definition. It is immutable once loaded.
type Survey struct {
	Type              string             `json:"type" yaml:"type" validate:"required,survey_type"`
	Title             string             `json:"title" yaml:"title" validate:"required,max=200"`
	Description       string             `json:"description" yaml:"description"`
	ParticipantStep   bool               `json:"participant_step" yaml:"participantStep"`
	ParticipantFields []ParticipantField `json:"participant_fields,omitempty" yaml:"participantFields" validate:"dive"`
	Sections          []Section          `json:"sections" yaml:"sections" validate:"required,min=1,dive"`
}

type Section struct {
	Title       string      `json:"title" yaml:"title" validate:"required"`
	Type        SectionType `json:"type" yaml:"type" validate:"required,section_type"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Content     string      `json:"content,omitempty" yaml:"content"`
	Questions   []Question  `json:"questions,omitempty" yaml:"questions" validate:"dive"`
}

// Question is a tagged union over QuestionType. Only the fields of its own type are meaningful.
type Question struct {
	ID       string       `json:"id" yaml:"id" validate:"required"`
	Type     QuestionType `json:"type" yaml:"type" validate:"required,question_type"`
	Question string       `json:"question" yaml:"question" validate:"required"`

	Options       []string `json:"options,omitempty" yaml:"options"`              // radio, checkbox
	MaxSelections int      `json:"max_selections,omitempty" yaml:"maxSelections"` // checkbox, 0 = unlimited
	ScaleLabels   []string `json:"scale_labels,omitempty" yaml:"scaleLabels"`     // scale, optional for scale-grid
	Prompts       []string `json:"prompts,omitempty" yaml:"prompts"`              // scale-grid
}

// ParticipantField describes one entry of the participant-info record.
type ParticipantField struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Label    string `json:"label" yaml:"label" validate:"required"`
	Kind     string `json:"kind" yaml:"kind" validate:"omitempty,oneof=text email select"`
	Required bool   `json:"required" yaml:"required"`
}

// ItemCount is the number of progress items the section contributes.
func (s Section) ItemCount() int {
	if s.Type == SectionInstructions {
		return 1
	}
	return len(s.Questions)
}

// DefaultParticipantFields is used when a survey enables the participant step without listing fields.
func DefaultParticipantFields() []ParticipantField {
	return []ParticipantField{
		{ID: "participant_name", Label: "Name", Kind: "text", Required: true},
		{ID: "email", Label: "Email", Kind: "email", Required: true},
		{ID: "role", Label: "Role", Kind: "text"},
		{ID: "organization", Label: "Organization", Kind: "text"},
		{ID: "department", Label: "Department", Kind: "text"},
	}
}

// Fields returns the participant fields of the survey, falling back to the defaults.
func (s *Survey) Fields() []ParticipantField {
	if len(s.ParticipantFields) > 0 {
		return s.ParticipantFields
	}
	return DefaultParticipantFields()
}
