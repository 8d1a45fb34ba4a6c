// Package progress implements the learner's cursor through a survey: navigation, answer
// bookkeeping, completion checks and the progress percentage. Everything here is synchronous
// and free of I/O; persistence wraps a Machine from the outside.
package progress

import (
	"errors"
	"strings"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/go-playground/validator/v10"
)

var ErrTooManySelections = errors.New("selection exceeds the question's maximum")

type StepKind string

const (
	StepParticipant  StepKind = "participant"
	StepInstructions StepKind = "instructions"
	StepQuestions    StepKind = "questions"
)

// Step is one navigable section. With the participant variant enabled, step 0 is the
// participant-info step and the survey's sections follow it.
type Step struct {
	Kind      StepKind
	Title     string
	Questions []models.Question
}

func (s Step) Items() int {
	if s.Kind == StepQuestions {
		return len(s.Questions)
	}
	return 1
}

// Machine is not safe for concurrent use.
type Machine struct {
	steps     []Step
	questions map[string]models.Question
	fields    []models.ParticipantField

	section  int
	question int
	answers  models.AnswerMap
	info     map[string]string

	updatedAt time.Time
	revision  uint64
	now       func() time.Time
}

type Option func(*Machine)

// WithParticipantStep prepends the participant-info step. Nil fields selects the defaults.
func WithParticipantStep(fields []models.ParticipantField) Option {
	return func(m *Machine) {
		if len(fields) > 0 {
			m.fields = fields
		} else if len(m.fields) == 0 {
			m.fields = models.DefaultParticipantFields()
		}
		if m.HasParticipantStep() {
			return
		}
		m.steps = append([]Step{{Kind: StepParticipant, Title: "Participant information"}}, m.steps...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// New builds a machine positioned at the first item of the survey. Surveys that declare a
// participant step get it without passing WithParticipantStep.
func New(s *models.Survey, opts ...Option) *Machine {
	m := &Machine{
		questions: make(map[string]models.Question),
		answers:   models.AnswerMap{},
		now:       time.Now,
	}

	for _, section := range s.Sections {
		step := Step{Kind: StepInstructions, Title: section.Title}
		if section.Type == models.SectionQuestions {
			step.Kind = StepQuestions
			step.Questions = section.Questions
			for _, q := range section.Questions {
				m.questions[q.ID] = q
			}
		}
		m.steps = append(m.steps, step)
	}

	if s.ParticipantStep {
		opts = append([]Option{WithParticipantStep(s.ParticipantFields)}, opts...)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore replaces the machine's state with a previously saved one. A cursor that no longer
// fits the survey (the definition changed since the save) is clamped back into range.
func (m *Machine) Restore(state models.ProgressState) {
	m.answers = state.Answers.Clone()
	m.info = copyInfo(state.ParticipantInfo)
	m.updatedAt = state.UpdatedAt

	m.section, m.question = 0, 0
	if len(m.steps) > 0 {
		m.section = clamp(state.CurrentSection, 0, len(m.steps)-1)
		m.question = clamp(state.CurrentQuestion, 0, lastIndex(m.steps[m.section]))
	}
	m.revision++
}

// Next advances the cursor and reports whether the survey is complete. At the last item of
// the last step the cursor stays put and completion is signalled.
func (m *Machine) Next() (completed bool) {
	if len(m.steps) == 0 {
		return true
	}

	step := m.steps[m.section]
	if step.Kind == StepQuestions && m.question < step.Items()-1 {
		m.question++
		m.touch()
		return false
	}

	if m.section == len(m.steps)-1 {
		return true
	}
	m.section++
	m.question = 0
	m.touch()
	return false
}

// Previous moves the cursor back one item. Entering an earlier step resumes at its last item.
func (m *Machine) Previous() {
	if m.question > 0 {
		m.question--
		m.touch()
		return
	}
	if m.section == 0 {
		return
	}
	m.section--
	m.question = lastIndex(m.steps[m.section])
	m.touch()
}

// SetAnswer stores the value under key. Checkbox selections beyond maxSelections are refused
// and leave the state unchanged.
func (m *Machine) SetAnswer(key models.AnswerKey, value models.AnswerValue) error {
	if q, ok := m.questions[key.QuestionID]; ok && q.Type == models.QuestionCheckbox && q.MaxSelections > 0 {
		if countSelected(value) > q.MaxSelections {
			return ErrTooManySelections
		}
	}

	if value.IsList {
		value.List = append([]string(nil), value.List...)
	}
	m.answers[key.String()] = value
	m.touch()
	return nil
}

func (m *Machine) ClearAnswer(key models.AnswerKey) {
	if _, ok := m.answers[key.String()]; !ok {
		return
	}
	delete(m.answers, key.String())
	m.touch()
}

// SetParticipantInfo merges the given fields into the participant record.
func (m *Machine) SetParticipantInfo(info map[string]string) {
	if m.info == nil {
		m.info = make(map[string]string, len(info))
	}
	for k, v := range info {
		m.info[k] = v
	}
	m.touch()
}

// IsCurrentAnswered reports whether the item under the cursor may be left with Next.
func (m *Machine) IsCurrentAnswered() bool {
	if len(m.steps) == 0 {
		return true
	}

	step := m.steps[m.section]
	switch step.Kind {
	case StepInstructions:
		return true
	case StepParticipant:
		return m.participantComplete()
	}

	if m.question >= len(step.Questions) {
		return true
	}
	return m.isAnswered(step.Questions[m.question])
}

// AtEnd reports whether the cursor is on the last item of the last step.
func (m *Machine) AtEnd() bool {
	if len(m.steps) == 0 {
		return true
	}
	last := len(m.steps) - 1
	return m.section == last && m.question >= lastIndex(m.steps[last])
}

// IsComplete reports whether the learner walked to the last item and answered it.
func (m *Machine) IsComplete() bool {
	return m.AtEnd() && m.IsCurrentAnswered()
}

func (m *Machine) isAnswered(q models.Question) bool {
	switch q.Type {
	case models.QuestionScaleGrid:
		for i := range q.Prompts {
			v, ok := m.answers[models.PromptKey(q.ID, i).String()]
			if !ok || v.IsEmpty() {
				return false
			}
		}
		return len(q.Prompts) > 0
	case models.QuestionCheckbox:
		v, ok := m.answers[q.ID]
		return ok && countSelected(v) > 0
	default:
		v, ok := m.answers[q.ID]
		return ok && !v.IsList && strings.TrimSpace(v.Text) != ""
	}
}

var fieldValidator = validator.New()

func (m *Machine) participantComplete() bool {
	for _, f := range m.fields {
		value := strings.TrimSpace(m.info[f.ID])
		if value == "" {
			if f.Required {
				return false
			}
			continue
		}
		if f.Kind == "email" && fieldValidator.Var(value, "email") != nil {
			return false
		}
	}
	return true
}

// Progress is the share of items reached, in percent. The item under the cursor counts as
// reached, so the value is exactly 100 at the last item and never decreases under Next.
func (m *Machine) Progress() float64 {
	total := m.TotalItems()
	if total == 0 {
		return 0
	}

	completed := 0
	for i := 0; i < m.section; i++ {
		completed += m.steps[i].Items()
	}
	if len(m.steps) > 0 {
		completed += min(m.question+1, m.steps[m.section].Items())
	}
	return float64(completed) / float64(total) * 100
}

func (m *Machine) TotalItems() int {
	total := 0
	for _, step := range m.steps {
		total += step.Items()
	}
	return total
}

// SectionItemCounts lists the items per step; the counts sum to TotalItems.
func (m *Machine) SectionItemCounts() []int {
	counts := make([]int, len(m.steps))
	for i, step := range m.steps {
		counts[i] = step.Items()
	}
	return counts
}

func (m *Machine) Steps() []Step {
	return m.steps
}

// Position returns the cursor as (step, item) indexes.
func (m *Machine) Position() (section, question int) {
	return m.section, m.question
}

// CurrentStep returns the step under the cursor; ok is false for a survey without sections.
func (m *Machine) CurrentStep() (Step, bool) {
	if len(m.steps) == 0 {
		return Step{}, false
	}
	return m.steps[m.section], true
}

// CurrentQuestion returns the question under the cursor, if the cursor is on one.
func (m *Machine) CurrentQuestion() (models.Question, bool) {
	step, ok := m.CurrentStep()
	if !ok || step.Kind != StepQuestions || m.question >= len(step.Questions) {
		return models.Question{}, false
	}
	return step.Questions[m.question], true
}

func (m *Machine) HasParticipantStep() bool {
	return len(m.steps) > 0 && m.steps[0].Kind == StepParticipant
}

func (m *Machine) ParticipantFields() []models.ParticipantField {
	return m.fields
}

// Answer returns the stored value for key.
func (m *Machine) Answer(key models.AnswerKey) (models.AnswerValue, bool) {
	v, ok := m.answers[key.String()]
	return v, ok
}

// HasAnswers reports whether at least one non-empty answer is stored.
func (m *Machine) HasAnswers() bool {
	return m.answers.NonEmpty() > 0
}

// State returns a copy of the current state that is safe to hand to another goroutine.
func (m *Machine) State() models.ProgressState {
	return models.ProgressState{
		CurrentSection:  m.section,
		CurrentQuestion: m.question,
		Answers:         m.answers.Clone(),
		ParticipantInfo: copyInfo(m.info),
		UpdatedAt:       m.updatedAt,
	}
}

// Revision increases on every mutation. Persistence compares it with the revision it last
// saved to decide whether there are unsaved changes.
func (m *Machine) Revision() uint64 {
	return m.revision
}

func (m *Machine) touch() {
	m.revision++
	m.updatedAt = m.now()
}

func countSelected(v models.AnswerValue) int {
	if !v.IsList {
		if strings.TrimSpace(v.Text) == "" {
			return 0
		}
		return 1
	}
	n := 0
	for _, item := range v.List {
		if strings.TrimSpace(item) != "" {
			n++
		}
	}
	return n
}

func lastIndex(step Step) int {
	if step.Kind != StepQuestions || len(step.Questions) == 0 {
		return 0
	}
	return len(step.Questions) - 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func copyInfo(info map[string]string) map[string]string {
	if info == nil {
		return nil
	}
	out := make(map[string]string, len(info))
	for k, v := range info {
		out[k] = v
	}
	return out
}
