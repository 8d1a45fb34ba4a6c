package progress

import (
	"testing"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSurvey() *models.Survey {
	return &models.Survey{
		Type:  "course-feedback",
		Title: "Course feedback",
		Sections: []models.Section{
			{Title: "Intro", Type: models.SectionInstructions, Content: "Welcome"},
			{
				Title: "Course",
				Type:  models.SectionQuestions,
				Questions: []models.Question{
					{ID: "pace", Type: models.QuestionRadio, Question: "Pace?", Options: []string{"Slow", "Fast"}},
					{ID: "skills", Type: models.QuestionScaleGrid, Question: "Skills", Prompts: []string{"A", "B", "C"}},
					{ID: "topics", Type: models.QuestionCheckbox, Question: "Topics", Options: []string{"Go", "SQL", "HTTP"}, MaxSelections: 2},
				},
			},
			{Title: "Interlude", Type: models.SectionInstructions, Content: "Almost done"},
			{
				Title: "Wrap-up",
				Type:  models.SectionQuestions,
				Questions: []models.Question{
					{ID: "overall", Type: models.QuestionScale, Question: "Overall", ScaleLabels: []string{"Low", "Mid", "High"}},
					{ID: "comments", Type: models.QuestionText, Question: "Comments"},
				},
			},
		},
	}
}

func TestMachine_ItemCounts(t *testing.T) {
	m := New(testSurvey())

	counts := m.SectionItemCounts()
	assert.Equal(t, []int{1, 3, 1, 2}, counts)

	sum := 0
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, m.TotalItems(), sum)
	assert.Equal(t, 7, m.TotalItems())
}

func TestMachine_NextReachesHundred(t *testing.T) {
	m := New(testSurvey())

	var seq []float64
	seq = append(seq, m.Progress())
	for {
		if m.Next() {
			break
		}
		seq = append(seq, m.Progress())
		require.Less(t, len(seq), 100, "navigation did not terminate")
	}

	require.Len(t, seq, 7)
	for i := 1; i < len(seq); i++ {
		assert.GreaterOrEqual(t, seq[i], seq[i-1])
	}
	assert.Equal(t, 100.0, seq[len(seq)-1])

	section, question := m.Position()
	assert.Equal(t, 3, section)
	assert.Equal(t, 1, question)

	// completion is signalled again without moving the cursor
	assert.True(t, m.Next())
	assert.Equal(t, 100.0, m.Progress())
}

func TestMachine_Previous(t *testing.T) {
	m := New(testSurvey())

	m.Previous()
	section, question := m.Position()
	assert.Equal(t, 0, section)
	assert.Equal(t, 0, question)
	assert.Equal(t, uint64(0), m.Revision())

	m.Next() // Course, pace
	m.Next() // skills
	m.Next() // topics
	m.Next() // Interlude

	m.Previous()
	section, question = m.Position()
	assert.Equal(t, 1, section)
	assert.Equal(t, 2, question, "entering a questions section resumes at its last question")

	m.Previous()
	m.Previous()
	m.Previous()
	section, question = m.Position()
	assert.Equal(t, 0, section)
	assert.Equal(t, 0, question)
}

func TestMachine_IsCurrentAnswered(t *testing.T) {
	m := New(testSurvey())

	assert.True(t, m.IsCurrentAnswered(), "instructions never gate")

	m.Next()
	assert.False(t, m.IsCurrentAnswered())
	require.NoError(t, m.SetAnswer(models.QuestionKey("pace"), models.StringAnswer("   ")))
	assert.False(t, m.IsCurrentAnswered(), "whitespace is not an answer")
	require.NoError(t, m.SetAnswer(models.QuestionKey("pace"), models.StringAnswer("Slow")))
	assert.True(t, m.IsCurrentAnswered())

	t.Run("scale-grid needs every prompt", func(t *testing.T) {
		m.Next()
		require.NoError(t, m.SetAnswer(models.PromptKey("skills", 0), models.StringAnswer("1")))
		require.NoError(t, m.SetAnswer(models.PromptKey("skills", 2), models.StringAnswer("3")))
		assert.False(t, m.IsCurrentAnswered())

		require.NoError(t, m.SetAnswer(models.PromptKey("skills", 1), models.StringAnswer("")))
		assert.False(t, m.IsCurrentAnswered())

		require.NoError(t, m.SetAnswer(models.PromptKey("skills", 1), models.StringAnswer("2")))
		assert.True(t, m.IsCurrentAnswered())

		m.ClearAnswer(models.PromptKey("skills", 0))
		assert.False(t, m.IsCurrentAnswered())
		require.NoError(t, m.SetAnswer(models.PromptKey("skills", 0), models.StringAnswer("1")))
	})

	t.Run("checkbox needs a selection", func(t *testing.T) {
		m.Next()
		require.NoError(t, m.SetAnswer(models.QuestionKey("topics"), models.ListAnswer()))
		assert.False(t, m.IsCurrentAnswered())
		require.NoError(t, m.SetAnswer(models.QuestionKey("topics"), models.ListAnswer("Go")))
		assert.True(t, m.IsCurrentAnswered())
	})
}

func TestMachine_MaxSelections(t *testing.T) {
	m := New(testSurvey())

	require.NoError(t, m.SetAnswer(models.QuestionKey("topics"), models.ListAnswer("Go", "SQL")))
	rev := m.Revision()

	err := m.SetAnswer(models.QuestionKey("topics"), models.ListAnswer("Go", "SQL", "HTTP"))
	assert.ErrorIs(t, err, ErrTooManySelections)
	assert.Equal(t, rev, m.Revision())

	v, ok := m.Answer(models.QuestionKey("topics"))
	require.True(t, ok)
	assert.Equal(t, []string{"Go", "SQL"}, v.List)
}

func TestMachine_RevisionAndState(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := New(testSurvey(), WithClock(func() time.Time { return now }))

	assert.False(t, m.HasAnswers())
	require.NoError(t, m.SetAnswer(models.QuestionKey("comments"), models.StringAnswer("great")))
	m.Next()

	assert.Equal(t, uint64(2), m.Revision())
	assert.True(t, m.HasAnswers())

	state := m.State()
	assert.Equal(t, 1, state.CurrentSection)
	assert.Equal(t, 0, state.CurrentQuestion)
	assert.Equal(t, now, state.UpdatedAt)
	assert.Equal(t, "great", state.Answers["comments"].Text)

	// the snapshot is detached from the machine
	state.Answers["comments"] = models.StringAnswer("changed")
	v, _ := m.Answer(models.QuestionKey("comments"))
	assert.Equal(t, "great", v.Text)
}

func TestMachine_Restore(t *testing.T) {
	m := New(testSurvey())

	m.Restore(models.ProgressState{
		CurrentSection:  3,
		CurrentQuestion: 1,
		Answers:         models.AnswerMap{"pace": models.StringAnswer("Fast")},
	})
	section, question := m.Position()
	assert.Equal(t, 3, section)
	assert.Equal(t, 1, question)
	assert.Equal(t, 100.0, m.Progress())

	t.Run("out of range cursor is clamped", func(t *testing.T) {
		m.Restore(models.ProgressState{CurrentSection: 9, CurrentQuestion: 9})
		section, question := m.Position()
		assert.Equal(t, 3, section)
		assert.Equal(t, 1, question)

		m.Restore(models.ProgressState{CurrentSection: 2, CurrentQuestion: 5})
		section, question = m.Position()
		assert.Equal(t, 2, section)
		assert.Equal(t, 0, question)

		m.Restore(models.ProgressState{CurrentSection: -1, CurrentQuestion: -1})
		section, question = m.Position()
		assert.Equal(t, 0, section)
		assert.Equal(t, 0, question)
	})
}

func TestMachine_EmptySurvey(t *testing.T) {
	m := New(&models.Survey{Type: "empty"})

	assert.Equal(t, 0, m.TotalItems())
	assert.Equal(t, 0.0, m.Progress())
	assert.True(t, m.IsCurrentAnswered())
	assert.True(t, m.Next())
	m.Previous()

	_, ok := m.CurrentQuestion()
	assert.False(t, ok)
}

func TestMachine_ParticipantStep(t *testing.T) {
	s := testSurvey()
	m := New(s, WithParticipantStep(nil))

	require.True(t, m.HasParticipantStep())
	assert.Equal(t, []int{1, 1, 3, 1, 2}, m.SectionItemCounts())

	step, ok := m.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, StepParticipant, step.Kind)
	assert.False(t, m.IsCurrentAnswered())

	m.SetParticipantInfo(map[string]string{"participant_name": "Ada"})
	assert.False(t, m.IsCurrentAnswered())

	m.SetParticipantInfo(map[string]string{"email": "not-an-address"})
	assert.False(t, m.IsCurrentAnswered())

	m.SetParticipantInfo(map[string]string{"email": "ada@example.com"})
	assert.True(t, m.IsCurrentAnswered())

	m.Next()
	step, _ = m.CurrentStep()
	assert.Equal(t, StepInstructions, step.Kind)
}

func TestMachine_ParticipantStepFromDefinition(t *testing.T) {
	s := testSurvey()
	s.ParticipantStep = true
	s.ParticipantFields = []models.ParticipantField{{ID: "team", Label: "Team", Required: true}}

	m := New(s, WithParticipantStep(nil))
	assert.Equal(t, 8, m.TotalItems(), "participant step is added once")
	assert.Equal(t, "team", m.ParticipantFields()[0].ID)
}

func TestMachine_CurrentQuestion(t *testing.T) {
	m := New(testSurvey())

	_, ok := m.CurrentQuestion()
	assert.False(t, ok)

	m.Next()
	m.Next()
	q, ok := m.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, "skills", q.ID)
}

func TestMachine_IsComplete(t *testing.T) {
	m := New(testSurvey())
	assert.False(t, m.AtEnd())
	assert.False(t, m.IsComplete())

	m.Restore(models.ProgressState{CurrentSection: 3, CurrentQuestion: 0})
	assert.False(t, m.AtEnd())

	m.Restore(models.ProgressState{CurrentSection: 3, CurrentQuestion: 1})
	assert.True(t, m.AtEnd())
	assert.False(t, m.IsComplete(), "last question unanswered")

	require.NoError(t, m.SetAnswer(models.QuestionKey("comments"), models.StringAnswer("Thanks")))
	assert.True(t, m.IsComplete())

	empty := New(&models.Survey{Type: "empty"})
	assert.True(t, empty.IsComplete())
}
