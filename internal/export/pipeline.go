// Package export turns historical submissions into report tables. Nothing in this package
// performs I/O beyond the writer it is handed.
package export

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/survey"
)

var ErrNoSubmissions = errors.New("no submissions found matching criteria")

const (
	TimestampLayout = "2006-01-02 15:04:05"
	RecentWindow    = 7 * 24 * time.Hour
)

var BaseHeaders = []string{"Submission ID", "Learner Name", "Status", "Submitted At"}

// Options filters the submissions. Zero values disable a filter; From and To are inclusive.
type Options struct {
	Status models.SubmissionStatus
	From   *time.Time
	To     *time.Time
	Now    time.Time
}

type Summary struct {
	SurveyType     string    `json:"survey_type"`
	Total          int       `json:"total"`
	Completed      int       `json:"completed"`
	InProgress     int       `json:"in_progress"`
	CompletionRate float64   `json:"completion_rate"`
	RecentActivity int       `json:"recent_activity"`
	ExportedAt     time.Time `json:"exported_at"`
	// entries whose stored value could not be decoded at all
	SkippedEntries int `json:"skipped_entries"`
}

type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type Tables struct {
	Summary   Summary `json:"summary"`
	Detailed  Table   `json:"detailed"`
	Reference Table   `json:"reference"`
}

// column identifies an output column. Known questions are keyed by id (and prompt), unknown
// entries by their literal label.
type column struct {
	key      string
	header   string
	info     survey.QuestionInfo
	order    int
	prompt   int
	known    bool
	position int
}

// Build filters the submissions and reconciles their responses into tables.
func Build(submissions []models.SurveySubmission, registry *survey.Registry, opts Options) (*Tables, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	filtered := Filter(submissions, opts)
	if len(filtered) == 0 {
		return nil, ErrNoSubmissions
	}

	rc := newReconciler(registry)
	cells := make([]map[string]string, len(filtered))
	for i := range filtered {
		cells[i] = rc.row(&filtered[i])
	}

	columns := rc.orderedColumns()
	detailed := Table{Headers: append(append([]string(nil), BaseHeaders...), headersOf(columns)...)}
	for i, sub := range filtered {
		row := []string{sub.ID, sub.LearnerName, string(sub.Status), formatTime(sub.SubmittedAt)}
		for _, c := range columns {
			row = append(row, cells[i][c.key])
		}
		detailed.Rows = append(detailed.Rows, row)
	}

	summary := summarize(filtered, opts.Now)
	summary.SkippedEntries = rc.skipped
	summary.SurveyType = filtered[0].SurveyType

	return &Tables{
		Summary:   summary,
		Detailed:  detailed,
		Reference: Reference(registry),
	}, nil
}

// Filter keeps submissions matching status and date range, ordered by submission time.
func Filter(submissions []models.SurveySubmission, opts Options) []models.SurveySubmission {
	out := make([]models.SurveySubmission, 0, len(submissions))
	for _, s := range submissions {
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		at := activityTime(&s)
		if opts.From != nil && at.Before(*opts.From) {
			continue
		}
		if opts.To != nil && at.After(*opts.To) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return activityTime(&out[i]).Before(activityTime(&out[j]))
	})
	return out
}

func activityTime(s *models.SurveySubmission) time.Time {
	if s.SubmittedAt != nil {
		return *s.SubmittedAt
	}
	return s.CreatedAt
}

func summarize(subs []models.SurveySubmission, now time.Time) Summary {
	sum := Summary{Total: len(subs), ExportedAt: now}
	since := now.Add(-RecentWindow)
	for i := range subs {
		switch subs[i].Status {
		case models.SubmissionCompleted:
			sum.Completed++
		case models.SubmissionInProgress:
			sum.InProgress++
		}
		at := activityTime(&subs[i])
		if !at.Before(since) && !at.After(now) {
			sum.RecentActivity++
		}
	}
	if sum.Total > 0 {
		sum.CompletionRate = float64(sum.Completed) / float64(sum.Total) * 100
	}
	return sum
}

type reconciler struct {
	registry *survey.Registry
	order    map[string]int
	columns  map[string]*column
	seen     int
	skipped  int
}

func newReconciler(registry *survey.Registry) *reconciler {
	if registry == nil {
		registry = survey.BuildRegistry(nil)
	}
	order := make(map[string]int)
	for i, q := range registry.Questions() {
		order[q.ID] = i
	}
	return &reconciler{registry: registry, order: order, columns: make(map[string]*column)}
}

// row resolves every response entry of one submission to its column and formatted cell.
func (r *reconciler) row(sub *models.SurveySubmission) map[string]string {
	cells := make(map[string]string)

	entries, skipped, err := sub.Entries()
	if err != nil {
		// an undecodable blob still yields a row, with blank answers
		r.skipped++
		return cells
	}
	r.skipped += skipped

	for _, e := range entries {
		c := r.resolve(e)
		value := survey.FormatAnswer(c.info, e.Answer)
		if existing, ok := cells[c.key]; ok && existing != "" {
			continue
		}
		cells[c.key] = value
	}
	return cells
}

func (r *reconciler) resolve(e models.ResponseEntry) *column {
	key := r.registry.ParseAnswerKey(e.Key)
	if info, ok := r.registry.Lookup(key.QuestionID); ok {
		if !key.HasPrompt {
			return r.questionColumn(info)
		}
		if info.Type == models.QuestionScaleGrid && key.PromptIndex < len(info.Prompts) {
			return r.promptColumn(info, key.PromptIndex)
		}
	}

	// old format: keyed by the question text, possibly repeated inside the wrapper
	for _, text := range []string{e.Question, e.Key} {
		if text == "" {
			continue
		}
		if info, ok := r.registry.ByText(text); ok {
			return r.questionColumn(info)
		}
	}

	label := e.Key
	if e.Wrapped && strings.TrimSpace(e.Question) != "" {
		label = e.Question
	}
	return r.unknownColumn(label)
}

func (r *reconciler) questionColumn(info survey.QuestionInfo) *column {
	return r.column("q:"+info.ID, info.Text, info, -1, true)
}

func (r *reconciler) promptColumn(info survey.QuestionInfo, prompt int) *column {
	header := fmt.Sprintf("%s [%s]", info.Text, info.Prompts[prompt])
	return r.column("q:"+info.ID+"#"+strconv.Itoa(prompt), header, info, prompt, true)
}

func (r *reconciler) unknownColumn(label string) *column {
	info := survey.UnknownQuestion
	info.ID, info.Text = label, label
	return r.column("u:"+label, label, info, -1, false)
}

func (r *reconciler) column(key, header string, info survey.QuestionInfo, prompt int, known bool) *column {
	if c, ok := r.columns[key]; ok {
		return c
	}
	c := &column{key: key, header: header, info: info, prompt: prompt, known: known, position: r.seen}
	if known {
		c.order = r.order[info.ID]
	}
	r.seen++
	r.columns[key] = c
	return c
}

// orderedColumns puts known questions in survey order (grid prompts by index, a prompt-less
// grid column after its prompts) followed by unknown columns in first-seen order.
func (r *reconciler) orderedColumns() []*column {
	cols := make([]*column, 0, len(r.columns))
	for _, c := range r.columns {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool {
		a, b := cols[i], cols[j]
		if a.known != b.known {
			return a.known
		}
		if !a.known {
			return a.position < b.position
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return promptRank(a) < promptRank(b)
	})
	return cols
}

func promptRank(c *column) int {
	if c.prompt < 0 {
		return int(^uint(0) >> 1)
	}
	return c.prompt
}

func headersOf(cols []*column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

// Reference describes every question of the survey.
func Reference(registry *survey.Registry) Table {
	t := Table{Headers: []string{"Question ID", "Section", "Question", "Type", "Options"}}
	if registry == nil {
		return t
	}
	for _, q := range registry.Questions() {
		var parts []string
		parts = append(parts, q.Options...)
		parts = append(parts, q.Prompts...)
		parts = append(parts, q.ScaleLabels...)
		t.Rows = append(t.Rows, []string{q.ID, q.SectionTitle, q.Text, string(q.Type), strings.Join(parts, " | ")})
	}
	return t
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}
