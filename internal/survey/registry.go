package survey

import (
	"strconv"
	"strings"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// QuestionInfo is the registry view of one question.
type QuestionInfo struct {
	ID            string              `json:"id"`
	Text          string              `json:"question"`
	SectionTitle  string              `json:"section_title"`
	SectionIndex  int                 `json:"section_index"`
	Type          models.QuestionType `json:"type"`
	Options       []string            `json:"options,omitempty"`
	Prompts       []string            `json:"prompts,omitempty"`
	ScaleLabels   []string            `json:"scale_labels,omitempty"`
	MaxSelections int                 `json:"max_selections,omitempty"`
	Known         bool                `json:"known"`
}

// UnknownQuestion is returned by Resolve for ids that are not part of the survey,
// typically retired questions still referenced by historical data.
var UnknownQuestion = QuestionInfo{Type: models.QuestionUnknown, SectionTitle: "Unknown"}

func (q QuestionInfo) IsUnknown() bool {
	return !q.Known
}

// Registry maps question ids to their definitions. It is a pure function of the survey
// and cheap to rebuild.
type Registry struct {
	byID   map[string]QuestionInfo
	byText map[string]string
	order  []string
}

func BuildRegistry(s *models.Survey) *Registry {
	r := &Registry{
		byID:   make(map[string]QuestionInfo),
		byText: make(map[string]string),
	}
	if s == nil {
		return r
	}

	for si, section := range s.Sections {
		if section.Type != models.SectionQuestions {
			continue
		}
		for _, q := range section.Questions {
			if _, dup := r.byID[q.ID]; dup {
				continue
			}
			info := QuestionInfo{
				ID:            q.ID,
				Text:          q.Question,
				SectionTitle:  section.Title,
				SectionIndex:  si,
				Type:          q.Type,
				Options:       q.Options,
				Prompts:       q.Prompts,
				ScaleLabels:   q.ScaleLabels,
				MaxSelections: q.MaxSelections,
				Known:         true,
			}
			r.byID[q.ID] = info
			r.order = append(r.order, q.ID)

			norm := normalizeText(q.Question)
			if _, taken := r.byText[norm]; !taken {
				r.byText[norm] = q.ID
			}
		}
	}
	return r
}

func (r *Registry) Lookup(id string) (QuestionInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// Resolve never fails: unknown ids yield UnknownQuestion carrying the requested id.
func (r *Registry) Resolve(id string) QuestionInfo {
	if info, ok := r.byID[id]; ok {
		return info
	}
	unknown := UnknownQuestion
	unknown.ID = id
	unknown.Text = id
	return unknown
}

// ByText finds a question by its literal text, ignoring case and surrounding whitespace.
func (r *Registry) ByText(text string) (QuestionInfo, bool) {
	id, ok := r.byText[normalizeText(text)]
	if !ok {
		return QuestionInfo{}, false
	}
	return r.byID[id], true
}

// Questions returns every question in survey order.
func (r *Registry) Questions() []QuestionInfo {
	out := make([]QuestionInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

// ParseAnswerKey turns a stored answer key into its structured form.
//
// Known ids always win over composite parsing, so an id such as "q_2" is never split as long
// as the survey defines it. "{base}_{n}" is decomposed only when base is a known scale-grid
// question and n is one of its prompt indexes. Keys that reference questions the registry does
// not know fall back to the historical positional rule: the first two "_" segments form the
// base id and a trailing numeric segment is the prompt index.
func (r *Registry) ParseAnswerKey(key string) models.AnswerKey {
	if _, ok := r.byID[key]; ok {
		return models.QuestionKey(key)
	}

	if i := strings.LastIndex(key, "_"); i > 0 {
		base, suffix := key[:i], key[i+1:]
		if idx, err := strconv.Atoi(suffix); err == nil && idx >= 0 {
			if info, ok := r.byID[base]; ok {
				if info.Type == models.QuestionScaleGrid && idx < len(info.Prompts) {
					return models.PromptKey(base, idx)
				}
				return models.QuestionKey(key)
			}
		}
	}

	return parseLegacyKey(key)
}

func parseLegacyKey(key string) models.AnswerKey {
	parts := strings.Split(key, "_")
	if len(parts) < 3 {
		return models.QuestionKey(key)
	}
	idx, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || idx < 0 {
		return models.QuestionKey(key)
	}
	return models.PromptKey(parts[0]+"_"+parts[1], idx)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
