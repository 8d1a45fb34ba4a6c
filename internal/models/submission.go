package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionCompleted  SubmissionStatus = "completed"
	SubmissionInProgress SubmissionStatus = "in_progress"
)

// SurveySubmission is a historical response record. Responses may be stored in either of the
// two legacy shapes, see ResponseEntry.
type SurveySubmission struct {
	ID          string           `json:"id" gorm:"primaryKey;size:36"`
	UserID      string           `json:"user_id" gorm:"size:255;index"`
	SurveyType  string           `json:"survey_type" gorm:"not null;size:100;index"`
	LearnerName string           `json:"learner_name" gorm:"size:255"`
	Status      SubmissionStatus `json:"status" gorm:"not null;size:20;index"`
	Responses   datatypes.JSON   `json:"responses" gorm:"type:jsonb"`
	SubmittedAt *time.Time       `json:"submitted_at" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SurveySubmission) TableName() string {
	return "survey_submissions"
}

// ResponseEntry is one decoded entry of SurveySubmission.Responses.
//
// Old format: keyed by the literal question text, value {"question": text, "answer": value}.
// New format: keyed by question id, value either raw or wrapped the same way.
type ResponseEntry struct {
	Key      string
	Question string
	Answer   AnswerValue
	Wrapped  bool
}

type wrappedResponse struct {
	Question string      `json:"question"`
	Answer   AnswerValue `json:"answer"`
}

// Entries decodes the responses blob. Entries whose value cannot be decoded are skipped;
// the number skipped is returned so callers can report it.
func (s *SurveySubmission) Entries() ([]ResponseEntry, int, error) {
	if len(s.Responses) == 0 || string(s.Responses) == "null" {
		return nil, 0, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(s.Responses, &raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode responses of submission %s: %w", s.ID, err)
	}

	entries := make([]ResponseEntry, 0, len(raw))
	skipped := 0
	for key, value := range raw {
		entry, ok := decodeEntry(key, value)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, skipped, nil
}

func decodeEntry(key string, value json.RawMessage) (ResponseEntry, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(value, &obj); err == nil {
		if _, ok := obj["answer"]; !ok {
			return ResponseEntry{}, false
		}
		var w wrappedResponse
		if err := json.Unmarshal(value, &w); err != nil {
			return ResponseEntry{}, false
		}
		return ResponseEntry{Key: key, Question: w.Question, Answer: w.Answer, Wrapped: true}, true
	}

	var v AnswerValue
	if err := json.Unmarshal(value, &v); err != nil {
		return ResponseEntry{}, false
	}
	return ResponseEntry{Key: key, Answer: v}, true
}

// EncodeResponses stores answers in the new, id-keyed format.
func EncodeResponses(answers AnswerMap) (datatypes.JSON, error) {
	if answers == nil {
		answers = AnswerMap{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode responses: %w", err)
	}
	return datatypes.JSON(data), nil
}
