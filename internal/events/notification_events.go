package events

import (
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/google/uuid"
)

const (
	EventSource  = "survey-service"
	EventVersion = "1.0"
)

// EventType represents different types of notification events
type EventType string

const (
	// Progress events
	EventProgressSavedRemote    EventType = "progress.saved_remote"
	EventProgressSavedLocalOnly EventType = "progress.saved_local_only"
	EventProgressIdleSaved      EventType = "progress.idle_saved"
	EventProgressConflict       EventType = "progress.conflict"

	// Submission events
	EventSurveySubmitted EventType = "survey.submitted"
	EventImportCompleted EventType = "import.completed"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Progress notification event payloads

type ProgressSavedEvent struct {
	UserID       string              `json:"user_id"`
	SurveyType   string              `json:"survey_type"`
	Trigger      models.SaveTrigger  `json:"trigger"`
	Target       models.SaveTarget   `json:"target"`
	Version      int                 `json:"version,omitempty"`
	Progress     float64             `json:"progress"`
	SavedAt      time.Time           `json:"saved_at"`
	Notification models.Notification `json:"notification"`
}

type SurveySubmittedEvent struct {
	SubmissionID string              `json:"submission_id"`
	UserID       string              `json:"user_id"`
	SurveyType   string              `json:"survey_type"`
	AnswerCount  int                 `json:"answer_count"`
	SubmittedAt  time.Time           `json:"submitted_at"`
	Notification models.Notification `json:"notification"`
}

type ImportCompletedEvent struct {
	SurveyType      string   `json:"survey_type"`
	Imported        int      `json:"imported"`
	SkippedRows     int      `json:"skipped_rows"`
	UnmappedHeaders []string `json:"unmapped_headers,omitempty"`
	ImportedBy      string   `json:"imported_by,omitempty"`
}

// Event factory functions

func NewProgressSavedEvent(eventType EventType, payload ProgressSavedEvent) *NotificationEvent {
	return newEvent(eventType, payload)
}

func NewSurveySubmittedEvent(payload SurveySubmittedEvent) *NotificationEvent {
	return newEvent(EventSurveySubmitted, payload)
}

func NewImportCompletedEvent(payload ImportCompletedEvent) *NotificationEvent {
	return newEvent(EventImportCompleted, payload)
}

func newEvent(eventType EventType, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    EventSource,
		Version:   EventVersion,
		Data:      data,
	}
}

// GenerateEventID returns a random event id
func GenerateEventID() string {
	return uuid.NewString()
}
