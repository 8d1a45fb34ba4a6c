package models

import "time"

// ===== SESSION REQUEST DTOs =====

type AnswerRequest struct {
	// QuestionID is a question id, or "{id}_{promptIndex}" for one prompt of a scale-grid
	QuestionID string      `json:"question_id" validate:"required,max=200"`
	Value      AnswerValue `json:"value"`
}

type ParticipantInfoRequest struct {
	Fields map[string]string `json:"fields" validate:"required,dive,keys,required,max=100,endkeys,max=500"`
}

type ActivityRequest struct {
	Kind ActivityKind `json:"kind" validate:"required,activity_kind"`
}

type VisibilityRequest struct {
	Hidden bool `json:"hidden"`
}

type SaveRequest struct {
	// Overwrite replaces the stored progress even if another session saved in between
	Overwrite bool `json:"overwrite"`
}

// ===== SESSION RESPONSE DTOs =====

type SessionStep struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Items int    `json:"items"`
}

// SessionView is the client-facing snapshot of an active survey session.
type SessionView struct {
	UserID            string            `json:"user_id"`
	SurveyType        string            `json:"survey_type"`
	CurrentSection    int               `json:"current_section"`
	CurrentQuestion   int               `json:"current_question"`
	Step              *SessionStep      `json:"step,omitempty"`
	Question          *Question         `json:"question,omitempty"`
	Answered          bool              `json:"answered"`
	Progress          float64           `json:"progress"`
	TotalItems        int               `json:"total_items"`
	SectionItemCounts []int             `json:"section_item_counts"`
	Answers           AnswerMap         `json:"answers"`
	ParticipantInfo   map[string]string `json:"participant_info,omitempty"`
	Unsaved           bool              `json:"unsaved"`
	Version           int               `json:"version"`
	LastSavedAt       *time.Time        `json:"last_saved_at,omitempty"`
	LastSaveTarget    SaveTarget        `json:"last_save_target,omitempty"`
}

type NavigationResponse struct {
	Completed bool        `json:"completed"`
	Session   SessionView `json:"session"`
}

// SaveResult reports the outcome of one flush.
type SaveResult struct {
	Trigger  SaveTrigger `json:"trigger"`
	Target   SaveTarget  `json:"target"`
	Version  int         `json:"version"`
	Conflict bool        `json:"conflict"`
	SavedAt  time.Time   `json:"saved_at"`
}
