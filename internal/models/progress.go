package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ProgressState is the in-memory snapshot of one learner's position in a survey.
type ProgressState struct {
	CurrentSection  int               `json:"current_section"`
	CurrentQuestion int               `json:"current_question"`
	Answers         AnswerMap         `json:"answers"`
	ParticipantInfo map[string]string `json:"participant_info,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ProgressKey identifies the single progress record a learner may hold per survey type.
type ProgressKey struct {
	UserID     string `json:"user_id"`
	SurveyType string `json:"survey_type"`
}

func (k ProgressKey) String() string {
	return fmt.Sprintf("%s:%s", k.UserID, k.SurveyType)
}

// SurveyProgress is the persisted form of ProgressState, unique per (user_id, survey_type).
type SurveyProgress struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	UserID          string         `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_progress_user_survey"`
	SurveyType      string         `json:"survey_type" gorm:"not null;size:100;uniqueIndex:idx_progress_user_survey"`
	CurrentSection  int            `json:"current_section" gorm:"not null;default:0"`
	CurrentQuestion int            `json:"current_question" gorm:"not null;default:0"`
	Answers         datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	ParticipantInfo datatypes.JSON `json:"participant_info" gorm:"type:jsonb"`

	// Version is bumped on every guarded write; see ProgressRepository.Upsert.
	Version int `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SurveyProgress) TableName() string {
	return "survey_progress"
}

func (p *SurveyProgress) Key() ProgressKey {
	return ProgressKey{UserID: p.UserID, SurveyType: p.SurveyType}
}

// NewSurveyProgress encodes a state into its persisted record.
func NewSurveyProgress(key ProgressKey, state ProgressState) (*SurveyProgress, error) {
	answers := state.Answers
	if answers == nil {
		answers = AnswerMap{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	var infoJSON []byte
	if state.ParticipantInfo != nil {
		if infoJSON, err = json.Marshal(state.ParticipantInfo); err != nil {
			return nil, fmt.Errorf("failed to encode participant info: %w", err)
		}
	}

	return &SurveyProgress{
		UserID:          key.UserID,
		SurveyType:      key.SurveyType,
		CurrentSection:  state.CurrentSection,
		CurrentQuestion: state.CurrentQuestion,
		Answers:         datatypes.JSON(answersJSON),
		ParticipantInfo: datatypes.JSON(infoJSON),
		UpdatedAt:       state.UpdatedAt,
	}, nil
}

// State decodes the record back into a ProgressState.
func (p *SurveyProgress) State() (ProgressState, error) {
	state := ProgressState{
		CurrentSection:  p.CurrentSection,
		CurrentQuestion: p.CurrentQuestion,
		Answers:         AnswerMap{},
		UpdatedAt:       p.UpdatedAt,
	}
	if len(p.Answers) > 0 {
		if err := json.Unmarshal(p.Answers, &state.Answers); err != nil {
			return ProgressState{}, fmt.Errorf("failed to decode answers: %w", err)
		}
	}
	if len(p.ParticipantInfo) > 0 && string(p.ParticipantInfo) != "null" {
		if err := json.Unmarshal(p.ParticipantInfo, &state.ParticipantInfo); err != nil {
			return ProgressState{}, fmt.Errorf("failed to decode participant info: %w", err)
		}
	}
	return state, nil
}
