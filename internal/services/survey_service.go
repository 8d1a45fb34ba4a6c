package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/survey-service/internal/export"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/survey"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"gorm.io/gorm"
)

type SurveyService interface {
	List(ctx context.Context) []SurveyOverview
	Get(ctx context.Context, surveyType string) (*models.Survey, error)
	Questions(ctx context.Context, surveyType string) ([]survey.QuestionInfo, error)
	Reference(ctx context.Context, surveyType string) (*export.Table, error)

	// Submissions
	GetSubmission(ctx context.Context, id string) (*models.SurveySubmission, error)
	ListSubmissions(ctx context.Context, filters repositories.SubmissionFilters) ([]models.SurveySubmission, int64, error)
}

// SurveyOverview is the listing entry of one loaded survey definition.
type SurveyOverview struct {
	Type            string `json:"type"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Sections        int    `json:"sections"`
	Questions       int    `json:"questions"`
	ParticipantStep bool   `json:"participant_step"`
}

type surveyService struct {
	repo   repositories.Repository
	store  *survey.Store
	logger utils.Logger
}

func NewSurveyService(repo repositories.Repository, store *survey.Store, logger utils.Logger) SurveyService {
	return &surveyService{repo: repo, store: store, logger: logger}
}

func (s *surveyService) List(ctx context.Context) []SurveyOverview {
	types := s.store.Types()
	list := make([]SurveyOverview, 0, len(types))
	for _, t := range types {
		def, ok := s.store.Snapshot(t)
		if !ok {
			// removed between Types and Snapshot
			continue
		}
		list = append(list, SurveyOverview{
			Type:            def.Survey.Type,
			Title:           def.Survey.Title,
			Description:     def.Survey.Description,
			Sections:        len(def.Survey.Sections),
			Questions:       def.Registry.Len(),
			ParticipantStep: def.Survey.ParticipantStep,
		})
	}
	return list
}

func (s *surveyService) Get(ctx context.Context, surveyType string) (*models.Survey, error) {
	def, err := s.definition(surveyType)
	if err != nil {
		return nil, err
	}
	return def.Survey, nil
}

func (s *surveyService) Questions(ctx context.Context, surveyType string) ([]survey.QuestionInfo, error) {
	def, err := s.definition(surveyType)
	if err != nil {
		return nil, err
	}
	return def.Registry.Questions(), nil
}

func (s *surveyService) Reference(ctx context.Context, surveyType string) (*export.Table, error) {
	def, err := s.definition(surveyType)
	if err != nil {
		return nil, err
	}
	ref := export.Reference(def.Registry)
	return &ref, nil
}

func (s *surveyService) definition(surveyType string) (*survey.Definition, error) {
	def, ok := s.store.Snapshot(surveyType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSurveyNotFound, surveyType)
	}
	return def, nil
}

func (s *surveyService) GetSubmission(ctx context.Context, id string) (*models.SurveySubmission, error) {
	if id == "" {
		return nil, NewValidationError("id", "submission id is required", id)
	}

	submission, err := s.repo.Submission().GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error("Failed to load submission", "submission_id", id, "error", err)
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return submission, nil
}

func (s *surveyService) ListSubmissions(ctx context.Context, filters repositories.SubmissionFilters) ([]models.SurveySubmission, int64, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	submissions, total, err := s.repo.Submission().List(ctx, nil, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}
