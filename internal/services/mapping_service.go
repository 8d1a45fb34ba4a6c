package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/survey-service/internal/mapping"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/survey"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

// MappingService matches spreadsheet headers against a survey's questions and participant fields.
type MappingService interface {
	AutoMap(ctx context.Context, surveyType string, headers []string) ([]models.MappingSuggestion, error)
	Diagnose(ctx context.Context, surveyType string, headers []string) ([]mapping.Diagnosis, error)
}

type mappingService struct {
	store  *survey.Store
	logger utils.Logger
}

func NewMappingService(store *survey.Store, logger utils.Logger) MappingService {
	return &mappingService{store: store, logger: logger}
}

func (s *mappingService) AutoMap(ctx context.Context, surveyType string, headers []string) ([]models.MappingSuggestion, error) {
	mapper, headers, err := s.mapper(surveyType, headers)
	if err != nil {
		return nil, err
	}

	suggestions := mapper.AutoMap(headers)
	s.logger.DebugContext(ctx, "Headers auto-mapped",
		"survey_type", surveyType,
		"headers", len(headers),
		"mapped", len(suggestions))
	return suggestions, nil
}

func (s *mappingService) Diagnose(ctx context.Context, surveyType string, headers []string) ([]mapping.Diagnosis, error) {
	mapper, headers, err := s.mapper(surveyType, headers)
	if err != nil {
		return nil, err
	}
	return mapper.Diagnose(headers), nil
}

func (s *mappingService) mapper(surveyType string, headers []string) (*mapping.Mapper, []string, error) {
	cleaned := make([]string, 0, len(headers))
	for _, h := range headers {
		if h = strings.TrimSpace(h); h != "" {
			cleaned = append(cleaned, h)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil, NewValidationError("headers", "at least one header is required", headers)
	}

	def, ok := s.store.Snapshot(surveyType)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrSurveyNotFound, surveyType)
	}
	return mapping.NewMapper(def.Registry), cleaned, nil
}
