package repositories

import (
	"context"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"gorm.io/gorm"
)

// SubmissionRepository interface for historical survey responses
type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.SurveySubmission) error
	CreateBatch(ctx context.Context, tx *gorm.DB, submissions []*models.SurveySubmission) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SurveySubmission, error)
	List(ctx context.Context, tx *gorm.DB, filters SubmissionFilters) ([]models.SurveySubmission, int64, error)
}
