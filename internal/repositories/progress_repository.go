package repositories

import (
	"context"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"gorm.io/gorm"
)

// ProgressRepository persists one progress record per (user, survey type).
type ProgressRepository interface {
	// Get returns gorm.ErrRecordNotFound when the learner has no saved progress
	Get(ctx context.Context, tx *gorm.DB, key models.ProgressKey) (*models.SurveyProgress, error)

	// Upsert writes the record only if the stored version still equals expectedVersion
	// (0 = no record may exist yet) and returns the new version. On mismatch it returns
	// ErrVersionConflict and stores nothing.
	Upsert(ctx context.Context, tx *gorm.DB, record *models.SurveyProgress, expectedVersion int) (int, error)

	// Overwrite replaces whatever is stored (last write wins) and returns the new version.
	Overwrite(ctx context.Context, tx *gorm.DB, record *models.SurveyProgress) (int, error)

	Delete(ctx context.Context, tx *gorm.DB, key models.ProgressKey) error
}
