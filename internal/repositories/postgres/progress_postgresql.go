package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (p ProgressPostgreSQL) Get(ctx context.Context, tx *gorm.DB, key models.ProgressKey) (*models.SurveyProgress, error) {
	db := p.getDB(tx)
	var record models.SurveyProgress
	if err := db.WithContext(ctx).
		Where("user_id = ? AND survey_type = ?", key.UserID, key.SurveyType).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (p ProgressPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, record *models.SurveyProgress, expectedVersion int) (int, error) {
	db := p.getDB(tx).WithContext(ctx)

	if expectedVersion == 0 {
		record.Version = 1
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
		if result.Error != nil {
			return 0, fmt.Errorf("failed to insert progress: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return 0, repositories.ErrVersionConflict
		}
		return record.Version, nil
	}

	result := db.Model(&models.SurveyProgress{}).
		Where("user_id = ? AND survey_type = ? AND version = ?", record.UserID, record.SurveyType, expectedVersion).
		Updates(map[string]interface{}{
			"current_section":  record.CurrentSection,
			"current_question": record.CurrentQuestion,
			"answers":          record.Answers,
			"participant_info": record.ParticipantInfo,
			"version":          gorm.Expr("version + 1"),
			"updated_at":       record.UpdatedAt,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, repositories.ErrVersionConflict
	}
	record.Version = expectedVersion + 1
	return record.Version, nil
}

func (p ProgressPostgreSQL) Overwrite(ctx context.Context, tx *gorm.DB, record *models.SurveyProgress) (int, error) {
	db := p.getDB(tx).WithContext(ctx)

	record.Version = 1
	err := db.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "survey_type"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"current_section":  record.CurrentSection,
				"current_question": record.CurrentQuestion,
				"answers":          record.Answers,
				"participant_info": record.ParticipantInfo,
				"version":          gorm.Expr("survey_progress.version + 1"),
				"updated_at":       record.UpdatedAt,
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "version"}}},
	).Create(record).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert progress: %w", err)
	}
	return record.Version, nil
}

func (p ProgressPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, key models.ProgressKey) error {
	db := p.getDB(tx)
	return db.WithContext(ctx).
		Where("user_id = ? AND survey_type = ?", key.UserID, key.SurveyType).
		Delete(&models.SurveyProgress{}).Error
}

func (p ProgressPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}
