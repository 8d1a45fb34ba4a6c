package postgres

import (
	"context"
	"strings"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const batchSize = 100

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (s SubmissionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, submission *models.SurveySubmission) error {
	db := s.getDB(tx)
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(submission).Error
}

func (s SubmissionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, submissions []*models.SurveySubmission) error {
	if len(submissions) == 0 {
		return nil
	}
	db := s.getDB(tx)
	for _, sub := range submissions {
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).CreateInBatches(submissions, batchSize).Error
}

func (s SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SurveySubmission, error) {
	db := s.getDB(tx)
	var submission models.SurveySubmission
	if err := db.WithContext(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s SubmissionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.SubmissionFilters) ([]models.SurveySubmission, int64, error) {
	var submissions []models.SurveySubmission
	var total int64

	// apply filter first
	query := s.getDB(tx).WithContext(ctx).Model(&models.SurveySubmission{})
	query = s.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	order := "ASC"
	if strings.EqualFold(filters.SortOrder, "desc") {
		order = "DESC"
	}
	query = query.Order("COALESCE(submitted_at, created_at) " + order)
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&submissions).Error; err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

func (s SubmissionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.SubmissionFilters) *gorm.DB {
	if filters.SurveyType != "" {
		query = query.Where("survey_type = ?", filters.SurveyType)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.DateFrom != nil {
		query = query.Where("COALESCE(submitted_at, created_at) >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("COALESCE(submitted_at, created_at) <= ?", *filters.DateTo)
	}
	return query
}

func (s SubmissionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
