package repositories

import (
	"errors"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned by a guarded write whose expected version no longer matches
// the stored record, i.e. another session saved in between.
var ErrVersionConflict = errors.New("progress record was modified by another session")

// Repository groups the repositories behind one database handle.
type Repository interface {
	Progress() ProgressRepository
	Submission() SubmissionRepository

	// Transaction runs fn inside a database transaction
	Transaction(fn func(tx *gorm.DB) error) error
	Migrate() error
}

// ===== SHARED FILTER STRUCTS =====

type SubmissionFilters struct {
	SurveyType string                  `json:"survey_type"`
	Status     models.SubmissionStatus `json:"status"`
	UserID     string                  `json:"user_id"`
	DateFrom   *time.Time              `json:"date_from"`
	DateTo     *time.Time              `json:"date_to"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortOrder  string                  `json:"sort_order"` // "asc", "desc"
}
