package models

import "time"

type ImportJobStatus string

const (
	ImportProcessing       ImportJobStatus = "processing"
	ImportCompleted        ImportJobStatus = "completed"
	ImportValidationFailed ImportJobStatus = "validation_failed"
)

// MappingSuggestion associates an external column header with a canonical question or
// participant field. Produced per import/export operation, never persisted.
type MappingSuggestion struct {
	ColumnHeader     string  `json:"column_header"`
	SuggestedMapping string  `json:"suggested_mapping"`
	Confidence       float64 `json:"confidence"`
	MatchReason      string  `json:"match_reason"`
}

// ExportFormat selects the export artifact.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

type ExportRequest struct {
	SurveyType string           `json:"survey_type" form:"survey_type" validate:"required,survey_type"`
	Format     ExportFormat     `json:"format" form:"format" validate:"omitempty,oneof=csv xlsx"`
	Status     SubmissionStatus `json:"status" form:"status" validate:"omitempty,oneof=completed in_progress"`
	DateFrom   *time.Time       `json:"date_from" form:"date_from" time_format:"2006-01-02"`
	DateTo     *time.Time       `json:"date_to" form:"date_to" time_format:"2006-01-02"`
}

type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

type ImportSummary struct {
	TotalRows       int                     `json:"total_rows"`
	ProcessedRows   int                     `json:"processed_rows"`
	SuccessCount    int                     `json:"success_count"`
	ErrorCount      int                     `json:"error_count"`
	Status          ImportJobStatus         `json:"status"`
	Mappings        []MappingSuggestion     `json:"mappings"`
	UnmappedHeaders []string                `json:"unmapped_headers"`
	CreatedIDs      []string                `json:"created_ids"`
	Errors          []ImportValidationError `json:"errors"`
	ProcessingTime  time.Duration           `json:"processing_time"`
}
