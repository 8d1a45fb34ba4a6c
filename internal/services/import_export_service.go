package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/export"
	"github.com/SAP-F-2025/survey-service/internal/mapping"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/survey"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/SAP-F-2025/survey-service/internal/validator"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ImportExportService moves historical responses in and out of the service as files
type ImportExportService interface {
	// Export operations
	BuildTables(ctx context.Context, req *models.ExportRequest) (*export.Tables, error)
	Export(ctx context.Context, req *models.ExportRequest) (*ExportResult, error)

	// Import operations
	ImportFromFile(ctx context.Context, surveyType string, file io.Reader, filename, importedBy string) (*models.ImportSummary, error)
	ImportFromCSV(ctx context.Context, surveyType string, reader io.Reader, importedBy string) (*models.ImportSummary, error)
	ImportFromExcel(ctx context.Context, surveyType string, reader io.Reader, importedBy string) (*models.ImportSummary, error)
}

type importExportService struct {
	repo      repositories.Repository
	store     *survey.Store
	notifier  NotificationEventService
	logger    utils.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewImportExportService(
	repo repositories.Repository,
	store *survey.Store,
	notifier NotificationEventService,
	logger utils.Logger,
	validator *validator.Validator,
) ImportExportService {
	return &importExportService{
		repo:      repo,
		store:     store,
		notifier:  notifier,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// ===== EXPORT OPERATIONS =====

type ExportResult struct {
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Data        []byte         `json:"-"`
	Summary     export.Summary `json:"summary"`
}

func (s *importExportService) BuildTables(ctx context.Context, req *models.ExportRequest) (*export.Tables, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	filters := repositories.SubmissionFilters{
		SurveyType: req.SurveyType,
		Status:     req.Status,
		DateFrom:   req.DateFrom,
		DateTo:     endOfDay(req.DateTo),
		SortOrder:  "asc",
	}
	submissions, _, err := s.repo.Submission().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	// a retired survey still exports, every entry then lands in its own column
	var registry *survey.Registry
	if def, ok := s.store.Snapshot(req.SurveyType); ok {
		registry = def.Registry
	} else {
		s.logger.Warn("Exporting survey without a loaded definition", "survey_type", req.SurveyType)
	}

	tables, err := export.Build(submissions, registry, export.Options{
		Status: req.Status,
		From:   filters.DateFrom,
		To:     filters.DateTo,
		Now:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if tables.Summary.SurveyType == "" {
		tables.Summary.SurveyType = req.SurveyType
	}
	return tables, nil
}

func (s *importExportService) Export(ctx context.Context, req *models.ExportRequest) (*ExportResult, error) {
	if req.Format == "" {
		req.Format = models.ExportXLSX
	}

	tables, err := s.BuildTables(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		Filename: fmt.Sprintf("%s-responses-%s.%s", req.SurveyType, s.now().UTC().Format("20060102-150405"), req.Format),
		Summary:  tables.Summary,
	}

	switch req.Format {
	case models.ExportCSV:
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, tables); err != nil {
			return nil, err
		}
		result.ContentType = ContentTypeCSV
		result.Data = buf.Bytes()
	case models.ExportXLSX:
		data, err := export.WriteWorkbook(tables)
		if err != nil {
			return nil, err
		}
		result.ContentType = ContentTypeXLSX
		result.Data = data
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	s.logger.Info("Export completed",
		"survey_type", req.SurveyType,
		"format", req.Format,
		"rows", tables.Summary.Total,
		"skipped_entries", tables.Summary.SkippedEntries)
	return result, nil
}

// endOfDay makes a date-only upper bound cover the whole day.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return t
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}

// ===== IMPORT OPERATIONS =====

func (s *importExportService) ImportFromFile(ctx context.Context, surveyType string, file io.Reader, filename, importedBy string) (*models.ImportSummary, error) {
	s.logger.Info("Starting file import", "filename", filename, "survey_type", surveyType)

	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".csv":
		return s.ImportFromCSV(ctx, surveyType, file, importedBy)
	case ".xlsx":
		return s.ImportFromExcel(ctx, surveyType, file, importedBy)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func (s *importExportService) ImportFromCSV(ctx context.Context, surveyType string, reader io.Reader, importedBy string) (*models.ImportSummary, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV: %v", ErrInvalidImportInput, err)
	}
	return s.importRecords(ctx, surveyType, records, importedBy)
}

func (s *importExportService) ImportFromExcel(ctx context.Context, surveyType string, reader io.Reader, importedBy string) (*models.ImportSummary, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", ErrInvalidImportInput, err)
	}
	defer f.Close()

	// workbooks produced by our own export keep responses on their own sheet
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: Excel file has no sheets", ErrInvalidImportInput)
	}
	sheet := sheets[0]
	if idx, err := f.GetSheetIndex(export.SheetDetailed); err == nil && idx >= 0 {
		sheet = export.SheetDetailed
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return s.importRecords(ctx, surveyType, rows, importedBy)
}

func (s *importExportService) importRecords(ctx context.Context, surveyType string, records [][]string, importedBy string) (*models.ImportSummary, error) {
	start := s.now()

	def, ok := s.store.Snapshot(surveyType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSurveyNotFound, surveyType)
	}
	if len(records) < 2 {
		return nil, ErrEmptyImport
	}

	columns, suggestions, unmapped := planColumns(records[0], def.Registry)
	if len(columns) == 0 {
		return nil, ErrNoMappedHeaders
	}

	summary := &models.ImportSummary{
		TotalRows:       len(records) - 1,
		Status:          models.ImportProcessing,
		Mappings:        suggestions,
		UnmappedHeaders: unmapped,
	}

	var submissions []*models.SurveySubmission
	for i, record := range records[1:] {
		summary.ProcessedRows++
		sub, rowErrors := s.parseRow(record, columns, surveyType, def.Registry, i+2)
		if len(rowErrors) > 0 {
			summary.Errors = append(summary.Errors, rowErrors...)
			summary.ErrorCount++
			continue
		}
		if sub == nil {
			// blank line
			summary.TotalRows--
			summary.ProcessedRows--
			continue
		}
		submissions = append(submissions, sub)
		summary.CreatedIDs = append(summary.CreatedIDs, sub.ID)
		summary.SuccessCount++
	}

	if len(submissions) == 0 {
		summary.Status = models.ImportValidationFailed
		summary.ProcessingTime = s.now().Sub(start)
		return summary, nil
	}

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		return s.repo.Submission().CreateBatch(ctx, tx, submissions)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save imported submissions: %w", err)
	}

	summary.Status = models.ImportCompleted
	summary.ProcessingTime = s.now().Sub(start)

	s.logger.Info("Import completed",
		"survey_type", surveyType,
		"total_rows", summary.TotalRows,
		"success_count", summary.SuccessCount,
		"error_count", summary.ErrorCount,
		"unmapped_headers", len(unmapped))
	_ = s.notifier.NotifyImportCompleted(ctx, surveyType, importedBy, summary)

	return summary, nil
}

// importColumn binds one file column to the slot it fills.
type importColumn struct {
	index  int
	header string
	target string
	key    models.AnswerKey
	info   survey.QuestionInfo
}

var promptHeader = regexp.MustCompile(`^(.+?)\s*\[(.+)\]$`)

// planColumns resolves the header row. "{question} [{prompt}]" headers, as written by the
// export, go straight to their grid prompt; everything else goes through the auto-mapper.
func planColumns(headers []string, registry *survey.Registry) ([]importColumn, []models.MappingSuggestion, []string) {
	var columns []importColumn
	var suggestions []models.MappingSuggestion
	var unmapped []string

	var rest []string
	restIndex := make(map[int]int)
	for i, header := range headers {
		if strings.TrimSpace(header) == "" {
			continue
		}
		if col, ok := gridPromptColumn(header, registry); ok {
			col.index = i
			columns = append(columns, col)
			suggestions = append(suggestions, models.MappingSuggestion{
				ColumnHeader:     header,
				SuggestedMapping: col.key.String(),
				Confidence:       mapping.ExactScore,
				MatchReason:      "scale-grid prompt column",
			})
			continue
		}
		restIndex[len(rest)] = i
		rest = append(rest, header)
	}

	mapper := mapping.NewMapper(registry)
	mapped := make(map[string]models.MappingSuggestion)
	for _, suggestion := range mapper.AutoMap(rest) {
		mapped[suggestion.ColumnHeader] = suggestion
	}

	for j, header := range rest {
		suggestion, ok := mapped[header]
		if !ok {
			unmapped = append(unmapped, header)
			continue
		}
		col := importColumn{index: restIndex[j], header: header, target: suggestion.SuggestedMapping}
		if info, ok := registry.Lookup(suggestion.SuggestedMapping); ok {
			if info.Type == models.QuestionScaleGrid {
				// a whole grid cannot be filled from one cell
				unmapped = append(unmapped, header)
				continue
			}
			col.key = models.QuestionKey(info.ID)
			col.info = info
		}
		suggestions = append(suggestions, suggestion)
		columns = append(columns, col)
	}
	return columns, suggestions, unmapped
}

func gridPromptColumn(header string, registry *survey.Registry) (importColumn, bool) {
	m := promptHeader.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return importColumn{}, false
	}
	info, ok := registry.ByText(m[1])
	if !ok || info.Type != models.QuestionScaleGrid {
		return importColumn{}, false
	}
	for i, prompt := range info.Prompts {
		if strings.EqualFold(strings.TrimSpace(prompt), strings.TrimSpace(m[2])) {
			key := models.PromptKey(info.ID, i)
			return importColumn{header: header, target: key.String(), key: key, info: info}, true
		}
	}
	return importColumn{}, false
}

var importTimeLayouts = []string{export.TimestampLayout, time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

// parseRow turns one data row into a submission. A row without any value returns nil.
func (s *importExportService) parseRow(record []string, columns []importColumn, surveyType string, registry *survey.Registry, rowNum int) (*models.SurveySubmission, []models.ImportValidationError) {
	var rowErrors []models.ImportValidationError
	answers := models.AnswerMap{}
	sub := &models.SurveySubmission{
		ID:         uuid.NewString(),
		SurveyType: surveyType,
		Status:     models.SubmissionCompleted,
	}
	hasValue := false

	for _, col := range columns {
		if col.index >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[col.index])
		if value == "" {
			continue
		}
		hasValue = true

		switch col.target {
		case mapping.FieldSubmittedAt:
			at, err := parseImportTime(value)
			if err != nil {
				rowErrors = append(rowErrors, models.ImportValidationError{Row: rowNum, Column: col.header, Message: "unrecognised date", Value: value})
				continue
			}
			sub.SubmittedAt = &at
			continue
		case mapping.FieldStatus:
			status, ok := parseStatus(value)
			if !ok {
				rowErrors = append(rowErrors, models.ImportValidationError{Row: rowNum, Column: col.header, Message: "status must be completed or in progress", Value: value})
				continue
			}
			sub.Status = status
			continue
		case mapping.FieldParticipantName:
			if sub.LearnerName == "" {
				sub.LearnerName = value
			}
		}

		key := col.target
		answer := models.StringAnswer(value)
		if !col.info.IsUnknown() && col.info.ID != "" {
			key = col.key.String()
			answer = importAnswer(col.info, value)
		}
		if existing, ok := answers[key]; ok && !existing.IsEmpty() {
			continue
		}
		answers[key] = answer
	}

	if !hasValue {
		return nil, nil
	}
	if len(rowErrors) > 0 {
		return nil, rowErrors
	}
	if answers.NonEmpty() == 0 {
		return nil, []models.ImportValidationError{{Row: rowNum, Message: "row has no answers"}}
	}

	responses, err := models.EncodeResponses(answers)
	if err != nil {
		return nil, []models.ImportValidationError{{Row: rowNum, Message: err.Error()}}
	}
	sub.Responses = responses
	if sub.SubmittedAt == nil {
		now := s.now()
		sub.SubmittedAt = &now
	}
	return sub, nil
}

// importAnswer converts a cell back into the stored answer form: checkbox cells become lists
// and scale labels become their 1-based position.
func importAnswer(info survey.QuestionInfo, value string) models.AnswerValue {
	switch info.Type {
	case models.QuestionCheckbox:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return models.ListAnswer(items...)
	case models.QuestionScale, models.QuestionScaleGrid:
		for i, label := range info.ScaleLabels {
			if strings.EqualFold(strings.TrimSpace(label), value) {
				return models.StringAnswer(strconv.Itoa(i + 1))
			}
		}
	}
	return models.StringAnswer(value)
}

func parseImportTime(value string) (time.Time, error) {
	for _, layout := range importTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date")
}

func parseStatus(value string) (models.SubmissionStatus, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), " ", "_")
	switch models.SubmissionStatus(normalized) {
	case models.SubmissionCompleted:
		return models.SubmissionCompleted, true
	case models.SubmissionInProgress:
		return models.SubmissionInProgress, true
	}
	return "", false
}
