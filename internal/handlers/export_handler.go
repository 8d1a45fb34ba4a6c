package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const maxImportSize = 10 << 20

// MappingRequest carries the spreadsheet headers to map
type MappingRequest struct {
	Headers []string `json:"headers" binding:"required,min=1"`
}

// ExportHandler serves response exports, header mapping and response imports
type ExportHandler struct {
	BaseHandler
	importExport services.ImportExportService
	mapping      services.MappingService
}

func NewExportHandler(importExport services.ImportExportService, mapping services.MappingService, logger utils.Logger) *ExportHandler {
	return &ExportHandler{
		BaseHandler:  NewBaseHandler(logger),
		importExport: importExport,
		mapping:      mapping,
	}
}

// ExportResponses downloads the reconciled responses of a survey
// @Summary Export responses
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,text/csv
// @Param type path string true "Survey type"
// @Param format query string false "xlsx (default) or csv"
// @Param status query string false "completed or in_progress"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD, inclusive"
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{type}/export [get]
func (h *ExportHandler) ExportResponses(c *gin.Context) {
	req, ok := h.exportRequest(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting responses", "survey_type", req.SurveyType, "format", req.Format)

	result, err := h.importExport.Export(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// ExportSummary returns the summary and tables as JSON instead of a file
func (h *ExportHandler) ExportSummary(c *gin.Context) {
	req, ok := h.exportRequest(c)
	if !ok {
		return
	}

	tables, err := h.importExport.BuildTables(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (h *ExportHandler) exportRequest(c *gin.Context) (*models.ExportRequest, bool) {
	surveyType := ParseStringIDParam(c, "type")
	if surveyType == "" {
		return nil, false
	}

	req := &models.ExportRequest{
		SurveyType: surveyType,
		Format:     models.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportXLSX)))),
		Status:     models.SubmissionStatus(c.Query("status")),
	}

	var ok bool
	if req.DateFrom, ok = parseDateQuery(c, "date_from"); !ok {
		return nil, false
	}
	if req.DateTo, ok = parseDateQuery(c, "date_to"); !ok {
		return nil, false
	}
	return req, true
}

func (h *ExportHandler) AutoMap(c *gin.Context) {
	surveyType := ParseStringIDParam(c, "type")
	if surveyType == "" {
		return
	}
	var req MappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	suggestions, err := h.mapping.AutoMap(c.Request.Context(), surveyType, req.Headers)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestions)
}

func (h *ExportHandler) Diagnose(c *gin.Context) {
	surveyType := ParseStringIDParam(c, "type")
	if surveyType == "" {
		return
	}
	var req MappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	diagnoses, err := h.mapping.Diagnose(c.Request.Context(), surveyType, req.Headers)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, diagnoses)
}

// ImportResponses stores the rows of an uploaded CSV or XLSX file as submissions
// @Summary Import responses
// @Tags imports
// @Accept multipart/form-data
// @Param type path string true "Survey type"
// @Param file formData file true "CSV or XLSX file"
// @Success 200 {object} models.ImportSummary
// @Router /surveys/{type}/import [post]
func (h *ExportHandler) ImportResponses(c *gin.Context) {
	surveyType := ParseStringIDParam(c, "type")
	if surveyType == "" {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	if fileHeader.Size > maxImportSize {
		h.RespondWithError(c, http.StatusBadRequest, "File too large", nil, fmt.Sprintf("maximum size is %d bytes", maxImportSize))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing responses", "survey_type", surveyType, "filename", filepath.Base(fileHeader.Filename))

	summary, err := h.importExport.ImportFromFile(c.Request.Context(), surveyType, file, fileHeader.Filename, userIDFrom(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if summary.Status == models.ImportValidationFailed {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, summary)
}
