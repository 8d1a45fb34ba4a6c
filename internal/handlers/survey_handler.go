package handlers

import (
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type SurveyHandler struct {
	BaseHandler
	surveys services.SurveyService
}

func NewSurveyHandler(surveys services.SurveyService, logger utils.Logger) *SurveyHandler {
	return &SurveyHandler{
		BaseHandler: NewBaseHandler(logger),
		surveys:     surveys,
	}
}

func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	c.JSON(http.StatusOK, h.surveys.List(c.Request.Context()))
}

func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	surveyType := ParseStringIDParam(c, "type")
	if surveyType == "" {
		return
	}

	sv, err := h.surveys.Get(c.Request.Context(), surveyType)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sv)
}

func (h *SurveyHandler) GetQuestions(c *gin.Context) {
	surveyType := ParseStringIDParam(c, "type")
	if surveyType == "" {
		return
	}

	questions, err := h.surveys.Questions(c.Request.Context(), surveyType)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *SurveyHandler) GetReference(c *gin.Context) {
	surveyType := ParseStringIDParam(c, "type")
	if surveyType == "" {
		return
	}

	ref, err := h.surveys.Reference(c.Request.Context(), surveyType)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

// ListSubmissions pages through stored submissions
// @Summary List submissions
// @Tags submissions
// @Produce json
// @Param survey_type query string false "Survey type"
// @Param status query string false "completed or in_progress"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Router /submissions [get]
func (h *SurveyHandler) ListSubmissions(c *gin.Context) {
	filters := repositories.SubmissionFilters{
		SurveyType: c.Query("survey_type"),
		Status:     models.SubmissionStatus(c.Query("status")),
		UserID:     c.Query("user_id"),
		SortOrder:  c.DefaultQuery("sort_order", "desc"),
	}

	var ok bool
	if filters.DateFrom, ok = parseDateQuery(c, "date_from"); !ok {
		return
	}
	if filters.DateTo, ok = parseDateQuery(c, "date_to"); !ok {
		return
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = offset
	}

	submissions, total, err := h.surveys.ListSubmissions(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": submissions,
		"total":       total,
		"limit":       filters.Limit,
		"offset":      filters.Offset,
	})
}

func (h *SurveyHandler) GetSubmission(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	submission, err := h.surveys.GetSubmission(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}
