package handlers

import (
	"errors"
	"net/http"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/SAP-F-2025/survey-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the caller's active survey session. Every route acts on the session
// of (X-User-ID, :type).
type SessionHandler struct {
	BaseHandler
	sessions  services.SessionManager
	validator *validator.Validator
}

func NewSessionHandler(sessions services.SessionManager, validator *validator.Validator, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		validator:   validator,
	}
}

func (h *SessionHandler) key(c *gin.Context) (models.ProgressKey, bool) {
	surveyType := ParseStringIDParam(c, "type")
	if surveyType == "" {
		return models.ProgressKey{}, false
	}
	return models.ProgressKey{UserID: userIDFrom(c), SurveyType: surveyType}, true
}

func (h *SessionHandler) session(c *gin.Context) (*services.Session, bool) {
	key, ok := h.key(c)
	if !ok {
		return nil, false
	}
	s, err := h.sessions.Get(key)
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}
	return s, true
}

// bind decodes and validates a JSON body; ok is false after an error response was written.
func (h *SessionHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		h.handleServiceError(c, err)
		return false
	}
	return true
}

// StartSession opens or resumes the caller's session
// @Summary Start survey session
// @Tags sessions
// @Produce json
// @Param type path string true "Survey type"
// @Success 200 {object} models.SessionView
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{type}/session [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting survey session", "survey_type", key.SurveyType)

	s, err := h.sessions.Start(c.Request.Context(), key)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.View())
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// SetAnswer stores one answer. Grid prompts are addressed as "{question_id}_{prompt_index}".
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	var req models.AnswerRequest
	if !h.bind(c, &req) {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.SetAnswer(req.QuestionID, req.Value); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *SessionHandler) ClearAnswer(c *gin.Context) {
	questionID := ParseStringIDParam(c, "question_id")
	if questionID == "" {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.ClearAnswer(questionID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *SessionHandler) Next(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	completed, err := s.Next()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NavigationResponse{Completed: completed, Session: s.View()})
}

func (h *SessionHandler) Previous(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Previous(); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NavigationResponse{Session: s.View()})
}

func (h *SessionHandler) SetParticipantInfo(c *gin.Context) {
	var req models.ParticipantInfoRequest
	if !h.bind(c, &req) {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.SetParticipantInfo(req.Fields); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// RecordActivity resets the idle countdown
func (h *SessionHandler) RecordActivity(c *gin.Context) {
	var req models.ActivityRequest
	if !h.bind(c, &req) {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.RecordActivity(req.Kind); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) VisibilityChanged(c *gin.Context) {
	var req models.VisibilityRequest
	if !h.bind(c, &req) {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	queued, err := s.VisibilityChanged(req.Hidden)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"save_queued": queued})
}

// SaveProgress flushes the session now. A version conflict answers 409 with the save result;
// the client may retry with overwrite set.
func (h *SessionHandler) SaveProgress(c *gin.Context) {
	var req models.SaveRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	result, err := s.Save(c.Request.Context(), req.Overwrite)
	if errors.Is(err, services.ErrProgressConflict) {
		h.RespondWithError(c, http.StatusConflict, "Progress was saved by another session", err, result)
		return
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Unload is sent when the page goes away. The local copy is written before responding.
func (h *SessionHandler) Unload(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	result, err := h.sessions.Unload(c.Request.Context(), key)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) Submit(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting survey", "survey_type", key.SurveyType)

	submission, err := h.sessions.Submit(c.Request.Context(), key)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "Survey submitted", submission, "submission_id", submission.ID)
}

// CloseSession discards the in-memory session without saving
func (h *SessionHandler) CloseSession(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	if err := h.sessions.Close(key); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
