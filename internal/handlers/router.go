package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/SAP-F-2025/survey-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	surveyHandler  *SurveyHandler
	exportHandler  *ExportHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Sessions(), validator, logger),
		surveyHandler:  NewSurveyHandler(serviceManager.Surveys(), logger),
		exportHandler:  NewExportHandler(serviceManager.ImportExport(), serviceManager.Mapping(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		surveys := v1.Group("/surveys")
		{
			surveys.GET("", hm.surveyHandler.ListSurveys)
			surveys.GET("/:type", hm.surveyHandler.GetSurvey)
			surveys.GET("/:type/questions", hm.surveyHandler.GetQuestions)
			surveys.GET("/:type/reference", hm.surveyHandler.GetReference)

			// Exports and imports
			surveys.GET("/:type/export", hm.exportHandler.ExportResponses)
			surveys.GET("/:type/export/summary", hm.exportHandler.ExportSummary)
			surveys.POST("/:type/mappings/automap", hm.exportHandler.AutoMap)
			surveys.POST("/:type/mappings/diagnose", hm.exportHandler.Diagnose)
			surveys.POST("/:type/import", UserIDMiddleware(), hm.exportHandler.ImportResponses)

			// The caller's session
			session := surveys.Group("/:type/session", UserIDMiddleware())
			{
				session.POST("", hm.sessionHandler.StartSession)
				session.GET("", hm.sessionHandler.GetSession)
				session.DELETE("", hm.sessionHandler.CloseSession)
				session.PUT("/answers", hm.sessionHandler.SetAnswer)
				session.DELETE("/answers/:question_id", hm.sessionHandler.ClearAnswer)
				session.POST("/next", hm.sessionHandler.Next)
				session.POST("/previous", hm.sessionHandler.Previous)
				session.PUT("/participant", hm.sessionHandler.SetParticipantInfo)
				session.POST("/activity", hm.sessionHandler.RecordActivity)
				session.POST("/visibility", hm.sessionHandler.VisibilityChanged)
				session.POST("/save", hm.sessionHandler.SaveProgress)
				session.POST("/unload", hm.sessionHandler.Unload)
				session.POST("/submit", hm.sessionHandler.Submit)
			}
		}

		submissions := v1.Group("/submissions")
		{
			submissions.GET("", hm.surveyHandler.ListSubmissions)
			submissions.GET("/:id", hm.surveyHandler.GetSubmission)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "survey-service",
	})
}
