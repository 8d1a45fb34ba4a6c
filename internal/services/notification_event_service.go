package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

// NotificationEventService turns save and submission outcomes into published events.
// Publishing never fails the operation that triggered it; errors are logged and returned
// only so tests can observe them.
type NotificationEventService interface {
	// Progress notifications
	NotifyProgressSaved(ctx context.Context, key models.ProgressKey, result models.SaveResult, progress float64) error

	// Submission notifications
	NotifySurveySubmitted(ctx context.Context, submission *models.SurveySubmission, answerCount int) error
	NotifyImportCompleted(ctx context.Context, surveyType, importedBy string, summary *models.ImportSummary) error
}

type notificationEventService struct {
	eventPublisher events.EventPublisher
	logger         utils.Logger
}

func NewNotificationEventService(eventPublisher events.EventPublisher, logger utils.Logger) NotificationEventService {
	return &notificationEventService{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// ===== PROGRESS NOTIFICATIONS =====

func (s *notificationEventService) NotifyProgressSaved(ctx context.Context, key models.ProgressKey, result models.SaveResult, progress float64) error {
	if result.Target == models.SaveSkipped {
		return nil
	}

	eventType, notification := progressNotification(key, result)
	event := events.NewProgressSavedEvent(eventType, events.ProgressSavedEvent{
		UserID:       key.UserID,
		SurveyType:   key.SurveyType,
		Trigger:      result.Trigger,
		Target:       result.Target,
		Version:      result.Version,
		Progress:     progress,
		SavedAt:      result.SavedAt,
		Notification: notification,
	})
	return s.publish(ctx, event)
}

func progressNotification(key models.ProgressKey, result models.SaveResult) (events.EventType, models.Notification) {
	n := models.Notification{UserID: key.UserID, SurveyType: key.SurveyType, Priority: models.PriorityLow}

	switch {
	case result.Conflict:
		n.Type = models.NotificationSaveConflict
		n.Title = "Progress changed elsewhere"
		n.Message = "Your answers were kept on this device. Save again to replace the other copy."
		n.Priority = models.PriorityHigh
		return events.EventProgressConflict, n
	case result.Trigger == models.TriggerIdle:
		n.Type = models.NotificationIdleSaved
		n.Title = "Progress saved"
		n.Message = "You were inactive for a while, so your progress was saved."
		n.Priority = models.PriorityNormal
		return events.EventProgressIdleSaved, n
	case result.Target == models.SavedLocalOnly:
		n.Type = models.NotificationSavedLocalOnly
		n.Title = "Saved on this device"
		n.Message = "Progress could not reach the server and was saved locally."
		n.Priority = models.PriorityNormal
		return events.EventProgressSavedLocalOnly, n
	default:
		n.Type = models.NotificationSavedRemote
		n.Title = "Progress saved"
		n.Message = "Your progress has been saved."
		return events.EventProgressSavedRemote, n
	}
}

// ===== SUBMISSION NOTIFICATIONS =====

func (s *notificationEventService) NotifySurveySubmitted(ctx context.Context, submission *models.SurveySubmission, answerCount int) error {
	s.logger.Info("Publishing survey submitted event",
		"submission_id", submission.ID,
		"survey_type", submission.SurveyType)

	var submittedAt = submission.CreatedAt
	if submission.SubmittedAt != nil {
		submittedAt = *submission.SubmittedAt
	}

	event := events.NewSurveySubmittedEvent(events.SurveySubmittedEvent{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		SurveyType:   submission.SurveyType,
		AnswerCount:  answerCount,
		SubmittedAt:  submittedAt,
		Notification: models.Notification{
			Type:       models.NotificationSubmitted,
			UserID:     submission.UserID,
			SurveyType: submission.SurveyType,
			Title:      "Survey submitted",
			Message:    "Thank you, your responses have been recorded.",
			Priority:   models.PriorityNormal,
		},
	})
	return s.publish(ctx, event)
}

func (s *notificationEventService) NotifyImportCompleted(ctx context.Context, surveyType, importedBy string, summary *models.ImportSummary) error {
	s.logger.Info("Publishing import completed event",
		"survey_type", surveyType,
		"imported", summary.SuccessCount)

	event := events.NewImportCompletedEvent(events.ImportCompletedEvent{
		SurveyType:      surveyType,
		Imported:        summary.SuccessCount,
		SkippedRows:     summary.ErrorCount,
		UnmappedHeaders: summary.UnmappedHeaders,
		ImportedBy:      importedBy,
	})
	return s.publish(ctx, event)
}

func (s *notificationEventService) publish(ctx context.Context, event *events.NotificationEvent) error {
	if err := s.eventPublisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish notification event",
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}
