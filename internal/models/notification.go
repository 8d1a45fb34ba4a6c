package models

type NotificationType string
type NotificationPriority int

const (
	NotificationSavedRemote    NotificationType = "saved_remote"
	NotificationSavedLocalOnly NotificationType = "saved_local_only"
	NotificationIdleSaved      NotificationType = "idle_saved"
	NotificationSaveConflict   NotificationType = "save_conflict"
	NotificationSubmitted      NotificationType = "submitted"
	NotificationImportDone     NotificationType = "import_completed"

	PriorityLow    NotificationPriority = 1
	PriorityNormal NotificationPriority = 2
	PriorityHigh   NotificationPriority = 3
)

// Notification is a non-blocking, user-facing status message (a toast on the client).
type Notification struct {
	Type       NotificationType     `json:"type"`
	UserID     string               `json:"user_id"`
	SurveyType string               `json:"survey_type"`
	Title      string               `json:"title"`
	Message    string               `json:"message"`
	Priority   NotificationPriority `json:"priority"`
}
