package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger utils.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: utils.ToSlogLogger(logger).With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// ===== OPERATION LOGGING =====

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID, surveyType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		// Adjust log level based on error type
		switch {
		case IsValidation(err) || IsBusinessRule(err):
			level = slog.LevelWarn
			status = "validation_error"
		case IsConflict(err):
			level = slog.LevelWarn
			status = "conflict"
		case IsNotFound(err):
			level = slog.LevelInfo
			status = "not_found"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("survey_type", surveyType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		if validationErr, ok := err.(ValidationErrors); ok {
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		} else if businessErr, ok := err.(*BusinessRuleError); ok {
			attrs = append(attrs, slog.String("business_rule", businessErr.Rule))
		}

		if pc, file, line, ok := runtime.Caller(2); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				attrs = append(attrs,
					slog.String("caller_func", fn.Name()),
					slog.String("caller_file", file),
					slog.Int("caller_line", line),
				)
			}
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

// LogSave records where a flush landed.
func (l *ServiceLogger) LogSave(ctx context.Context, key models.ProgressKey, trigger models.SaveTrigger, target models.SaveTarget, revision uint64, err error) {
	attrs := []slog.Attr{
		slog.String("user_id", key.UserID),
		slog.String("survey_type", key.SurveyType),
		slog.String("trigger", string(trigger)),
		slog.String("target", string(target)),
		slog.Uint64("revision", revision),
	}
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if level == slog.LevelDebug && !l.config.EnableDebug {
		return
	}
	l.logger.LogAttrs(ctx, level, "Progress flushed", attrs...)
}

// ===== ERROR RECOVERY LOGGING =====

func (l *ServiceLogger) LogRecovery(ctx context.Context, operation string, key models.ProgressKey, recovered interface{}, stack []byte) {
	l.logger.LogAttrs(ctx, slog.LevelError, "Panic recovered",
		slog.String("operation", operation),
		slog.String("user_id", key.UserID),
		slog.String("survey_type", key.SurveyType),
		slog.Any("panic_value", recovered),
		slog.String("stack_trace", string(stack)),
	)
}

// ===== CONTEXTUAL LOGGER =====

type ContextualLogger struct {
	*ServiceLogger
	ctx        context.Context
	operation  string
	userID     string
	surveyType string
	startTime  time.Time
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, userID, surveyType string) *ContextualLogger {
	return &ContextualLogger{
		ServiceLogger: l,
		ctx:           ctx,
		operation:     operation,
		userID:        userID,
		surveyType:    surveyType,
		startTime:     time.Now(),
	}
}

func (cl *ContextualLogger) LogResult(err error) {
	cl.LogOperation(cl.ctx, cl.operation, cl.userID, cl.surveyType, time.Since(cl.startTime), err)
}

// LogParticipantInfo records which participant fields changed, with contact details masked.
func (l *ServiceLogger) LogParticipantInfo(ctx context.Context, key models.ProgressKey, info map[string]string) {
	if !l.config.EnableDebug {
		return
	}
	l.logger.DebugContext(ctx, "Participant info updated",
		"user_id", key.UserID,
		"survey_type", key.SurveyType,
		"fields", SanitizeParticipantInfo(info),
	)
}

// SanitizeParticipantInfo masks contact details before participant info reaches a log line.
func SanitizeParticipantInfo(info map[string]string) map[string]string {
	if info == nil {
		return nil
	}
	out := make(map[string]string, len(info))
	for k, v := range info {
		lower := strings.ToLower(k)
		if v != "" && (strings.Contains(lower, "email") || strings.Contains(lower, "phone")) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}
