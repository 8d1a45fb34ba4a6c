package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/progress"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/survey"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// SessionManager keeps at most one active Session per (user, survey type).
type SessionManager interface {
	// Start returns the active session or opens one, restoring the newer of the remote
	// record and the local cache, or an empty state.
	Start(ctx context.Context, key models.ProgressKey) (*Session, error)
	Get(key models.ProgressKey) (*Session, error)

	// Submit stores the answers of a completed walk-through as a submission and discards
	// the progress record.
	Submit(ctx context.Context, key models.ProgressKey) (*models.SurveySubmission, error)
	// Unload saves locally, starts the remote save and tears the session down in the background.
	Unload(ctx context.Context, key models.ProgressKey) (models.SaveResult, error)
	Close(key models.ProgressKey) error
	Shutdown()

	ActiveSessions() int
}

type sessionManager struct {
	repo     repositories.Repository
	store    *survey.Store
	local    *cache.ProgressCache
	notifier NotificationEventService
	logger   utils.Logger
	slogger  *ServiceLogger
	cfg      SessionConfig

	group       singleflight.Group
	mu          sync.Mutex
	sessions    map[models.ProgressKey]*Session
	stopped     bool
	teardowns   sync.WaitGroup
	unsubscribe func()
}

func NewSessionManager(
	repo repositories.Repository,
	store *survey.Store,
	local *cache.ProgressCache,
	notifier NotificationEventService,
	logger utils.Logger,
	cfg SessionConfig,
) SessionManager {
	defaults := DefaultSessionConfig()
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = defaults.AutosaveInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaults.IdleTimeout
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaults.SaveTimeout
	}

	m := &sessionManager{
		repo:     repo,
		store:    store,
		local:    local,
		notifier: notifier,
		logger:   logger,
		slogger:  NewServiceLogger(logger, LogConfig{Service: "survey-service", Component: "sessions"}),
		cfg:      cfg,
		sessions: make(map[models.ProgressKey]*Session),
	}
	m.unsubscribe = store.Subscribe(m.onDefinitionChanged)
	return m
}

func (m *sessionManager) Start(ctx context.Context, key models.ProgressKey) (*Session, error) {
	if key.UserID == "" || key.SurveyType == "" {
		return nil, fmt.Errorf("%w: user id and survey type are required", ErrBadRequest)
	}
	if s, err := m.lookup(key); s != nil || err != nil {
		return s, err
	}

	v, err, _ := m.group.Do(key.String(), func() (interface{}, error) {
		if s, err := m.lookup(key); s != nil || err != nil {
			return s, err
		}

		s, err := m.open(ctx, key)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			s.Close()
			return nil, ErrSessionClosed
		}
		m.sessions[key] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *sessionManager) lookup(key models.ProgressKey) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil, ErrSessionClosed
	}
	return m.sessions[key], nil
}

func (m *sessionManager) open(ctx context.Context, key models.ProgressKey) (*Session, error) {
	log := m.slogger.WithOperation(ctx, "start_session", key.UserID, key.SurveyType)

	def, ok := m.store.Snapshot(key.SurveyType)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrSurveyNotFound, key.SurveyType)
		log.LogResult(err)
		return nil, err
	}

	machine := progress.New(def.Survey)
	saved := m.load(ctx, key)
	if saved.restored {
		machine.Restore(saved.state)
	}

	log.LogResult(nil)
	return newSession(key, def, machine, saved.version, saved.pending, m.cfg, m.repo.Progress(), m.local, m.notifier, m.slogger), nil
}

type savedProgress struct {
	state    models.ProgressState
	version  int  // remote version the session writes against; 0 when there is no remote record
	restored bool // state holds saved progress
	pending  bool // state came from a local copy newer than the remote record
}

// load restores the newer of the remote record and the local cache. The remote record wins
// ties; the local copy is the fallback when the remote store is unavailable.
func (m *sessionManager) load(ctx context.Context, key models.ProgressKey) savedProgress {
	var saved savedProgress

	record, err := m.repo.Progress().Get(ctx, nil, key)
	switch {
	case err == nil:
		saved.version = record.Version
		state, decodeErr := record.State()
		if decodeErr == nil {
			saved.state, saved.restored = state, true
			break
		}
		m.logger.Warn("Stored progress could not be decoded",
			"user_id", key.UserID, "survey_type", key.SurveyType, "error", decodeErr)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		m.logger.Warn("Remote progress unavailable, trying local cache",
			"user_id", key.UserID, "survey_type", key.SurveyType, "error", err)
	}

	local, err := m.local.Load(ctx, key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			m.logger.Warn("Local progress unavailable",
				"user_id", key.UserID, "survey_type", key.SurveyType, "error", err)
		}
		return saved
	}

	if !saved.restored {
		saved.state, saved.restored = local, true
		return saved
	}
	if local.UpdatedAt.After(saved.state.UpdatedAt) {
		m.logger.Info("Local progress is newer than the remote record",
			"user_id", key.UserID, "survey_type", key.SurveyType,
			"local_updated_at", local.UpdatedAt, "remote_updated_at", saved.state.UpdatedAt)
		saved.state, saved.pending = local, true
	}
	return saved
}

func (m *sessionManager) Get(key models.ProgressKey) (*Session, error) {
	s, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *sessionManager) Submit(ctx context.Context, key models.ProgressKey) (*models.SurveySubmission, error) {
	log := m.slogger.WithOperation(ctx, "submit_survey", key.UserID, key.SurveyType)

	s, err := m.Get(key)
	if err != nil {
		log.LogResult(err)
		return nil, err
	}

	// from here on nothing can save into the progress record that is about to be deleted
	state, err := s.freeze()
	if err != nil {
		log.LogResult(err)
		return nil, err
	}

	submission, err := buildSubmission(key, state, time.Now())
	if err != nil {
		s.thaw()
		log.LogResult(err)
		return nil, err
	}

	err = m.repo.Transaction(func(tx *gorm.DB) error {
		if err := m.repo.Submission().Create(ctx, tx, submission); err != nil {
			return fmt.Errorf("failed to store submission: %w", err)
		}
		if err := m.repo.Progress().Delete(ctx, tx, key); err != nil {
			return fmt.Errorf("failed to delete progress: %w", err)
		}
		return nil
	})
	if err != nil {
		s.thaw()
		log.LogResult(err)
		return nil, err
	}

	m.detach(key, s)
	s.Close()

	if err := m.local.Delete(ctx, key); err != nil {
		m.logger.Warn("Failed to clear local progress", "user_id", key.UserID, "survey_type", key.SurveyType, "error", err)
	}
	_ = m.notifier.NotifySurveySubmitted(ctx, submission, state.Answers.NonEmpty())

	log.LogResult(nil)
	return submission, nil
}

// buildSubmission stores answers in the id-keyed format. Participant fields are added under
// their own ids unless a question already uses that id.
func buildSubmission(key models.ProgressKey, state models.ProgressState, now time.Time) (*models.SurveySubmission, error) {
	answers := state.Answers.Clone()
	if answers == nil {
		answers = models.AnswerMap{}
	}
	for id, value := range state.ParticipantInfo {
		if _, taken := answers[id]; !taken && strings.TrimSpace(value) != "" {
			answers[id] = models.StringAnswer(value)
		}
	}

	responses, err := models.EncodeResponses(answers)
	if err != nil {
		return nil, err
	}

	learner := strings.TrimSpace(state.ParticipantInfo["participant_name"])
	if learner == "" {
		learner = key.UserID
	}

	return &models.SurveySubmission{
		UserID:      key.UserID,
		SurveyType:  key.SurveyType,
		LearnerName: learner,
		Status:      models.SubmissionCompleted,
		Responses:   responses,
		SubmittedAt: &now,
	}, nil
}

func (m *sessionManager) Unload(ctx context.Context, key models.ProgressKey) (models.SaveResult, error) {
	s, err := m.Get(key)
	if err != nil {
		return models.SaveResult{}, err
	}

	result, err := s.Unload(ctx)
	if err != nil {
		return result, err
	}

	m.detach(key, s)
	m.teardowns.Add(1)
	go func() {
		defer m.teardowns.Done()
		s.Close()
	}()
	return result, nil
}

func (m *sessionManager) Close(key models.ProgressKey) error {
	s, err := m.Get(key)
	if err != nil {
		return err
	}
	m.detach(key, s)
	s.Close()
	return nil
}

func (m *sessionManager) detach(key models.ProgressKey, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[key] == s {
		delete(m.sessions, key)
	}
}

// Shutdown closes every session and waits for background teardowns. The manager accepts
// no new sessions afterwards.
func (m *sessionManager) Shutdown() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	sessions := m.sessions
	m.sessions = make(map[models.ProgressKey]*Session)
	m.mu.Unlock()

	m.unsubscribe()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
	m.teardowns.Wait()
}

func (m *sessionManager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// onDefinitionChanged drops locally cached progress of a survey whose definition was removed;
// it could not be restored against any survey anymore. Active sessions keep their snapshot.
func (m *sessionManager) onDefinitionChanged(surveyType string, def *survey.Definition) {
	if def != nil {
		return
	}
	if err := m.local.PurgeSurvey(context.Background(), surveyType); err != nil {
		m.logger.Warn("Failed to purge local progress of removed survey", "survey_type", surveyType, "error", err)
		return
	}
	m.logger.Info("Purged local progress of removed survey", "survey_type", surveyType)
}
