package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/progress"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/survey"
)

type SessionConfig struct {
	AutosaveInterval time.Duration
	IdleTimeout      time.Duration
	// SaveTimeout bounds one remote write
	SaveTimeout time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AutosaveInterval: 2 * time.Minute,
		IdleTimeout:      30 * time.Minute,
		SaveTimeout:      10 * time.Second,
	}
}

type saveRequest struct {
	trigger   models.SaveTrigger
	overwrite bool
	reply     chan saveReply
}

type saveReply struct {
	result models.SaveResult
	err    error
}

// Session is one learner's active survey. A single goroutine owns every save: the auto-save
// ticker, the idle timer and posted triggers all funnel through it, so flushes never overlap.
type Session struct {
	key      models.ProgressKey
	def      *survey.Definition
	cfg      SessionConfig
	repo     repositories.ProgressRepository
	local    *cache.ProgressCache
	notifier NotificationEventService
	logger   *ServiceLogger

	// saveMu is held for every remote write, so flushes, the unload write and submit never
	// overlap. Lock order: saveMu before mu.
	saveMu sync.Mutex

	mu            sync.Mutex
	machine       *progress.Machine
	version       int
	savedRevision uint64
	lastSavedAt   *time.Time
	lastTarget    models.SaveTarget
	closed        bool
	stopping      bool

	mailbox  chan saveRequest
	activity chan struct{}
	busy     atomic.Bool

	cancel    context.CancelFunc
	done      chan struct{}
	unloads   sync.WaitGroup
	closeOnce sync.Once
}

func newSession(
	key models.ProgressKey,
	def *survey.Definition,
	machine *progress.Machine,
	version int,
	pending bool,
	cfg SessionConfig,
	repo repositories.ProgressRepository,
	local *cache.ProgressCache,
	notifier NotificationEventService,
	logger *ServiceLogger,
) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		key:           key,
		def:           def,
		cfg:           cfg,
		repo:          repo,
		local:         local,
		notifier:      notifier,
		logger:        logger,
		machine:       machine,
		version:       version,
		savedRevision: machine.Revision(),
		mailbox:       make(chan saveRequest, 1),
		activity:      make(chan struct{}, 1),
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	if pending {
		// restored from a local copy newer than the remote record
		s.savedRevision = 0
	}
	go s.run(ctx)
	return s
}

func (s *Session) Key() models.ProgressKey {
	return s.key
}

func (s *Session) Definition() *survey.Definition {
	return s.def
}

// ===== ACTOR =====

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.AutosaveInterval)
	defer ticker.Stop()
	idle := time.NewTimer(s.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.pendingAnswers() {
				s.handle(ctx, saveRequest{trigger: models.TriggerInterval})
			}
		case <-idle.C:
			if s.Unsaved() {
				s.handle(ctx, saveRequest{trigger: models.TriggerIdle})
			}
		case <-s.activity:
			idle.Reset(s.cfg.IdleTimeout)
		case req := <-s.mailbox:
			s.handle(ctx, req)
		}
	}
}

func (s *Session) handle(ctx context.Context, req saveRequest) {
	s.busy.Store(true)
	defer s.busy.Store(false)

	result, err := s.safeFlush(ctx, req)
	if req.reply != nil {
		req.reply <- saveReply{result: result, err: err}
	}
}

// safeFlush keeps the actor alive when a storage backend panics.
func (s *Session) safeFlush(ctx context.Context, req saveRequest) (result models.SaveResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.LogRecovery(ctx, "flush", s.key, r, debug.Stack())
			result = models.SaveResult{Trigger: req.trigger, Target: models.SaveSkipped}
			err = fmt.Errorf("save aborted: %v", r)
		}
	}()
	return s.flush(ctx, req.trigger, req.overwrite)
}

// post hands a trigger to the actor. It is dropped when a request is already queued or a
// flush is running; the running flush picks up the same changes.
func (s *Session) post(trigger models.SaveTrigger) bool {
	if s.busy.Load() {
		return false
	}
	select {
	case s.mailbox <- saveRequest{trigger: trigger}:
		return true
	default:
		return false
	}
}

func (s *Session) signalActivity() {
	select {
	case s.activity <- struct{}{}:
	default:
	}
}

// flush writes the current state remotely and to the local cache. A failed remote write
// still succeeds for the caller when the local write landed.
func (s *Session) flush(ctx context.Context, trigger models.SaveTrigger, overwrite bool) (models.SaveResult, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.SaveResult{Trigger: trigger, Target: models.SaveSkipped}, ErrSessionClosed
	}
	revision := s.machine.Revision()
	if !overwrite && revision <= s.savedRevision {
		result := models.SaveResult{Trigger: trigger, Target: models.SaveSkipped, Version: s.version}
		s.mu.Unlock()
		return result, nil
	}
	state := s.machine.State()
	version := s.version
	pct := s.machine.Progress()
	s.mu.Unlock()

	result := models.SaveResult{Trigger: trigger, SavedAt: time.Now()}
	newVersion, remoteErr := s.writeRemote(ctx, state, version, overwrite)
	localErr := s.local.Save(ctx, s.key, state)

	if remoteErr != nil && localErr != nil {
		s.logger.LogSave(ctx, s.key, trigger, models.SaveSkipped, revision, errors.Join(remoteErr, localErr))
		return models.SaveResult{Trigger: trigger, Target: models.SaveSkipped, Version: version},
			fmt.Errorf("failed to save progress: %w", errors.Join(remoteErr, localErr))
	}

	if remoteErr == nil && localErr != nil {
		s.logger.logger.WarnContext(ctx, "Local progress cache write failed",
			"user_id", s.key.UserID, "survey_type", s.key.SurveyType, "error", localErr)
	}

	result.Target = models.SavedRemote
	if remoteErr != nil {
		result.Target = models.SavedLocalOnly
		result.Conflict = errors.Is(remoteErr, repositories.ErrVersionConflict)
	}

	s.mu.Lock()
	if remoteErr == nil {
		s.version = newVersion
	}
	result.Version = s.version
	if revision > s.savedRevision {
		s.savedRevision = revision
	}
	savedAt := result.SavedAt
	s.lastSavedAt = &savedAt
	s.lastTarget = result.Target
	s.mu.Unlock()

	s.logger.LogSave(ctx, s.key, trigger, result.Target, revision, remoteErr)
	_ = s.notifier.NotifyProgressSaved(context.WithoutCancel(ctx), s.key, result, pct)

	if result.Conflict {
		return result, ErrProgressConflict
	}
	return result, nil
}

func (s *Session) writeRemote(ctx context.Context, state models.ProgressState, version int, overwrite bool) (int, error) {
	record, err := models.NewSurveyProgress(s.key, state)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()

	if overwrite {
		return s.repo.Overwrite(ctx, nil, record)
	}
	return s.repo.Upsert(ctx, nil, record, version)
}

// ===== SAVE TRIGGERS =====

// Save flushes on request. Unlike the automatic triggers it waits for its turn and reports
// the outcome; with overwrite it replaces a record saved by another session.
func (s *Session) Save(ctx context.Context, overwrite bool) (models.SaveResult, error) {
	if s.isClosed() {
		return models.SaveResult{}, ErrSessionClosed
	}
	reply := make(chan saveReply, 1)
	req := saveRequest{trigger: models.TriggerManual, overwrite: overwrite, reply: reply}

	select {
	case s.mailbox <- req:
	case <-ctx.Done():
		return models.SaveResult{}, ctx.Err()
	case <-s.done:
		return models.SaveResult{}, ErrSessionClosed
	}

	select {
	case r := <-reply:
		return r.result, r.err
	case <-ctx.Done():
		return models.SaveResult{}, ctx.Err()
	case <-s.done:
		select {
		case r := <-reply:
			return r.result, r.err
		default:
			return models.SaveResult{}, ErrSessionClosed
		}
	}
}

// RecordActivity restarts the idle countdown.
func (s *Session) RecordActivity(kind models.ActivityKind) error {
	switch kind {
	case models.ActivityPointer, models.ActivityKeyboard, models.ActivityScroll, models.ActivityTouch:
	default:
		return NewValidationError("kind", "must be one of pointer, keyboard, scroll, touch", kind)
	}
	if s.isClosed() {
		return ErrSessionClosed
	}
	s.signalActivity()
	return nil
}

// VisibilityChanged flushes unsaved changes when the page is hidden. It reports whether a
// save was queued.
func (s *Session) VisibilityChanged(hidden bool) (bool, error) {
	if s.isClosed() {
		return false, ErrSessionClosed
	}
	if !hidden || !s.Unsaved() {
		return false, nil
	}
	return s.post(models.TriggerVisibility), nil
}

// Unload writes the local cache before returning and sends the remote write off without
// waiting for it. The remote write queues behind a flush already in flight and uses the
// version that flush produced.
func (s *Session) Unload(ctx context.Context) (models.SaveResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.SaveResult{}, ErrSessionClosed
	}
	revision := s.machine.Revision()
	if revision <= s.savedRevision {
		result := models.SaveResult{Trigger: models.TriggerUnload, Target: models.SaveSkipped, Version: s.version}
		s.closed = true
		s.mu.Unlock()
		return result, nil
	}
	state := s.machine.State()
	version := s.version
	savedBefore := s.savedRevision
	// the page is gone; later changes would never be saved
	s.closed = true
	s.mu.Unlock()

	if err := s.local.Save(ctx, s.key, state); err != nil {
		return models.SaveResult{}, fmt.Errorf("failed to save progress locally: %w", err)
	}

	s.unloads.Add(1)
	go func() {
		defer s.unloads.Done()

		s.saveMu.Lock()
		defer s.saveMu.Unlock()

		s.mu.Lock()
		expected := s.version
		overtaken := s.savedRevision != savedBefore
		s.mu.Unlock()

		// a flush that was already running wrote its older state over the local copy
		if overtaken {
			if err := s.local.Save(context.Background(), s.key, state); err != nil {
				s.logger.logger.Warn("Failed to restore local progress after unload",
					"user_id", s.key.UserID, "survey_type", s.key.SurveyType, "error", err)
			}
		}

		newVersion, err := s.writeRemote(context.Background(), state, expected, false)
		if err != nil {
			s.logger.LogSave(context.Background(), s.key, models.TriggerUnload, models.SavedLocalOnly, revision, err)
			return
		}
		s.logger.LogSave(context.Background(), s.key, models.TriggerUnload, models.SavedRemote, revision, nil)
		s.mu.Lock()
		s.version = newVersion
		if revision > s.savedRevision {
			s.savedRevision = revision
		}
		s.mu.Unlock()
	}()

	now := time.Now()
	s.mu.Lock()
	s.lastSavedAt = &now
	s.lastTarget = models.SavedLocalOnly
	s.mu.Unlock()

	return models.SaveResult{Trigger: models.TriggerUnload, Target: models.SavedLocalOnly, Version: version, SavedAt: now}, nil
}

// ===== NAVIGATION & ANSWERS =====

// Next moves past the current item. An unanswered item cannot be left.
func (s *Session) Next() (bool, error) {
	var completed bool
	err := s.mutate(func(m *progress.Machine) error {
		if !m.IsCurrentAnswered() {
			section, question := m.Position()
			return NewValidationError("answer", "the current item must be answered before moving on",
				map[string]int{"section": section, "question": question})
		}
		completed = m.Next()
		return nil
	})
	return completed, err
}

func (s *Session) Previous() error {
	return s.mutate(func(m *progress.Machine) error {
		m.Previous()
		return nil
	})
}

// SetAnswer stores an answer under a question id, or "{id}_{prompt}" for one grid prompt.
func (s *Session) SetAnswer(questionID string, value models.AnswerValue) error {
	key, err := s.answerKey(questionID)
	if err != nil {
		return err
	}
	return s.mutate(func(m *progress.Machine) error {
		return m.SetAnswer(key, value)
	})
}

func (s *Session) ClearAnswer(questionID string) error {
	key, err := s.answerKey(questionID)
	if err != nil {
		return err
	}
	return s.mutate(func(m *progress.Machine) error {
		m.ClearAnswer(key)
		return nil
	})
}

func (s *Session) answerKey(questionID string) (models.AnswerKey, error) {
	key := s.def.Registry.ParseAnswerKey(questionID)
	info, ok := s.def.Registry.Lookup(key.QuestionID)
	if !ok {
		return models.AnswerKey{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}

	switch {
	case key.HasPrompt && (info.Type != models.QuestionScaleGrid || key.PromptIndex >= len(info.Prompts)):
		return models.AnswerKey{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	case !key.HasPrompt && info.Type == models.QuestionScaleGrid:
		return models.AnswerKey{}, NewValidationError("question_id", "scale-grid answers are set per prompt, e.g. "+info.ID+"_0", questionID)
	}
	return key, nil
}

// SetParticipantInfo merges participant fields. Only fields the survey declares are accepted.
func (s *Session) SetParticipantInfo(info map[string]string) error {
	return s.mutate(func(m *progress.Machine) error {
		if !m.HasParticipantStep() {
			return NewBusinessRuleError("participant_step", "survey does not collect participant information",
				map[string]interface{}{"survey_type": s.key.SurveyType})
		}
		known := make(map[string]bool)
		for _, f := range m.ParticipantFields() {
			known[f.ID] = true
		}
		for id := range info {
			if !known[id] {
				return NewValidationError("fields", "unknown participant field", id)
			}
		}
		m.SetParticipantInfo(info)
		s.logger.LogParticipantInfo(context.Background(), s.key, info)
		return nil
	})
}

func (s *Session) mutate(fn func(m *progress.Machine) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	err := fn(s.machine)
	s.mu.Unlock()

	if err == nil {
		s.signalActivity()
	}
	return err
}

// ===== STATE =====

func (s *Session) Unsaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Revision() > s.savedRevision
}

func (s *Session) pendingAnswers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.HasAnswers() && s.machine.Revision() > s.savedRevision
}

func (s *Session) State() models.ProgressState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

func (s *Session) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.machine
	section, question := m.Position()
	state := m.State()
	view := models.SessionView{
		UserID:            s.key.UserID,
		SurveyType:        s.key.SurveyType,
		CurrentSection:    section,
		CurrentQuestion:   question,
		Answered:          m.IsCurrentAnswered(),
		Progress:          m.Progress(),
		TotalItems:        m.TotalItems(),
		SectionItemCounts: m.SectionItemCounts(),
		Answers:           state.Answers,
		ParticipantInfo:   state.ParticipantInfo,
		Unsaved:           m.Revision() > s.savedRevision,
		Version:           s.version,
		LastSavedAt:       s.lastSavedAt,
		LastSaveTarget:    s.lastTarget,
	}
	if step, ok := m.CurrentStep(); ok {
		view.Step = &models.SessionStep{Kind: string(step.Kind), Title: step.Title, Items: step.Items()}
	}
	if q, ok := m.CurrentQuestion(); ok {
		view.Question = &q
	}
	return view
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// freeze prepares a submit: it refuses an unfinished walk-through, stops further changes and
// saves, and waits for a save already in flight. It returns the final state.
func (s *Session) freeze() (models.ProgressState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ProgressState{}, ErrSessionClosed
	}
	if !s.machine.IsComplete() {
		section, question := s.machine.Position()
		s.mu.Unlock()
		return models.ProgressState{}, NewBusinessRuleError("survey_incomplete",
			"every item up to the last one must be answered before submitting",
			map[string]interface{}{"survey_type": s.key.SurveyType, "section": section, "question": question})
	}
	s.closed = true
	s.mu.Unlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.State(), nil
}

// thaw reopens a frozen session after a failed submit.
func (s *Session) thaw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopping {
		s.closed = false
	}
}

// Close stops the actor and waits for it, including any remote write started by Unload.
// Nothing is saved after Close returns.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.stopping = true
		s.mu.Unlock()

		s.cancel()
		<-s.done
		s.unloads.Wait()
	})
}
