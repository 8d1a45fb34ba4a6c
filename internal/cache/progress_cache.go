package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

const progressKeyPrefix = "survey_progress"

// DefaultProgressTTL bounds how long an abandoned local save is kept.
const DefaultProgressTTL = 30 * 24 * time.Hour

// ProgressCache is the local durable fallback for progress records.
type ProgressCache struct {
	cache CacheService
	ttl   time.Duration
}

func NewProgressCache(cache CacheService, ttl time.Duration) *ProgressCache {
	return &ProgressCache{cache: cache, ttl: ttl}
}

func ProgressKey(key models.ProgressKey) string {
	return fmt.Sprintf("%s:%s:%s", progressKeyPrefix, key.UserID, key.SurveyType)
}

// Load returns the cached state, or ErrCacheMiss.
func (c *ProgressCache) Load(ctx context.Context, key models.ProgressKey) (models.ProgressState, error) {
	var state models.ProgressState
	if err := c.cache.Get(ctx, ProgressKey(key), &state); err != nil {
		return models.ProgressState{}, err
	}
	if state.Answers == nil {
		state.Answers = models.AnswerMap{}
	}
	return state, nil
}

func (c *ProgressCache) Save(ctx context.Context, key models.ProgressKey, state models.ProgressState) error {
	return c.cache.Set(ctx, ProgressKey(key), state, c.ttl)
}

func (c *ProgressCache) Delete(ctx context.Context, key models.ProgressKey) error {
	return c.cache.Delete(ctx, ProgressKey(key))
}

// PurgeSurvey drops every learner's cached progress for a survey type.
func (c *ProgressCache) PurgeSurvey(ctx context.Context, surveyType string) error {
	return c.cache.DeletePattern(ctx, fmt.Sprintf("%s:*:%s", progressKeyPrefix, surveyType))
}

func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
