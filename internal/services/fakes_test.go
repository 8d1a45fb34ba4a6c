package services

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// fakeProgressRepository keeps records in memory with the same version rules as the
// postgres implementation.
type fakeProgressRepository struct {
	mu       sync.Mutex
	records  map[models.ProgressKey]models.SurveyProgress
	getErr   error
	writeErr error
	delay    time.Duration
	gets     int
	writes   int

	// gate blocks remote writes while set; each blocked write is announced on entered
	gate        chan struct{}
	entered     chan struct{}
	inFlight    int
	maxInFlight int
}

func newFakeProgressRepository() *fakeProgressRepository {
	return &fakeProgressRepository{records: make(map[models.ProgressKey]models.SurveyProgress)}
}

func (f *fakeProgressRepository) Get(ctx context.Context, tx *gorm.DB, key models.ProgressKey) (*models.SurveyProgress, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	record, ok := f.records[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &record, nil
}

func (f *fakeProgressRepository) Upsert(ctx context.Context, tx *gorm.DB, record *models.SurveyProgress, expectedVersion int) (int, error) {
	f.enterWrite()
	defer f.leaveWrite()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	existing, ok := f.records[record.Key()]
	current := 0
	if ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return 0, repositories.ErrVersionConflict
	}
	stored := *record
	stored.Version = expectedVersion + 1
	f.records[record.Key()] = stored
	f.writes++
	return stored.Version, nil
}

func (f *fakeProgressRepository) Overwrite(ctx context.Context, tx *gorm.DB, record *models.SurveyProgress) (int, error) {
	f.enterWrite()
	defer f.leaveWrite()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	stored := *record
	stored.Version = f.records[record.Key()].Version + 1
	f.records[record.Key()] = stored
	f.writes++
	return stored.Version, nil
}

func (f *fakeProgressRepository) Delete(ctx context.Context, tx *gorm.DB, key models.ProgressKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, key)
	return nil
}

func (f *fakeProgressRepository) enterWrite() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeProgressRepository) leaveWrite() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
}

// holdWrites blocks remote writes until release is called.
func (f *fakeProgressRepository) holdWrites() (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	announced := make(chan struct{}, 16)

	f.mu.Lock()
	f.gate, f.entered = gate, announced
	f.mu.Unlock()

	var once sync.Once
	return announced, func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate, f.entered = nil, nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *fakeProgressRepository) maxConcurrentWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeProgressRepository) put(key models.ProgressKey, state models.ProgressState, version int) {
	record, err := models.NewSurveyProgress(key, state)
	if err != nil {
		panic(err)
	}
	record.Version = version
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[key] = *record
}

func (f *fakeProgressRepository) record(key models.ProgressKey) (models.SurveyProgress, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[key]
	return r, ok
}

func (f *fakeProgressRepository) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeProgressRepository) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeProgressRepository) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// MockSubmissionRepository is a mock implementation of SubmissionRepository
type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Create(ctx context.Context, tx *gorm.DB, submission *models.SurveySubmission) error {
	args := m.Called(ctx, tx, submission)
	return args.Error(0)
}

func (m *MockSubmissionRepository) CreateBatch(ctx context.Context, tx *gorm.DB, submissions []*models.SurveySubmission) error {
	args := m.Called(ctx, tx, submissions)
	return args.Error(0)
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SurveySubmission, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SurveySubmission), args.Error(1)
}

func (m *MockSubmissionRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.SubmissionFilters) ([]models.SurveySubmission, int64, error) {
	args := m.Called(ctx, tx, filters)
	return args.Get(0).([]models.SurveySubmission), args.Get(1).(int64), args.Error(2)
}

type fakeRepository struct {
	progress   *fakeProgressRepository
	submission *MockSubmissionRepository
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{progress: newFakeProgressRepository(), submission: &MockSubmissionRepository{}}
}

func (r *fakeRepository) Progress() repositories.ProgressRepository     { return r.progress }
func (r *fakeRepository) Submission() repositories.SubmissionRepository { return r.submission }
func (r *fakeRepository) Transaction(fn func(tx *gorm.DB) error) error  { return fn(nil) }
func (r *fakeRepository) Migrate() error                                { return nil }

// memCache is an in-memory CacheService
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = data
	return nil
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.data {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if ok {
			delete(c.data, key)
		}
	}
	return nil
}

func (c *memCache) Close() error { return nil }

func (c *memCache) failSets(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setErr = err
}

var errDatabaseDown = errors.New("database unavailable")
