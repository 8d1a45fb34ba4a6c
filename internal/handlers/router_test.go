package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/export"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/survey"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/SAP-F-2025/survey-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ===== FAKES =====

type memoryProgressRepository struct {
	mu      sync.Mutex
	records map[models.ProgressKey]models.SurveyProgress
}

func (r *memoryProgressRepository) Get(ctx context.Context, tx *gorm.DB, key models.ProgressKey) (*models.SurveyProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &record, nil
}

func (r *memoryProgressRepository) Upsert(ctx context.Context, tx *gorm.DB, record *models.SurveyProgress, expectedVersion int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records[record.Key()].Version != expectedVersion {
		return 0, repositories.ErrVersionConflict
	}
	stored := *record
	stored.Version = expectedVersion + 1
	r.records[record.Key()] = stored
	return stored.Version, nil
}

func (r *memoryProgressRepository) Overwrite(ctx context.Context, tx *gorm.DB, record *models.SurveyProgress) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *record
	stored.Version = r.records[record.Key()].Version + 1
	r.records[record.Key()] = stored
	return stored.Version, nil
}

func (r *memoryProgressRepository) Delete(ctx context.Context, tx *gorm.DB, key models.ProgressKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

type memorySubmissionRepository struct {
	mu          sync.Mutex
	submissions []models.SurveySubmission
}

func (r *memorySubmissionRepository) Create(ctx context.Context, tx *gorm.DB, submission *models.SurveySubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if submission.ID == "" {
		submission.ID = "sub-1"
	}
	r.submissions = append(r.submissions, *submission)
	return nil
}

func (r *memorySubmissionRepository) CreateBatch(ctx context.Context, tx *gorm.DB, submissions []*models.SurveySubmission) error {
	for _, s := range submissions {
		if err := r.Create(ctx, tx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *memorySubmissionRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SurveySubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memorySubmissionRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.SubmissionFilters) ([]models.SurveySubmission, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SurveySubmission
	for _, s := range r.submissions {
		if filters.SurveyType == "" || s.SurveyType == filters.SurveyType {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

type memoryRepository struct {
	progress   *memoryProgressRepository
	submission *memorySubmissionRepository
}

func (r *memoryRepository) Progress() repositories.ProgressRepository     { return r.progress }
func (r *memoryRepository) Submission() repositories.SubmissionRepository { return r.submission }
func (r *memoryRepository) Transaction(fn func(tx *gorm.DB) error) error  { return fn(nil) }
func (r *memoryRepository) Migrate() error                                { return nil }

// MockImportExportService is a mock implementation of ImportExportService
type MockImportExportService struct {
	mock.Mock
}

func (m *MockImportExportService) BuildTables(ctx context.Context, req *models.ExportRequest) (*export.Tables, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Tables), args.Error(1)
}

func (m *MockImportExportService) Export(ctx context.Context, req *models.ExportRequest) (*services.ExportResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExportResult), args.Error(1)
}

func (m *MockImportExportService) ImportFromFile(ctx context.Context, surveyType string, file io.Reader, filename, importedBy string) (*models.ImportSummary, error) {
	args := m.Called(ctx, surveyType, file, filename, importedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportSummary), args.Error(1)
}

func (m *MockImportExportService) ImportFromCSV(ctx context.Context, surveyType string, reader io.Reader, importedBy string) (*models.ImportSummary, error) {
	args := m.Called(ctx, surveyType, reader, importedBy)
	return args.Get(0).(*models.ImportSummary), args.Error(1)
}

func (m *MockImportExportService) ImportFromExcel(ctx context.Context, surveyType string, reader io.Reader, importedBy string) (*models.ImportSummary, error) {
	args := m.Called(ctx, surveyType, reader, importedBy)
	return args.Get(0).(*models.ImportSummary), args.Error(1)
}

// ===== FIXTURE =====

type routerFixture struct {
	router       *gin.Engine
	repo         *memoryRepository
	importExport *MockImportExportService
}

func testSurvey() *models.Survey {
	return &models.Survey{
		Type:  "course",
		Title: "Course feedback",
		Sections: []models.Section{
			{
				Title: "About the course",
				Type:  models.SectionQuestions,
				Questions: []models.Question{
					{ID: "name", Type: models.QuestionText, Question: "Your name"},
					{ID: "skills", Type: models.QuestionScaleGrid, Question: "Confidence", Prompts: []string{"Go", "SQL"}, ScaleLabels: []string{"Low", "High"}},
				},
			},
		},
	}
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewNopLogger()
	store := survey.NewStore()
	store.Put(testSurvey())

	backend, err := cache.NewSQLiteCache(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	f := &routerFixture{
		repo: &memoryRepository{
			progress:   &memoryProgressRepository{records: make(map[models.ProgressKey]models.SurveyProgress)},
			submission: &memorySubmissionRepository{},
		},
		importExport: &MockImportExportService{},
	}

	notifier := services.NewNotificationEventService(events.NewMockEventPublisher(utils.ToSlogLogger(logger)), logger)
	sessions := services.NewSessionManager(f.repo, store, cache.NewProgressCache(backend, cache.DefaultProgressTTL), notifier, logger,
		services.SessionConfig{AutosaveInterval: time.Hour, IdleTimeout: time.Hour, SaveTimeout: time.Second})
	t.Cleanup(sessions.Shutdown)

	manager := services.NewServiceManager(
		sessions,
		services.NewSurveyService(f.repo, store, logger),
		services.NewMappingService(store, logger),
		f.importExport,
	)

	f.router = gin.New()
	NewHandlerManager(manager, validator.New(), logger).SetupRoutes(f.router)
	return f
}

func (f *routerFixture) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// ===== TESTS =====

func TestHealthCheck(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "survey-service")
}

func TestSessionRoutes(t *testing.T) {
	f := newRouterFixture(t)
	base := "/api/v1/surveys/course/session"

	t.Run("requires a user", func(t *testing.T) {
		w := f.do(http.MethodPost, base, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no session yet", func(t *testing.T) {
		w := f.do(http.MethodGet, base, "u1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown survey", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/surveys/missing/session", "u1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	w := f.do(http.MethodPost, base, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view models.SessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "course", view.SurveyType)
	assert.Equal(t, 2, view.TotalItems)

	t.Run("whole grid answer is rejected", func(t *testing.T) {
		w := f.do(http.MethodPut, base+"/answers", "u1", map[string]interface{}{"question_id": "skills", "value": "2"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown question", func(t *testing.T) {
		w := f.do(http.MethodPut, base+"/answers", "u1", map[string]interface{}{"question_id": "nope", "value": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid activity kind", func(t *testing.T) {
		w := f.do(http.MethodPost, base+"/activity", "u1", map[string]interface{}{"kind": "blink"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no participant step", func(t *testing.T) {
		w := f.do(http.MethodPut, base+"/participant", "u1", map[string]interface{}{"fields": map[string]string{"email": "a@b.c"}})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	w = f.do(http.MethodPut, base+"/answers", "u1", map[string]interface{}{"question_id": "skills_1", "value": "2"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "2", view.Answers["skills_1"].Text)
	assert.True(t, view.Unsaved)

	w = f.do(http.MethodPost, base+"/activity", "u1", map[string]interface{}{"kind": "keyboard"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodPost, base+"/save", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result models.SaveResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.SavedRemote, result.Target)
	assert.Equal(t, 1, result.Version)

	t.Run("unanswered question blocks next", func(t *testing.T) {
		w := f.do(http.MethodPost, base+"/next", "u1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w = f.do(http.MethodPut, base+"/answers", "u1", map[string]interface{}{"question_id": "name", "value": "Ada"})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodPost, base+"/next", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("unfinished survey cannot be submitted", func(t *testing.T) {
		w := f.do(http.MethodPost, base+"/submit", "u1", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, f.repo.submission.submissions)
	})

	w = f.do(http.MethodPut, base+"/answers", "u1", map[string]interface{}{"question_id": "skills_0", "value": "1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, base+"/submit", "u1", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, f.repo.submission.submissions, 1)
	assert.Equal(t, "u1", f.repo.submission.submissions[0].UserID)

	// the session is gone after submitting
	w = f.do(http.MethodGet, base, "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/submissions/sub-1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSaveConflict(t *testing.T) {
	f := newRouterFixture(t)
	base := "/api/v1/surveys/course/session"

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base, "u1", nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, base+"/answers", "u1", map[string]interface{}{"question_id": "name", "value": "Ada"}).Code)

	// another device saved in between
	record, err := models.NewSurveyProgress(models.ProgressKey{UserID: "u1", SurveyType: "course"}, models.ProgressState{})
	require.NoError(t, err)
	record.Version = 4
	f.repo.progress.mu.Lock()
	f.repo.progress.records[record.Key()] = *record
	f.repo.progress.mu.Unlock()

	w := f.do(http.MethodPost, base+"/save", "u1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, base+"/save", "u1", map[string]interface{}{"overwrite": true})
	require.Equal(t, http.StatusOK, w.Code)
	var result models.SaveResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 5, result.Version)
}

func TestSurveyRoutes(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/v1/surveys", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []services.SurveyOverview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Questions)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/surveys/course/reference", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/surveys/missing", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/submissions/none", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/submissions?date_from=yesterday", "", nil).Code)
}

func TestMappingRoutes(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/v1/surveys/course/mappings/automap", "", map[string]interface{}{"headers": []string{"Your name", "Email"}})
	require.Equal(t, http.StatusOK, w.Code)
	var suggestions []models.MappingSuggestion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &suggestions))
	require.Len(t, suggestions, 2)
	assert.Equal(t, "name", suggestions[0].SuggestedMapping)
	assert.Equal(t, "email", suggestions[1].SuggestedMapping)

	w = f.do(http.MethodPost, "/api/v1/surveys/course/mappings/diagnose", "", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportRoutes(t *testing.T) {
	f := newRouterFixture(t)

	f.importExport.On("Export", mock.Anything, mock.MatchedBy(func(req *models.ExportRequest) bool {
		return req.SurveyType == "course" && req.Format == models.ExportCSV && req.DateFrom != nil
	})).Return(&services.ExportResult{
		Filename:    "course-responses.csv",
		ContentType: services.ContentTypeCSV,
		Data:        []byte("Submission ID\ns1\n"),
	}, nil)

	w := f.do(http.MethodGet, "/api/v1/surveys/course/export?format=csv&date_from=2026-05-01", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.ContentTypeCSV, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "course-responses.csv")
	assert.Equal(t, "Submission ID\ns1\n", w.Body.String())

	f.importExport.On("BuildTables", mock.Anything, mock.Anything).Return(nil, services.ErrNoSubmissions)
	w = f.do(http.MethodGet, "/api/v1/surveys/course/export/summary", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/surveys/course/export?date_to=31-12-2026", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportRoute(t *testing.T) {
	f := newRouterFixture(t)

	f.importExport.On("ImportFromFile", mock.Anything, "course", mock.Anything, "responses.csv", "admin").
		Return(&models.ImportSummary{Status: models.ImportCompleted, SuccessCount: 1}, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "responses.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Your name\nAda\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/surveys/course/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(UserIDHeader, "admin")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success_count":1`)
	f.importExport.AssertExpectations(t)

	w = f.do(http.MethodPost, "/api/v1/surveys/course/import", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
