package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/middleware"
	"github.com/tim7en/pm-app-sub001/models"
	"github.com/tim7en/pm-app-sub001/repositories"
	"github.com/tim7en/pm-app-sub001/retention"
	"github.com/tim7en/pm-app-sub001/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "api-test-secret"

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T, pinger Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	adapters, err := repositories.NewAdapters(db)
	require.NoError(t, err)
	registry := lifecycle.DefaultRegistry()

	operator, err := lifecycle.NewOperator(registry, adapters)
	require.NoError(t, err)
	sweeper, err := retention.NewSweeper(registry, adapters, retention.DefaultConfig())
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"),
		NewHealthHandler(pinger, nil),
		NewEntityHandler(services.NewEntityService(operator, sweeper)),
		testSecret,
	)

	token, _, err := middleware.GenerateToken(testSecret, "admin-1", "ops@example.com", string(models.RoleAdmin), time.Hour)
	require.NoError(t, err)

	return &testServer{db: db, router: router, token: token}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func seedProject(t *testing.T, db *gorm.DB) (*models.Project, *models.Task) {
	t.Helper()
	project := &models.Project{Name: "Launch", WorkspaceID: "w-1"}
	require.NoError(t, db.Create(project).Error)
	task := &models.Task{ProjectID: project.ID, Title: "Write copy"}
	require.NoError(t, db.Create(task).Error)
	return project, task
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, stubPinger{})
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	down := newTestServer(t, stubPinger{err: errors.New("connection refused")})
	w = httptest.NewRecorder()
	down.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	server := newTestServer(t, stubPinger{})

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/entities/task/deleted", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEntityLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t, stubPinger{})
	project, task := seedProject(t, server.db)
	projectPath := "/api/v1/admin/entities/project/" + project.ID

	code, env := server.do(t, http.MethodGet, projectPath, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "success", env.Status)

	code, env = server.do(t, http.MethodPost, projectPath+"/delete", map[string]interface{}{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, code, env.Message)

	var deleted struct {
		EntityType string         `json:"entityType"`
		Record     models.Project `json:"record"`
		Cascaded   int            `json:"cascaded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &deleted))
	assert.Equal(t, "project", deleted.EntityType)
	assert.Equal(t, 1, deleted.Cascaded)
	require.NotNil(t, deleted.Record.DeletedBy)
	assert.Equal(t, "admin-1", *deleted.Record.DeletedBy)
	assert.Equal(t, "duplicate", *deleted.Record.DeleteReason)

	code, _ = server.do(t, http.MethodGet, projectPath, nil)
	assert.Equal(t, http.StatusNotFound, code, "soft-deleted records are hidden from reads")

	code, env = server.do(t, http.MethodGet, "/api/v1/admin/entities/task/deleted?limit=10", nil)
	require.Equal(t, http.StatusOK, code)
	var bin struct {
		Count   int           `json:"count"`
		Records []models.Task `json:"records"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &bin))
	require.Equal(t, 1, bin.Count)
	assert.Equal(t, task.ID, bin.Records[0].ID)

	code, env = server.do(t, http.MethodPost, projectPath+"/restore", map[string]interface{}{"cascade": true})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = server.do(t, http.MethodGet, "/api/v1/admin/entities/task/"+task.ID, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = server.do(t, http.MethodPost, projectPath+"/restore", nil)
	assert.Equal(t, http.StatusNotFound, code, "restoring a live record is not found")
}

func TestDeleteWithoutBodyCascades(t *testing.T) {
	server := newTestServer(t, stubPinger{})
	project, task := seedProject(t, server.db)

	code, env := server.do(t, http.MethodPost, "/api/v1/admin/entities/project/"+project.ID+"/delete", nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = server.do(t, http.MethodGet, "/api/v1/admin/entities/task/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCleanupOverHTTP(t *testing.T) {
	server := newTestServer(t, stubPinger{})
	_, task := seedProject(t, server.db)

	old := time.Now().UTC().AddDate(0, 0, -45)
	require.NoError(t, server.db.Model(&models.Task{}).Where("id = ?", task.ID).
		UpdateColumn(models.ColumnDeletedAt, old).Error)

	code, env := server.do(t, http.MethodPost, "/api/v1/admin/entities/task/cleanup", map[string]interface{}{"dryRun": true})
	require.Equal(t, http.StatusOK, code, env.Message)
	var dry struct {
		DryRun           bool          `json:"dryRun"`
		DeletedCount     int64         `json:"deletedCount"`
		CandidateRecords []models.Task `json:"candidateRecords"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dry))
	assert.True(t, dry.DryRun)
	assert.Zero(t, dry.DeletedCount)
	assert.Len(t, dry.CandidateRecords, 1)

	code, env = server.do(t, http.MethodPost, "/api/v1/admin/entities/task/cleanup", map[string]interface{}{"olderThanDays": 30})
	require.Equal(t, http.StatusOK, code, env.Message)
	var done struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Equal(t, int64(1), done.DeletedCount)
}

func TestEntityErrors(t *testing.T) {
	server := newTestServer(t, stubPinger{})

	code, env := server.do(t, http.MethodGet, "/api/v1/admin/entities/task/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "error", env.Status)

	code, _ = server.do(t, http.MethodPost, "/api/v1/admin/entities/invoice/x/delete", nil)
	assert.Equal(t, http.StatusInternalServerError, code)

	code, _ = server.do(t, http.MethodPost, "/api/v1/admin/entities/task/cleanup", map[string]interface{}{"batchSize": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = server.do(t, http.MethodGet, "/api/v1/admin/entities/task/deleted?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err    error
		status int
	}{
		{err: lifecycle.ErrRecordNotFound, status: http.StatusNotFound},
		{err: lifecycle.ErrVersionConflict, status: http.StatusConflict},
		{err: lifecycle.ErrNotConfigured, status: http.StatusInternalServerError},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, "Failed", tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
