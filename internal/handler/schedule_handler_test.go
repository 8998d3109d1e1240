package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type scheduleEngineMock struct {
	generated dto.GenerateScheduleRequest
	created   dto.CreateSittingRequest
	updatedID string
	deletedID string
	listQuery dto.SittingQuery
	err       error
}

func (m *scheduleEngineMock) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	m.generated = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.GenerateScheduleResponse{CreatedCount: 5}, nil
}

func (m *scheduleEngineMock) CreateSitting(ctx context.Context, req dto.CreateSittingRequest) (*models.ExamSchedule, error) {
	m.created = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.ExamSchedule{ID: "sit-1", ExamID: req.ExamID}, nil
}

func (m *scheduleEngineMock) UpdateSittingTime(ctx context.Context, id string, req dto.UpdateSittingTimeRequest) (*models.ExamSchedule, error) {
	m.updatedID = id
	if m.err != nil {
		return nil, m.err
	}
	return &models.ExamSchedule{ID: id}, nil
}

func (m *scheduleEngineMock) DeleteSitting(ctx context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func (m *scheduleEngineMock) ListSittings(ctx context.Context, query dto.SittingQuery) ([]models.ExamSchedule, error) {
	m.listQuery = query
	return []models.ExamSchedule{{ID: "sit-1"}}, m.err
}

func scheduleRouter(mock *scheduleEngineMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &ScheduleHandler{service: mock}
	r := gin.New()
	r.POST("/exams/:id/schedules/generate", h.Generate)
	r.GET("/exams/:id/schedules", h.List)
	r.POST("/exams/:id/schedules", h.Create)
	r.PUT("/schedules/:id/time", h.UpdateTime)
	r.DELETE("/schedules/:id", h.Delete)
	return r
}

func TestScheduleHandlerGenerateUsesPathExamID(t *testing.T) {
	mock := &scheduleEngineMock{}
	router := scheduleRouter(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/schedules/generate", bytes.NewReader([]byte(`{"grade":10}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "exam-1", mock.generated.ExamID)
	require.Equal(t, 10, mock.generated.Grade)
}

func TestScheduleHandlerGenerateBadPayload(t *testing.T) {
	router := scheduleRouter(&scheduleEngineMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/schedules/generate", bytes.NewReader([]byte(`{"grade":`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerGeneratePreconditionFailed(t *testing.T) {
	mock := &scheduleEngineMock{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "no sitting could be scheduled")}
	router := scheduleRouter(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/schedules/generate", bytes.NewReader([]byte(`{"grade":10}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestScheduleHandlerListParsesGrade(t *testing.T) {
	mock := &scheduleEngineMock{}
	router := scheduleRouter(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exams/exam-1/schedules?grade=11", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "exam-1", mock.listQuery.ExamID)
	require.Equal(t, 11, mock.listQuery.Grade)
}

func TestScheduleHandlerCreateConflict(t *testing.T) {
	mock := &scheduleEngineMock{err: appErrors.Clone(appErrors.ErrConflict, "overlaps Literature (08:30-09:30)")}
	router := scheduleRouter(mock)

	payload := `{"grade":10,"subjectId":"s-mat","examDate":"2026-06-01","startHour":8,"durationMinutes":90}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/schedules", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, string(body["error"]), "Literature")
}

func TestScheduleHandlerUpdateTime(t *testing.T) {
	mock := &scheduleEngineMock{}
	router := scheduleRouter(mock)

	payload := `{"examDate":"2026-06-02","startHour":10,"startMinute":0}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/schedules/sit-1/time", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "sit-1", mock.updatedID)
}

func TestScheduleHandlerDelete(t *testing.T) {
	mock := &scheduleEngineMock{}
	router := scheduleRouter(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/schedules/sit-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "sit-1", mock.deletedID)
}
