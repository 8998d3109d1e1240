package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/models"
)

type candidateRegistrarMock struct {
	registered dto.RegisterCandidatesRequest
	listExamID string
	listGrade  int
	err        error
}

func (m *candidateRegistrarMock) RegisterCandidates(ctx context.Context, req dto.RegisterCandidatesRequest) (*dto.RegisterCandidatesResponse, error) {
	m.registered = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.RegisterCandidatesResponse{
		ExamID: req.ExamID,
		Grade:  req.Grade,
		Registered: []dto.RegisteredCandidate{
			{StudentID: "st-013", FullName: "Nguyen Van An", SBD: "110013"},
		},
	}, nil
}

func (m *candidateRegistrarMock) ListCandidates(ctx context.Context, examID string, grade int) ([]models.ExamStudent, error) {
	m.listExamID = examID
	m.listGrade = grade
	return nil, m.err
}

func candidateRouter(mock *candidateRegistrarMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &CandidateHandler{service: mock}
	r := gin.New()
	r.POST("/exams/:id/candidates", h.Register)
	r.GET("/exams/:id/candidates", h.List)
	return r
}

func TestCandidateHandlerRegister(t *testing.T) {
	mock := &candidateRegistrarMock{}
	router := candidateRouter(mock)

	payload := `{"grade":11,"candidates":[{"studentId":"st-013","fullName":"Nguyen Van An"}]}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/candidates", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "exam-1", mock.registered.ExamID)
	require.Equal(t, 11, mock.registered.Grade)
	require.Contains(t, w.Body.String(), "110013")
}

func TestCandidateHandlerRegisterBadPayload(t *testing.T) {
	router := candidateRouter(&candidateRegistrarMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/candidates", bytes.NewReader([]byte(`{"grade":`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCandidateHandlerList(t *testing.T) {
	mock := &candidateRegistrarMock{}
	router := candidateRouter(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exams/exam-1/candidates?grade=11", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "exam-1", mock.listExamID)
	require.Equal(t, 11, mock.listGrade)
}
