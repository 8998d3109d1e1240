package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/models"
	"github.com/noah-isme/sma-exam-api/internal/service"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

type candidateRegistrar interface {
	RegisterCandidates(ctx context.Context, req dto.RegisterCandidatesRequest) (*dto.RegisterCandidatesResponse, error)
	ListCandidates(ctx context.Context, examID string, grade int) ([]models.ExamStudent, error)
}

// CandidateHandler exposes candidate registration endpoints.
type CandidateHandler struct {
	service candidateRegistrar
}

// NewCandidateHandler constructs the handler.
func NewCandidateHandler(svc *service.CandidateService) *CandidateHandler {
	return &CandidateHandler{service: svc}
}

// Register godoc
// @Summary Register candidates for an exam grade
// @Description Each candidate gets the next free SBD for the scope, grade prefix plus a zero-padded sequence.
// @Tags Candidates
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.RegisterCandidatesRequest true "Candidates to register"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/candidates [post]
func (h *CandidateHandler) Register(c *gin.Context) {
	var req dto.RegisterCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	req.ExamID = c.Param("id")

	result, err := h.service.RegisterCandidates(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List registered candidates of an exam
// @Tags Candidates
// @Produce json
// @Param id path string true "Exam ID"
// @Param grade query int false "Narrow to a single grade"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/candidates [get]
func (h *CandidateHandler) List(c *gin.Context) {
	grade, _ := strconv.Atoi(c.Query("grade"))
	result, err := h.service.ListCandidates(c.Request.Context(), c.Param("id"), grade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
