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

type scheduleEngine interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	CreateSitting(ctx context.Context, req dto.CreateSittingRequest) (*models.ExamSchedule, error)
	UpdateSittingTime(ctx context.Context, id string, req dto.UpdateSittingTimeRequest) (*models.ExamSchedule, error)
	DeleteSitting(ctx context.Context, id string) error
	ListSittings(ctx context.Context, query dto.SittingQuery) ([]models.ExamSchedule, error)
}

// ScheduleHandler exposes sitting generation and lifecycle endpoints.
type ScheduleHandler struct {
	service scheduleEngine
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Generate godoc
// @Summary Generate subject sittings for an exam
// @Description Places every subject of the requested grade (or all grades) into the exam window. Partial failures are returned in the conflicts list.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.GenerateScheduleRequest true "Generation options"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/schedules/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	req.ExamID = c.Param("id")

	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List sittings of an exam
// @Tags Scheduling
// @Produce json
// @Param id path string true "Exam ID"
// @Param grade query int false "Narrow to a single grade"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	grade, _ := strconv.Atoi(c.Query("grade"))
	result, err := h.service.ListSittings(c.Request.Context(), dto.SittingQuery{
		ExamID: c.Param("id"),
		Grade:  grade,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Create one sitting manually
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.CreateSittingRequest true "Sitting payload"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateSittingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sitting payload"))
		return
	}
	req.ExamID = c.Param("id")

	sitting, err := h.service.CreateSitting(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sitting)
}

// UpdateTime godoc
// @Summary Move a sitting to a new date and time
// @Description The sitting itself is excluded from the conflict check; the end time is recomputed from the duration.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Sitting ID"
// @Param payload body dto.UpdateSittingTimeRequest true "New date and time"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/time [put]
func (h *ScheduleHandler) UpdateTime(c *gin.Context) {
	var req dto.UpdateSittingTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sitting update payload"))
		return
	}

	sitting, err := h.service.UpdateSittingTime(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sitting, nil)
}

// Delete godoc
// @Summary Delete a sitting and cascade its allocations
// @Tags Scheduling
// @Param id path string true "Sitting ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteSitting(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
