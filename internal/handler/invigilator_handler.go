package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/service"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

type invigilatorAssigner interface {
	AssignInvigilators(ctx context.Context, examID, sittingID string) (*dto.AssignInvigilatorsResponse, error)
}

// InvigilatorHandler exposes supervisor assignment endpoints.
type InvigilatorHandler struct {
	service invigilatorAssigner
}

// NewInvigilatorHandler constructs the handler.
func NewInvigilatorHandler(svc *service.InvigilatorService) *InvigilatorHandler {
	return &InvigilatorHandler{service: svc}
}

// Assign godoc
// @Summary Draw a supervisor pair for every room of a sitting
// @Description Staff already supervising an overlapping window are excluded. Rooms without two eligible staff are reported as skipped.
// @Tags Invigilators
// @Produce json
// @Param id path string true "Exam ID"
// @Param scheduleId path string true "Sitting ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/schedules/{scheduleId}/invigilators [post]
func (h *InvigilatorHandler) Assign(c *gin.Context) {
	result, err := h.service.AssignInvigilators(c.Request.Context(), c.Param("id"), c.Param("scheduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
