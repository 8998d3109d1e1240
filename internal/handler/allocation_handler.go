package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/service"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

type roomAllocator interface {
	AssignRoomsForSitting(ctx context.Context, sittingID string, maxPerRoom int) (*dto.AssignRoomsResponse, error)
	AssignRoomsAdvanced(ctx context.Context, req dto.AssignRoomsAdvancedRequest) ([]dto.SittingAllocationResult, error)
	ResetSittingAllocations(ctx context.Context, sittingID string) error
	RoomDistribution(ctx context.Context, sittingID string) (*dto.RoomDistributionResponse, error)
}

// AllocationHandler exposes room and seat allocation endpoints.
type AllocationHandler struct {
	service roomAllocator
}

// NewAllocationHandler constructs the handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// Assign godoc
// @Summary Fill a sitting's bound rooms with its candidates
// @Description Candidates are placed in room order, each room filled to capacity, seat numbers restarting at 1 per room.
// @Tags Allocation
// @Produce json
// @Param id path string true "Sitting ID"
// @Param maxPerRoom query int false "Fallback room limit when an occupation has no capacity" default(24)
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/rooms/assign [post]
func (h *AllocationHandler) Assign(c *gin.Context) {
	maxPerRoom, _ := strconv.Atoi(c.Query("maxPerRoom"))
	result, err := h.service.AssignRoomsForSitting(c.Request.Context(), c.Param("id"), maxPerRoom)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AssignAdvanced godoc
// @Summary Allocate several sittings, avoiding booked rooms
// @Description For each sitting, rooms with an overlapping committed occupation are excluded and candidates are round-robin filled across the rest. Missing SBDs are issued.
// @Tags Allocation
// @Accept json
// @Produce json
// @Param payload body dto.AssignRoomsAdvancedRequest true "Sitting ids"
// @Success 200 {object} response.Envelope
// @Router /schedules/rooms/assign-advanced [post]
func (h *AllocationHandler) AssignAdvanced(c *gin.Context) {
	var req dto.AssignRoomsAdvancedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid advanced assignment payload"))
		return
	}

	results, err := h.service.AssignRoomsAdvanced(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Reset godoc
// @Summary Remove a sitting's seat assignments and room occupations
// @Description Releases the sitting's candidates and zeroes its assigned count.
// @Tags Allocation
// @Param id path string true "Sitting ID"
// @Success 204
// @Router /schedules/{id}/rooms [delete]
func (h *AllocationHandler) Reset(c *gin.Context) {
	if err := h.service.ResetSittingAllocations(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Distribution godoc
// @Summary Per-room occupancy summary for a sitting
// @Tags Allocation
// @Produce json
// @Param id path string true "Sitting ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/distribution [get]
func (h *AllocationHandler) Distribution(c *gin.Context) {
	result, err := h.service.RoomDistribution(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
