package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

func TestInvigilatorServiceAssignsDistinctPairs(t *testing.T) {
	rooms := &occupationStub{
		bySchedule: map[string][]models.ExamRoom{"sit-1": {
			{ID: "om-a", ExamScheduleID: "sit-1", RoomID: "room-a", RoomCode: "A", Capacity: 24},
			{ID: "om-b", ExamScheduleID: "sit-1", RoomID: "room-b", RoomCode: "B", Capacity: 24},
		}},
		full: map[string]bool{},
	}
	svc := newInvigilatorService(rooms, staffPool(5))

	resp, err := svc.AssignInvigilators(context.Background(), "exam-1", "sit-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, resp.RoomsAssigned)
	assert.Empty(t, resp.RoomsSkipped)

	seen := map[string]int{}
	for _, payload := range rooms.invigilators {
		var pair []models.Invigilator
		require.NoError(t, json.Unmarshal(payload, &pair))
		require.Len(t, pair, 2)
		assert.Equal(t, models.InvigilatorRoleMain, pair[0].Role)
		assert.Equal(t, models.InvigilatorRoleAssistant, pair[1].Role)
		assert.NotEqual(t, pair[0].StaffID, pair[1].StaffID)
		for _, inv := range pair {
			seen[inv.StaffID]++
		}
	}
	// A staff member supervises at most one room of the sitting.
	for staffID, count := range seen {
		assert.Equal(t, 1, count, "staff %s drawn twice", staffID)
	}
}

func TestInvigilatorServiceExcludesOverlappingStaff(t *testing.T) {
	busyPair, err := json.Marshal([]models.Invigilator{
		{StaffID: "staff-1", Role: models.InvigilatorRoleMain},
		{StaffID: "staff-2", Role: models.InvigilatorRoleAssistant},
	})
	require.NoError(t, err)

	rooms := &occupationStub{
		bySchedule: map[string][]models.ExamRoom{"sit-1": {
			{ID: "om-a", ExamScheduleID: "sit-1", RoomID: "room-a", RoomCode: "A", Capacity: 24},
			{ID: "om-b", ExamScheduleID: "sit-1", RoomID: "room-b", RoomCode: "B", Capacity: 24},
		}},
		occupancies: []models.ExamRoomOccupancy{
			// staff-1 and staff-2 already supervise an overlapping sitting.
			{ExamRoomID: "om-x", ExamScheduleID: "sit-2", RoomID: "room-x", ExamDate: examStart(), StartHour: 8, StartMinute: 0, EndHour: 9, EndMinute: 30, Invigilators: types.JSONText(busyPair)},
		},
		full: map[string]bool{},
	}
	svc := newInvigilatorService(rooms, staffPool(4))

	resp, err := svc.AssignInvigilators(context.Background(), "exam-1", "sit-1")
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, resp.RoomsAssigned)
	assert.Equal(t, []string{"B"}, resp.RoomsSkipped, "only two eligible staff remain, room B cannot be staffed")

	var pair []models.Invigilator
	require.NoError(t, json.Unmarshal(rooms.invigilators["om-a"], &pair))
	for _, inv := range pair {
		assert.NotContains(t, []string{"staff-1", "staff-2"}, inv.StaffID)
	}
}

func TestInvigilatorServiceRejectsForeignSitting(t *testing.T) {
	rooms := &occupationStub{full: map[string]bool{}}
	svc := newInvigilatorService(rooms, staffPool(4))

	_, err := svc.AssignInvigilators(context.Background(), "exam-2", "sit-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func newInvigilatorService(rooms *occupationStub, staff []models.Staff) *InvigilatorService {
	sitting := &models.ExamSchedule{
		ID:              "sit-1",
		ExamID:          "exam-1",
		Grade:           11,
		ExamDate:        examStart(),
		StartHour:       7,
		StartMinute:     30,
		DurationMinutes: 90,
		EndHour:         9,
	}
	sittings := &allocSittingStub{byID: map[string]*models.ExamSchedule{"sit-1": sitting}, counts: map[string]int{}}
	return NewInvigilatorService(
		sittings,
		rooms,
		staffStub{items: staff},
		NewScopeLocker(),
		rand.New(rand.NewSource(7)),
		zap.NewNop(),
	)
}

func staffPool(n int) []models.Staff {
	pool := make([]models.Staff, 0, n)
	for i := 1; i <= n; i++ {
		pool = append(pool, models.Staff{
			ID:       fmt.Sprintf("staff-%d", i),
			FullName: fmt.Sprintf("Staff Member %d", i),
			Status:   models.StaffStatusActive,
		})
	}
	return pool
}

type staffStub struct {
	items []models.Staff
}

func (s staffStub) ListActive(ctx context.Context) ([]models.Staff, error) {
	return s.items, nil
}
