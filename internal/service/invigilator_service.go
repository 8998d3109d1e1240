package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type invigilatorRoomStore interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ExamRoom, error)
	ListOccupanciesByExam(ctx context.Context, examID string) ([]models.ExamRoomOccupancy, error)
	UpdateInvigilators(ctx context.Context, id string, invigilators types.JSONText) error
}

type invigilatorSittingReader interface {
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
}

type staffReader interface {
	ListActive(ctx context.Context) ([]models.Staff, error)
}

// InvigilatorService draws supervisor pairs for a sitting's rooms. A staff
// member already supervising a room whose window overlaps the sitting's, or
// already drawn earlier in the same run, is not eligible again.
type InvigilatorService struct {
	sittings invigilatorSittingReader
	rooms    invigilatorRoomStore
	staff    staffReader
	locker   *ScopeLocker
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewInvigilatorService wires invigilator dependencies. rng may be nil, in
// which case the global source seeds selection.
func NewInvigilatorService(sittings invigilatorSittingReader, rooms invigilatorRoomStore, staff staffReader, locker *ScopeLocker, rng *rand.Rand, logger *zap.Logger) *InvigilatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewScopeLocker()
	}
	return &InvigilatorService{
		sittings: sittings,
		rooms:    rooms,
		staff:    staff,
		locker:   locker,
		rng:      rng,
		logger:   logger,
	}
}

// AssignInvigilators draws one main and one assistant supervisor for every
// room of the sitting. Rooms that cannot get two distinct eligible staff are
// reported as skipped rather than failing the run.
func (s *InvigilatorService) AssignInvigilators(ctx context.Context, examID, sittingID string) (*dto.AssignInvigilatorsResponse, error) {
	if examID == "" || sittingID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam id and sitting id are required")
	}

	sitting, err := s.sittings.FindByID(ctx, sittingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sitting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sitting")
	}
	if sitting.ExamID != examID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sitting does not belong to the exam")
	}

	release := s.locker.Acquire(examID)
	defer release()

	rooms, err := s.rooms.ListBySchedule(ctx, sittingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam rooms")
	}
	staff, err := s.staff.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}

	busy, err := s.busyStaff(ctx, sitting)
	if err != nil {
		return nil, err
	}

	resp := &dto.AssignInvigilatorsResponse{
		RoomsAssigned: make([]string, 0, len(rooms)),
	}
	for _, room := range rooms {
		pair := s.drawPair(staff, busy)
		if pair == nil {
			resp.RoomsSkipped = append(resp.RoomsSkipped, room.RoomCode)
			continue
		}

		payload, err := json.Marshal(pair)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode invigilators")
		}
		if err := s.rooms.UpdateInvigilators(ctx, room.ID, types.JSONText(payload)); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store invigilators")
		}
		for _, inv := range pair {
			busy[inv.StaffID] = struct{}{}
		}
		resp.RoomsAssigned = append(resp.RoomsAssigned, room.RoomCode)
	}

	s.logger.Info("invigilators assigned",
		zap.String("sitting_id", sittingID),
		zap.Int("rooms", len(resp.RoomsAssigned)),
		zap.Int("skipped", len(resp.RoomsSkipped)),
	)
	return resp, nil
}

// busyStaff collects staff already supervising a room whose committed window
// overlaps the sitting's window on the same date.
func (s *InvigilatorService) busyStaff(ctx context.Context, sitting *models.ExamSchedule) (map[string]struct{}, error) {
	occupancies, err := s.rooms.ListOccupanciesByExam(ctx, sitting.ExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupancies")
	}

	window := sittingWindow(sitting)
	busy := make(map[string]struct{})
	for _, occ := range occupancies {
		if occ.ExamScheduleID == sitting.ID {
			continue
		}
		if !occ.ExamDate.Equal(sitting.ExamDate) {
			continue
		}
		occWindow := Window{
			Start: TimeOfDay{Hour: occ.StartHour, Minute: occ.StartMinute},
			End:   TimeOfDay{Hour: occ.EndHour, Minute: occ.EndMinute},
		}
		if !window.Overlaps(occWindow) {
			continue
		}
		var invigilators []models.Invigilator
		if len(occ.Invigilators) > 0 {
			if err := json.Unmarshal(occ.Invigilators, &invigilators); err != nil {
				continue
			}
		}
		for _, inv := range invigilators {
			busy[inv.StaffID] = struct{}{}
		}
	}
	return busy, nil
}

// drawPair picks two distinct eligible staff at random, the first as main and
// the second as assistant. It returns nil when fewer than two are eligible.
func (s *InvigilatorService) drawPair(staff []models.Staff, busy map[string]struct{}) []models.Invigilator {
	eligible := make([]models.Staff, 0, len(staff))
	for _, member := range staff {
		if _, ok := busy[member.ID]; ok {
			continue
		}
		eligible = append(eligible, member)
	}
	if len(eligible) < 2 {
		return nil
	}

	s.shuffle(eligible)
	return []models.Invigilator{
		{StaffID: eligible[0].ID, Role: models.InvigilatorRoleMain},
		{StaffID: eligible[1].ID, Role: models.InvigilatorRoleAssistant},
	}
}

func (s *InvigilatorService) shuffle(staff []models.Staff) {
	swap := func(i, j int) { staff[i], staff[j] = staff[j], staff[i] }
	if s.rng != nil {
		s.rng.Shuffle(len(staff), swap)
		return
	}
	rand.Shuffle(len(staff), swap)
}
