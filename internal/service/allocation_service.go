package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type allocSittingStore interface {
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
	UpdateAssignedCount(ctx context.Context, exec sqlx.ExtContext, id string, count int) error
}

type occupationStore interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ExamRoom, error)
	ListOccupanciesByExam(ctx context.Context, examID string) ([]models.ExamRoomOccupancy, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, rooms []models.ExamRoom) error
	SetFull(ctx context.Context, exec sqlx.ExtContext, id string, full bool) error
	DeleteByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error
}

type seatStore interface {
	CountByExamRoom(ctx context.Context, examRoomID string) (int, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, assignments []models.RoomAssignment) error
	DeleteByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error
}

type candidateStore interface {
	ListByScope(ctx context.Context, examID string, grade int) ([]models.ExamStudent, error)
	CountWithSBDByScope(ctx context.Context, exec sqlx.ExtContext, examID string, grade int) (int, error)
	UpdatePlacementWithTx(ctx context.Context, tx *sqlx.Tx, id, roomID, sbd string) error
	ClearPlacementByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error
}

type roomCatalogue interface {
	ListAvailable(ctx context.Context) ([]models.Room, error)
}

// AllocationConfig carries allocator defaults.
type AllocationConfig struct {
	MaxPerRoom int
}

// AllocationService distributes candidates into rooms under capacity
// constraints and issues SBDs for candidates that lack one.
type AllocationService struct {
	sittings   allocSittingStore
	rooms      occupationStore
	seats      seatStore
	candidates candidateStore
	catalogue  roomCatalogue
	tx         txProvider
	locker     *ScopeLocker
	cache      *CacheService
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        AllocationConfig
}

// NewAllocationService wires allocator dependencies.
func NewAllocationService(
	sittings allocSittingStore,
	rooms occupationStore,
	seats seatStore,
	candidates candidateStore,
	catalogue roomCatalogue,
	tx txProvider,
	locker *ScopeLocker,
	cache *CacheService,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg AllocationConfig,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewScopeLocker()
	}
	if cfg.MaxPerRoom <= 0 {
		cfg.MaxPerRoom = 24
	}
	return &AllocationService{
		sittings:   sittings,
		rooms:      rooms,
		seats:      seats,
		candidates: candidates,
		catalogue:  catalogue,
		tx:         tx,
		locker:     locker,
		cache:      cache,
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// AssignRoomsForSitting fills the rooms already bound to a sitting in room
// order, each to its capacity, with seat numbers restarting at 1 per room.
// Zero candidates or zero rooms is a zero-count success, not an error.
func (s *AllocationService) AssignRoomsForSitting(ctx context.Context, sittingID string, maxPerRoom int) (*dto.AssignRoomsResponse, error) {
	if sittingID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sitting id is required")
	}
	if maxPerRoom <= 0 {
		maxPerRoom = s.cfg.MaxPerRoom
	}

	sitting, err := s.loadSitting(ctx, sittingID)
	if err != nil {
		return nil, err
	}

	release := s.locker.Acquire(sitting.ExamID)
	defer release()

	candidates, err := s.pendingCandidates(ctx, sitting)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListBySchedule(ctx, sittingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam rooms")
	}
	if len(candidates) == 0 || len(rooms) == 0 {
		return &dto.AssignRoomsResponse{SittingID: sittingID, AssignedCount: 0, RoomsUsed: 0}, nil
	}

	states := make([]*roomState, 0, len(rooms))
	for _, room := range rooms {
		taken, err := s.seats.CountByExamRoom(ctx, room.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count seats")
		}
		// Room capacity governs; maxPerRoom only stands in when the
		// occupation carries no capacity of its own.
		limit := room.Capacity
		if limit <= 0 {
			limit = maxPerRoom
		}
		states = append(states, &roomState{occupation: room, taken: taken, limit: limit})
	}

	var assignments []models.RoomAssignment
	placements := make(map[string]string, len(candidates))
	roomsUsed := make(map[string]struct{})

	idx := 0
	for _, candidate := range candidates {
		for idx < len(states) && states[idx].taken >= states[idx].limit {
			idx++
		}
		if idx >= len(states) {
			break
		}
		state := states[idx]
		state.taken++
		assignments = append(assignments, models.RoomAssignment{
			ExamRoomID:    state.occupation.ID,
			ExamStudentID: candidate.ID,
			SeatNumber:    state.taken,
		})
		placements[candidate.ID] = state.occupation.RoomID
		roomsUsed[state.occupation.ID] = struct{}{}
	}

	if err := s.commitAssignments(ctx, sitting, states, assignments, placements, nil); err != nil {
		return nil, err
	}

	return &dto.AssignRoomsResponse{
		SittingID:     sittingID,
		AssignedCount: len(assignments),
		RoomsUsed:     len(roomsUsed),
	}, nil
}

// AssignRoomsAdvanced allocates several sittings, excluding rooms whose
// committed occupations overlap each sitting's window, and round-robin fills
// candidates across the remaining rooms. A repeat invocation reuses the
// sitting's existing occupations at their current fill instead of opening a
// second occupation on the same room.
func (s *AllocationService) AssignRoomsAdvanced(ctx context.Context, req dto.AssignRoomsAdvancedRequest) ([]dto.SittingAllocationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid advanced assignment payload")
	}

	results := make([]dto.SittingAllocationResult, 0, len(req.SittingIDs))
	for _, sittingID := range req.SittingIDs {
		result, err := s.assignAdvancedOne(ctx, sittingID)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

func (s *AllocationService) assignAdvancedOne(ctx context.Context, sittingID string) (*dto.SittingAllocationResult, error) {
	sitting, err := s.loadSitting(ctx, sittingID)
	if err != nil {
		return nil, err
	}

	release := s.locker.Acquire(sitting.ExamID)
	defer release()

	candidates, err := s.pendingCandidates(ctx, sitting)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &dto.SittingAllocationResult{SittingID: sittingID, AssignedCount: 0, RoomsUsed: 0}, nil
	}

	available, err := s.availableRooms(ctx, sitting)
	if err != nil {
		return nil, err
	}
	existing, err := s.rooms.ListBySchedule(ctx, sittingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam rooms")
	}

	// Rooms the sitting already occupies are reused with their current seat
	// counts; only rooms it does not hold yet get a new occupation.
	occupied := make(map[string]struct{}, len(existing))
	taken := make(map[string]int, len(existing)+len(available))
	for _, occ := range existing {
		occupied[occ.RoomID] = struct{}{}
		count, err := s.seats.CountByExamRoom(ctx, occ.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count seats")
		}
		taken[occ.ID] = count
	}

	fresh := make([]models.ExamRoom, 0, len(available))
	for _, room := range available {
		if _, ok := occupied[room.ID]; ok {
			continue
		}
		fresh = append(fresh, models.ExamRoom{
			ExamScheduleID: sittingID,
			RoomID:         room.ID,
			RoomCode:       room.Code,
			Capacity:       room.Capacity,
		})
	}
	if len(existing)+len(fresh) == 0 {
		return &dto.SittingAllocationResult{SittingID: sittingID, AssignedCount: 0, RoomsUsed: 0}, nil
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(fresh) > 0 {
		if err = s.rooms.BulkCreateWithTx(ctx, tx, fresh); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room occupations")
			return nil, err
		}
	}
	occupations := append(existing, fresh...)

	sbdBase, err := s.candidates.CountWithSBDByScope(ctx, tx, sitting.ExamID, sitting.Grade)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count issued candidate numbers")
		return nil, err
	}

	// Round-robin: advance to the next room every iteration, wrapping, and
	// place only when the current room has spare capacity.
	roomsUsed := make(map[string]struct{})
	assigned := 0
	issued := 0
	cursor := 0

	for _, candidate := range candidates {
		placedIdx := -1
		for tries := 0; tries < len(occupations); tries++ {
			idx := cursor % len(occupations)
			cursor++
			if taken[occupations[idx].ID] >= occupations[idx].Capacity {
				continue
			}
			placedIdx = idx
			break
		}
		if placedIdx < 0 {
			break
		}

		occupation := occupations[placedIdx]
		taken[occupation.ID]++
		roomsUsed[occupation.ID] = struct{}{}

		seat := models.RoomAssignment{
			ExamRoomID:    occupation.ID,
			ExamStudentID: candidate.ID,
			SeatNumber:    taken[occupation.ID],
		}
		if err = s.seats.BulkCreateWithTx(ctx, tx, []models.RoomAssignment{seat}); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist seat assignment")
			return nil, err
		}

		sbd := ""
		if !candidate.SBD.Valid || candidate.SBD.String == "" {
			issued++
			sbd = FormatSBD(sitting.Grade, sbdBase+issued)
		}
		if err = s.candidates.UpdatePlacementWithTx(ctx, tx, candidate.ID, occupation.RoomID, sbd); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update candidate placement")
			return nil, err
		}
		assigned++
	}

	for _, occupation := range occupations {
		if taken[occupation.ID] >= occupation.Capacity {
			if err = s.rooms.SetFull(ctx, tx, occupation.ID, true); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag full room")
				return nil, err
			}
		}
	}
	if err = s.sittings.UpdateAssignedCount(ctx, tx, sittingID, sitting.AssignedCount+assigned); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assigned count")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocation")
		return nil, err
	}

	s.metrics.RecordSeatsAssigned(assigned)
	s.invalidateDistribution(ctx, sittingID)
	s.logger.Info("advanced allocation committed",
		zap.String("sitting_id", sittingID),
		zap.Int("assigned", assigned),
		zap.Int("rooms", len(roomsUsed)),
	)

	return &dto.SittingAllocationResult{
		SittingID:     sittingID,
		AssignedCount: assigned,
		RoomsUsed:     len(roomsUsed),
	}, nil
}

// ResetSittingAllocations removes a sitting's seat assignments and room
// occupations, releases its candidates, and zeroes the assigned count.
func (s *AllocationService) ResetSittingAllocations(ctx context.Context, sittingID string) error {
	sitting, err := s.loadSitting(ctx, sittingID)
	if err != nil {
		return err
	}

	release := s.locker.Acquire(sitting.ExamID)
	defer release()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.candidates.ClearPlacementByScheduleWithTx(ctx, tx, sittingID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release candidates")
		return err
	}
	if err = s.seats.DeleteByScheduleWithTx(ctx, tx, sittingID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete seat assignments")
		return err
	}
	if err = s.rooms.DeleteByScheduleWithTx(ctx, tx, sittingID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room occupations")
		return err
	}
	if err = s.sittings.UpdateAssignedCount(ctx, tx, sittingID, 0); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset assigned count")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocation reset")
		return err
	}

	s.invalidateDistribution(ctx, sittingID)
	return nil
}

// RoomDistribution returns the per-room summary for a sitting, served from
// cache when possible.
func (s *AllocationService) RoomDistribution(ctx context.Context, sittingID string) (*dto.RoomDistributionResponse, error) {
	if sittingID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sitting id is required")
	}

	key := distributionCacheKey(sittingID)
	var cached dto.RoomDistributionResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	if _, err := s.loadSitting(ctx, sittingID); err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListBySchedule(ctx, sittingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam rooms")
	}

	resp := &dto.RoomDistributionResponse{SittingID: sittingID, Rooms: make([]dto.RoomDistributionEntry, 0, len(rooms))}
	for _, room := range rooms {
		count, err := s.seats.CountByExamRoom(ctx, room.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count seats")
		}

		var invigilators []models.Invigilator
		if len(room.Invigilators) > 0 {
			_ = json.Unmarshal(room.Invigilators, &invigilators) // best effort
		}
		names := make([]string, 0, len(invigilators))
		for _, inv := range invigilators {
			names = append(names, inv.StaffID)
		}

		resp.Rooms = append(resp.Rooms, dto.RoomDistributionEntry{
			RoomID:        room.RoomID,
			RoomCode:      room.RoomCode,
			Capacity:      room.Capacity,
			AssignedCount: count,
			IsFull:        room.IsFull,
			Invigilators:  names,
		})
		resp.Total += count
	}

	_ = s.cache.Set(ctx, key, resp, 0)
	return resp, nil
}

type roomState struct {
	occupation models.ExamRoom
	taken      int
	limit      int
}

// commitAssignments persists a sequential-fill outcome in one transaction.
func (s *AllocationService) commitAssignments(ctx context.Context, sitting *models.ExamSchedule, states []*roomState, assignments []models.RoomAssignment, placements map[string]string, sbds map[string]string) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(assignments) > 0 {
		if err = s.seats.BulkCreateWithTx(ctx, tx, assignments); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist seat assignments")
			return err
		}
	}
	for candidateID, roomID := range placements {
		if err = s.candidates.UpdatePlacementWithTx(ctx, tx, candidateID, roomID, sbds[candidateID]); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update candidate placement")
			return err
		}
	}
	for _, state := range states {
		if state.taken >= state.limit {
			if err = s.rooms.SetFull(ctx, tx, state.occupation.ID, true); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag full room")
				return err
			}
		}
	}
	if err = s.sittings.UpdateAssignedCount(ctx, tx, sitting.ID, sitting.AssignedCount+len(assignments)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assigned count")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocation")
		return err
	}

	s.metrics.RecordSeatsAssigned(len(assignments))
	s.invalidateDistribution(ctx, sitting.ID)
	return nil
}

// availableRooms filters the exam's room catalogue down to rooms that have no
// committed occupation overlapping the sitting's window.
func (s *AllocationService) availableRooms(ctx context.Context, sitting *models.ExamSchedule) ([]models.Room, error) {
	catalogue, err := s.catalogue.ListAvailable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room catalogue")
	}
	occupancies, err := s.rooms.ListOccupanciesByExam(ctx, sitting.ExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupancies")
	}

	window := sittingWindow(sitting)
	blocked := make(map[string]struct{})
	for _, occ := range occupancies {
		if occ.ExamScheduleID == sitting.ID {
			// The sitting's own rooms stay usable.
			continue
		}
		if !occ.ExamDate.Equal(sitting.ExamDate) {
			continue
		}
		occWindow := Window{
			Start: TimeOfDay{Hour: occ.StartHour, Minute: occ.StartMinute},
			End:   TimeOfDay{Hour: occ.EndHour, Minute: occ.EndMinute},
		}
		if window.Overlaps(occWindow) {
			blocked[occ.RoomID] = struct{}{}
		}
	}

	available := make([]models.Room, 0, len(catalogue))
	for _, room := range catalogue {
		if _, ok := blocked[room.ID]; ok {
			continue
		}
		available = append(available, room)
	}
	return available, nil
}

// pendingCandidates returns the scope's candidates that have no room yet,
// sorted by name by the repository.
func (s *AllocationService) pendingCandidates(ctx context.Context, sitting *models.ExamSchedule) ([]models.ExamStudent, error) {
	candidates, err := s.candidates.ListByScope(ctx, sitting.ExamID, sitting.Grade)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidates")
	}
	pending := make([]models.ExamStudent, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.RoomID.Valid && candidate.RoomID.String != "" {
			continue
		}
		pending = append(pending, candidate)
	}
	return pending, nil
}

func (s *AllocationService) loadSitting(ctx context.Context, id string) (*models.ExamSchedule, error) {
	sitting, err := s.sittings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sitting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sitting")
	}
	return sitting, nil
}

func (s *AllocationService) invalidateDistribution(ctx context.Context, sittingID string) {
	_ = s.cache.Invalidate(ctx, distributionCacheKey(sittingID))
}

func distributionCacheKey(sittingID string) string {
	return fmt.Sprintf("distribution:%s", sittingID)
}

// FormatSBD renders a candidate number from its grade prefix and sequence.
func FormatSBD(grade, seq int) string {
	return fmt.Sprintf("%d%04d", grade, seq)
}
