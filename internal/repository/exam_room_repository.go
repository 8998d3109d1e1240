package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// ExamRoomRepository provides persistence for room occupations.
type ExamRoomRepository struct {
	db *sqlx.DB
}

// NewExamRoomRepository creates a new exam room repository.
func NewExamRoomRepository(db *sqlx.DB) *ExamRoomRepository {
	return &ExamRoomRepository{db: db}
}

// ListBySchedule returns a sitting's occupations with room code and capacity,
// ordered by room code.
func (r *ExamRoomRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ExamRoom, error) {
	const query = `SELECT er.id, er.exam_schedule_id, er.room_id, rm.code AS room_code, rm.capacity, er.invigilators, er.is_full, er.created_at, er.updated_at FROM exam_rooms er JOIN rooms rm ON rm.id = er.room_id WHERE er.exam_schedule_id = $1 ORDER BY rm.code ASC`
	var rooms []models.ExamRoom
	if err := r.db.SelectContext(ctx, &rooms, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list exam rooms by schedule: %w", err)
	}
	return rooms, nil
}

// ListOccupanciesByExam returns every occupation of an exam joined with its
// sitting's time window.
func (r *ExamRoomRepository) ListOccupanciesByExam(ctx context.Context, examID string) ([]models.ExamRoomOccupancy, error) {
	const query = `SELECT er.id AS exam_room_id, er.exam_schedule_id, er.room_id, s.exam_date, s.start_hour, s.start_minute, s.end_hour, s.end_minute, er.invigilators FROM exam_rooms er JOIN exam_schedules s ON s.id = er.exam_schedule_id WHERE s.exam_id = $1`
	var occupancies []models.ExamRoomOccupancy
	if err := r.db.SelectContext(ctx, &occupancies, query, examID); err != nil {
		return nil, fmt.Errorf("list occupancies by exam: %w", err)
	}
	return occupancies, nil
}

// BulkCreateWithTx inserts occupations using an existing transaction.
func (r *ExamRoomRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, rooms []models.ExamRoom) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range rooms {
		payload := rooms[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if len(payload.Invigilators) == 0 {
			payload.Invigilators = types.JSONText("[]")
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO exam_rooms (id, exam_schedule_id, room_id, invigilators, is_full, created_at, updated_at) VALUES (:id, :exam_schedule_id, :room_id, :invigilators, :is_full, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert exam room: %w", err)
		}
		rooms[i] = payload
	}
	return nil
}

// UpdateInvigilators replaces the jsonb invigilator list of an occupation.
func (r *ExamRoomRepository) UpdateInvigilators(ctx context.Context, id string, invigilators types.JSONText) error {
	const query = `UPDATE exam_rooms SET invigilators = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, invigilators, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update invigilators: %w", err)
	}
	return nil
}

// SetFull flips the running is_full flag.
func (r *ExamRoomRepository) SetFull(ctx context.Context, exec sqlx.ExtContext, id string, full bool) error {
	const query = `UPDATE exam_rooms SET is_full = $1, updated_at = $2 WHERE id = $3`
	if _, err := exec.ExecContext(ctx, query, full, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set exam room full: %w", err)
	}
	return nil
}

// DeleteByScheduleWithTx removes a sitting's occupations within a transaction.
func (r *ExamRoomRepository) DeleteByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exam_rooms WHERE exam_schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("delete exam rooms by schedule: %w", err)
	}
	return nil
}
