package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// RoomAssignmentRepository provides persistence for seat assignments.
type RoomAssignmentRepository struct {
	db *sqlx.DB
}

// NewRoomAssignmentRepository creates a new room assignment repository.
func NewRoomAssignmentRepository(db *sqlx.DB) *RoomAssignmentRepository {
	return &RoomAssignmentRepository{db: db}
}

// ListByExamRoom returns seat assignments of one occupation ordered by seat number.
func (r *RoomAssignmentRepository) ListByExamRoom(ctx context.Context, examRoomID string) ([]models.RoomAssignment, error) {
	const query = `SELECT id, exam_room_id, exam_student_id, seat_number, created_at FROM room_assignments WHERE exam_room_id = $1 ORDER BY seat_number ASC`
	var assignments []models.RoomAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, examRoomID); err != nil {
		return nil, fmt.Errorf("list seat assignments by exam room: %w", err)
	}
	return assignments, nil
}

// CountByExamRoom returns the number of seats taken in one occupation.
func (r *RoomAssignmentRepository) CountByExamRoom(ctx context.Context, examRoomID string) (int, error) {
	const query = `SELECT COUNT(*) FROM room_assignments WHERE exam_room_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, examRoomID); err != nil {
		return 0, fmt.Errorf("count seat assignments: %w", err)
	}
	return count, nil
}

// BulkCreateWithTx inserts seat assignments using an existing transaction.
func (r *RoomAssignmentRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, assignments []models.RoomAssignment) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range assignments {
		payload := assignments[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}

		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO room_assignments (id, exam_room_id, exam_student_id, seat_number, created_at) VALUES (:id, :exam_room_id, :exam_student_id, :seat_number, :created_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert seat assignment: %w", err)
		}
		assignments[i] = payload
	}
	return nil
}

// DeleteByScheduleWithTx removes all seat assignments of a sitting's rooms.
func (r *RoomAssignmentRepository) DeleteByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `DELETE FROM room_assignments WHERE exam_room_id IN (SELECT id FROM exam_rooms WHERE exam_schedule_id = $1)`
	if _, err := tx.ExecContext(ctx, query, scheduleID); err != nil {
		return fmt.Errorf("delete seat assignments by schedule: %w", err)
	}
	return nil
}
