package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// ExamStudentRepository provides persistence for registered candidates.
type ExamStudentRepository struct {
	db *sqlx.DB
}

// NewExamStudentRepository creates a new exam student repository.
func NewExamStudentRepository(db *sqlx.DB) *ExamStudentRepository {
	return &ExamStudentRepository{db: db}
}

// ListByScope returns a scope's candidates ordered by name, the order the
// allocator seats them in.
func (r *ExamStudentRepository) ListByScope(ctx context.Context, examID string, grade int) ([]models.ExamStudent, error) {
	const query = `SELECT id, exam_id, grade, student_id, full_name, sbd, room_id, status, created_at, updated_at FROM exam_students WHERE exam_id = $1 AND grade = $2 AND status <> $3 ORDER BY full_name ASC, student_id ASC`
	var students []models.ExamStudent
	if err := r.db.SelectContext(ctx, &students, query, examID, grade, models.ExamStudentStatusWithdrawn); err != nil {
		return nil, fmt.Errorf("list candidates by scope: %w", err)
	}
	return students, nil
}

// CountByExam returns the number of candidates registered for an exam. It runs
// on the provided executor so callers can count inside a transaction.
func (r *ExamStudentRepository) CountByExam(ctx context.Context, exec sqlx.ExtContext, examID string) (int, error) {
	const query = `SELECT COUNT(*) FROM exam_students WHERE exam_id = $1`
	row := exec.QueryRowxContext(ctx, query, examID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count candidates by exam: %w", err)
	}
	return count, nil
}

// CountWithSBDByScope returns how many candidates of one (exam, grade) scope
// already carry an SBD. The next SBD index continues from this count.
func (r *ExamStudentRepository) CountWithSBDByScope(ctx context.Context, exec sqlx.ExtContext, examID string, grade int) (int, error) {
	const query = `SELECT COUNT(*) FROM exam_students WHERE exam_id = $1 AND grade = $2 AND sbd IS NOT NULL`
	row := exec.QueryRowxContext(ctx, query, examID, grade)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count candidates with sbd: %w", err)
	}
	return count, nil
}

// BulkCreateWithTx inserts candidates using an existing transaction.
func (r *ExamStudentRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, students []models.ExamStudent) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range students {
		payload := students[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.Status == "" {
			payload.Status = models.ExamStudentStatusRegistered
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO exam_students (id, exam_id, grade, student_id, full_name, sbd, room_id, status, created_at, updated_at) VALUES (:id, :exam_id, :grade, :student_id, :full_name, :sbd, :room_id, :status, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert candidate: %w", err)
		}
		students[i] = payload
	}
	return nil
}

// UpdatePlacementWithTx stores a candidate's room reference and SBD after
// allocation.
func (r *ExamStudentRepository) UpdatePlacementWithTx(ctx context.Context, tx *sqlx.Tx, id, roomID, sbd string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE exam_students SET room_id = $1, sbd = COALESCE(NULLIF($2, ''), sbd), status = $3, updated_at = $4 WHERE id = $5`
	if _, err := tx.ExecContext(ctx, query, roomID, sbd, models.ExamStudentStatusAssigned, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update candidate placement: %w", err)
	}
	return nil
}

// ClearPlacementByScheduleWithTx resets room references for every candidate
// seated in the sitting's rooms.
func (r *ExamStudentRepository) ClearPlacementByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE exam_students SET room_id = NULL, status = $1, updated_at = $2 WHERE id IN (SELECT exam_student_id FROM room_assignments WHERE exam_room_id IN (SELECT id FROM exam_rooms WHERE exam_schedule_id = $3))`
	if _, err := tx.ExecContext(ctx, query, models.ExamStudentStatusRegistered, time.Now().UTC(), scheduleID); err != nil {
		return fmt.Errorf("clear candidate placement by schedule: %w", err)
	}
	return nil
}
