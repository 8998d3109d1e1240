package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

const examScheduleColumns = `s.id, s.exam_id, s.grade, s.subject_id, sub.name AS subject_name, s.exam_date, s.start_hour, s.start_minute, s.duration_minutes, s.end_hour, s.end_minute, s.assigned_count, s.created_at, s.updated_at`

// ExamScheduleRepository provides persistence for subject sittings.
type ExamScheduleRepository struct {
	db *sqlx.DB
}

// NewExamScheduleRepository creates a new exam schedule repository.
func NewExamScheduleRepository(db *sqlx.DB) *ExamScheduleRepository {
	return &ExamScheduleRepository{db: db}
}

// FindByID loads a sitting with its subject name.
func (r *ExamScheduleRepository) FindByID(ctx context.Context, id string) (*models.ExamSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM exam_schedules s JOIN subjects sub ON sub.id = s.subject_id WHERE s.id = $1`, examScheduleColumns)
	var sitting models.ExamSchedule
	if err := r.db.GetContext(ctx, &sitting, query, id); err != nil {
		return nil, err
	}
	return &sitting, nil
}

// ListByExam returns all sittings of an exam ordered by date and start time.
func (r *ExamScheduleRepository) ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM exam_schedules s JOIN subjects sub ON sub.id = s.subject_id WHERE s.exam_id = $1 ORDER BY s.exam_date ASC, s.start_hour ASC, s.start_minute ASC`, examScheduleColumns)
	var sittings []models.ExamSchedule
	if err := r.db.SelectContext(ctx, &sittings, query, examID); err != nil {
		return nil, fmt.Errorf("list sittings by exam: %w", err)
	}
	return sittings, nil
}

// ListByScope returns sittings for one (exam, grade) scope.
func (r *ExamScheduleRepository) ListByScope(ctx context.Context, examID string, grade int) ([]models.ExamSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM exam_schedules s JOIN subjects sub ON sub.id = s.subject_id WHERE s.exam_id = $1 AND s.grade = $2 ORDER BY s.exam_date ASC, s.start_hour ASC, s.start_minute ASC`, examScheduleColumns)
	var sittings []models.ExamSchedule
	if err := r.db.SelectContext(ctx, &sittings, query, examID, grade); err != nil {
		return nil, fmt.Errorf("list sittings by scope: %w", err)
	}
	return sittings, nil
}

// ListByScopeAndDate returns the sittings sharing a scope and calendar day,
// optionally excluding one sitting (for self-excluding updates).
func (r *ExamScheduleRepository) ListByScopeAndDate(ctx context.Context, examID string, grade int, date time.Time, excludeID string) ([]models.ExamSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM exam_schedules s JOIN subjects sub ON sub.id = s.subject_id WHERE s.exam_id = $1 AND s.grade = $2 AND s.exam_date = $3`, examScheduleColumns)
	args := []interface{}{examID, grade, date}
	if excludeID != "" {
		query += " AND s.id <> $4"
		args = append(args, excludeID)
	}
	query += " ORDER BY s.start_hour ASC, s.start_minute ASC"
	var sittings []models.ExamSchedule
	if err := r.db.SelectContext(ctx, &sittings, query, args...); err != nil {
		return nil, fmt.Errorf("list sittings by scope and date: %w", err)
	}
	return sittings, nil
}

// ExistsForSubject reports whether the scope already has a sitting for the subject.
func (r *ExamScheduleRepository) ExistsForSubject(ctx context.Context, examID string, grade int, subjectID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM exam_schedules WHERE exam_id = $1 AND grade = $2 AND subject_id = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, examID, grade, subjectID); err != nil {
		return false, fmt.Errorf("count sittings for subject: %w", err)
	}
	return count > 0, nil
}

// BulkCreateWithTx inserts sittings using an existing transaction.
func (r *ExamScheduleRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sittings []models.ExamSchedule) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range sittings {
		payload := sittings[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO exam_schedules (id, exam_id, grade, subject_id, exam_date, start_hour, start_minute, duration_minutes, end_hour, end_minute, assigned_count, created_at, updated_at) VALUES (:id, :exam_id, :grade, :subject_id, :exam_date, :start_hour, :start_minute, :duration_minutes, :end_hour, :end_minute, :assigned_count, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert sitting: %w", err)
		}
		sittings[i] = payload
	}
	return nil
}

// UpdateTime moves a sitting to a new date/time and recomputed end.
func (r *ExamScheduleRepository) UpdateTime(ctx context.Context, sitting *models.ExamSchedule) error {
	sitting.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exam_schedules SET exam_date = :exam_date, start_hour = :start_hour, start_minute = :start_minute, duration_minutes = :duration_minutes, end_hour = :end_hour, end_minute = :end_minute, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sitting); err != nil {
		return fmt.Errorf("update sitting time: %w", err)
	}
	return nil
}

// UpdateAssignedCount sets the denormalized assigned-candidate count.
func (r *ExamScheduleRepository) UpdateAssignedCount(ctx context.Context, exec sqlx.ExtContext, id string, count int) error {
	const query = `UPDATE exam_schedules SET assigned_count = $1, updated_at = $2 WHERE id = $3`
	if _, err := exec.ExecContext(ctx, query, count, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update sitting assigned count: %w", err)
	}
	return nil
}

// DeleteWithTx removes a sitting within an existing transaction.
func (r *ExamScheduleRepository) DeleteWithTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exam_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete sitting: %w", err)
	}
	return nil
}
