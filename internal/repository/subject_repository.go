package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// SubjectRepository provides read access to the subject catalogue.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID loads a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, code, name, duration_minutes, grades, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByGrade returns subjects applicable to a grade, ordered by code so the
// generator processes them deterministically.
func (r *SubjectRepository) ListByGrade(ctx context.Context, grade int) ([]models.Subject, error) {
	const query = `SELECT id, code, name, duration_minutes, grades, created_at, updated_at FROM subjects WHERE $1 = ANY(grades) ORDER BY code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, grade); err != nil {
		return nil, fmt.Errorf("list subjects by grade: %w", err)
	}
	return subjects, nil
}
