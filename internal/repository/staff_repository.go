package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// StaffRepository provides read access to the invigilator pool.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new staff repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// ListActive returns the active invigilator pool ordered by name.
func (r *StaffRepository) ListActive(ctx context.Context) ([]models.Staff, error) {
	const query = `SELECT id, full_name, status, created_at, updated_at FROM staff WHERE status = $1 ORDER BY full_name ASC`
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, models.StaffStatusActive); err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	return staff, nil
}
