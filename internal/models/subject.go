package models

import (
	"time"

	"github.com/lib/pq"
)

// Subject represents an examinable subject.
type Subject struct {
	ID              string        `db:"id" json:"id"`
	Code            string        `db:"code" json:"code"`
	Name            string        `db:"name" json:"name"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Grades          pq.Int64Array `db:"grades" json:"grades"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}
