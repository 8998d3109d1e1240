package models

import (
	"time"

	"github.com/lib/pq"
)

// Exam statuses.
const (
	ExamStatusDraft     = "DRAFT"
	ExamStatusScheduled = "SCHEDULED"
	ExamStatusClosed    = "CLOSED"
)

// Exam represents an exam window covering one or more grades.
type Exam struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	StartDate time.Time     `db:"start_date" json:"start_date"`
	EndDate   time.Time     `db:"end_date" json:"end_date"`
	Grades    pq.Int64Array `db:"grades" json:"grades"`
	Status    string        `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// DayCount returns the number of calendar days in the exam window, inclusive.
func (e *Exam) DayCount() int {
	if e.EndDate.Before(e.StartDate) {
		return 0
	}
	return int(e.EndDate.Sub(e.StartDate).Hours()/24) + 1
}

// CoversGrade reports whether the exam includes the given grade.
func (e *Exam) CoversGrade(grade int) bool {
	for _, g := range e.Grades {
		if int(g) == grade {
			return true
		}
	}
	return false
}
