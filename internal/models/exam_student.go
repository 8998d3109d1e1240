package models

import (
	"database/sql"
	"time"
)

// Candidate statuses.
const (
	ExamStudentStatusRegistered = "REGISTERED"
	ExamStudentStatusAssigned   = "ASSIGNED"
	ExamStudentStatusWithdrawn  = "WITHDRAWN"
)

// ExamStudent is a candidate registered for an exam and grade, carrying the
// generated SBD (candidate number) once issued.
type ExamStudent struct {
	ID        string         `db:"id" json:"id"`
	ExamID    string         `db:"exam_id" json:"exam_id"`
	Grade     int            `db:"grade" json:"grade"`
	StudentID string         `db:"student_id" json:"student_id"`
	FullName  string         `db:"full_name" json:"full_name"`
	SBD       sql.NullString `db:"sbd" json:"sbd,omitempty"`
	RoomID    sql.NullString `db:"room_id" json:"room_id,omitempty"`
	Status    string         `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
