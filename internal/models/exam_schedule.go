package models

import (
	"fmt"
	"time"
)

// ExamSchedule represents one subject sitting for one grade within an exam.
// The end time is derived from the start time plus the duration.
type ExamSchedule struct {
	ID              string    `db:"id" json:"id"`
	ExamID          string    `db:"exam_id" json:"exam_id"`
	Grade           int       `db:"grade" json:"grade"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	SubjectName     string    `db:"subject_name" json:"subject_name,omitempty"`
	ExamDate        time.Time `db:"exam_date" json:"exam_date"`
	StartHour       int       `db:"start_hour" json:"start_hour"`
	StartMinute     int       `db:"start_minute" json:"start_minute"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	EndHour         int       `db:"end_hour" json:"end_hour"`
	EndMinute       int       `db:"end_minute" json:"end_minute"`
	AssignedCount   int       `db:"assigned_count" json:"assigned_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StartLabel renders the start time as HH:MM.
func (s *ExamSchedule) StartLabel() string {
	return fmt.Sprintf("%02d:%02d", s.StartHour, s.StartMinute)
}

// EndLabel renders the end time as HH:MM.
func (s *ExamSchedule) EndLabel() string {
	return fmt.Sprintf("%02d:%02d", s.EndHour, s.EndMinute)
}

// ScheduleConflict describes an existing sitting that blocks a placement.
type ScheduleConflict struct {
	ScheduleID  string    `json:"schedule_id"`
	ExamID      string    `json:"exam_id"`
	Grade       int       `json:"grade"`
	SubjectID   string    `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	ExamDate    time.Time `json:"exam_date"`
	Window      string    `json:"window"`
}

// ScheduleConflictError is returned when a sitting collides with an existing one.
type ScheduleConflictError struct {
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
