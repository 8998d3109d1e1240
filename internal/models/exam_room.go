package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Invigilator roles.
const (
	InvigilatorRoleMain      = "main"
	InvigilatorRoleAssistant = "assistant"
)

// Invigilator is one staff member supervising an exam room.
type Invigilator struct {
	StaffID string `json:"staff_id"`
	Role    string `json:"role"`
}

// ExamRoom binds a room to one sitting. The time window is inherited from
// the sitting; invigilators are stored as a jsonb list.
type ExamRoom struct {
	ID             string         `db:"id" json:"id"`
	ExamScheduleID string         `db:"exam_schedule_id" json:"exam_schedule_id"`
	RoomID         string         `db:"room_id" json:"room_id"`
	RoomCode       string         `db:"room_code" json:"room_code,omitempty"`
	Capacity       int            `db:"capacity" json:"capacity,omitempty"`
	Invigilators   types.JSONText `db:"invigilators" json:"invigilators"`
	IsFull         bool           `db:"is_full" json:"is_full"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// ExamRoomOccupancy joins an occupation with the time window of its sitting,
// used to exclude booked rooms and double-booked invigilators.
type ExamRoomOccupancy struct {
	ExamRoomID     string         `db:"exam_room_id" json:"exam_room_id"`
	ExamScheduleID string         `db:"exam_schedule_id" json:"exam_schedule_id"`
	RoomID         string         `db:"room_id" json:"room_id"`
	ExamDate       time.Time      `db:"exam_date" json:"exam_date"`
	StartHour      int            `db:"start_hour" json:"start_hour"`
	StartMinute    int            `db:"start_minute" json:"start_minute"`
	EndHour        int            `db:"end_hour" json:"end_hour"`
	EndMinute      int            `db:"end_minute" json:"end_minute"`
	Invigilators   types.JSONText `db:"invigilators" json:"invigilators,omitempty"`
}

// RoomAssignment ties one candidate to one exam room with a seat number.
type RoomAssignment struct {
	ID            string    `db:"id" json:"id"`
	ExamRoomID    string    `db:"exam_room_id" json:"exam_room_id"`
	ExamStudentID string    `db:"exam_student_id" json:"exam_student_id"`
	SeatNumber    int       `db:"seat_number" json:"seat_number"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
