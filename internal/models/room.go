package models

import "time"

// Room statuses.
const (
	RoomStatusAvailable   = "AVAILABLE"
	RoomStatusUnavailable = "UNAVAILABLE"
)

// Room represents a physical exam room with a fixed capacity.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
