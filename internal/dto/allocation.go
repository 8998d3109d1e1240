package dto

// AssignRoomsRequest fills the rooms already bound to a sitting, in room order.
type AssignRoomsRequest struct {
	MaxPerRoom int `json:"maxPerRoom" validate:"omitempty,min=1,max=60"`
}

// AssignRoomsResponse reports the single-sitting assignment outcome.
type AssignRoomsResponse struct {
	SittingID     string `json:"sittingId"`
	AssignedCount int    `json:"assignedCount"`
	RoomsUsed     int    `json:"roomsUsed"`
}

// AssignRoomsAdvancedRequest allocates candidates for several sittings at once,
// excluding rooms that are already booked for an overlapping window.
type AssignRoomsAdvancedRequest struct {
	SittingIDs []string `json:"sittingIds" validate:"required,min=1,dive,required"`
}

// SittingAllocationResult is the per-sitting outcome of an advanced assignment.
type SittingAllocationResult struct {
	SittingID     string `json:"sittingId"`
	AssignedCount int    `json:"assignedCount"`
	RoomsUsed     int    `json:"roomsUsed"`
}

// RoomDistributionEntry summarises one room of a sitting for read-side consumers.
type RoomDistributionEntry struct {
	RoomID        string   `json:"roomId"`
	RoomCode      string   `json:"roomCode"`
	Capacity      int      `json:"capacity"`
	AssignedCount int      `json:"assignedCount"`
	IsFull        bool     `json:"isFull"`
	Invigilators  []string `json:"invigilators,omitempty"`
}

// RoomDistributionResponse is the cached distribution summary for a sitting.
type RoomDistributionResponse struct {
	SittingID string                  `json:"sittingId"`
	Rooms     []RoomDistributionEntry `json:"rooms"`
	Total     int                     `json:"total"`
}
