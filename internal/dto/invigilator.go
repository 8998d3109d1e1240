package dto

// AssignInvigilatorsResponse lists rooms that received a supervisor pair and
// rooms skipped for lack of eligible staff.
type AssignInvigilatorsResponse struct {
	RoomsAssigned []string `json:"roomsAssigned"`
	RoomsSkipped  []string `json:"roomsSkipped,omitempty"`
}
