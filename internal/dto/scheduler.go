package dto

// GenerateScheduleRequest instructs the generator to place a grade's subject
// sittings into the exam window. AllGrades runs the algorithm independently
// for every grade the exam covers.
type GenerateScheduleRequest struct {
	ExamID          string `json:"examId" validate:"required"`
	Grade           int    `json:"grade" validate:"omitempty,min=1,max=12"`
	AllGrades       bool   `json:"allGrades"`
	DaysCount       int    `json:"daysCount" validate:"omitempty,min=1,max=31"`
	MaxPerDay       int    `json:"maxPerDay" validate:"omitempty,min=1,max=8"`
	StartHour       int    `json:"startHour" validate:"omitempty,min=5,max=14"`
	BreakMinutes    int    `json:"breakMinutes" validate:"omitempty,min=0,max=180"`
	DefaultDuration int    `json:"defaultDuration" validate:"omitempty,min=15,max=300"`
}

// ScheduleConflictItem reports one subject the generator could not place.
type ScheduleConflictItem struct {
	Grade   int    `json:"grade"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// GradeDistribution summarises what was placed for one grade.
type GradeDistribution struct {
	Grade        int `json:"grade"`
	CreatedCount int `json:"createdCount"`
}

// GenerateScheduleResponse returns the generator outcome, partial failures included.
type GenerateScheduleResponse struct {
	CreatedCount int                    `json:"createdCount"`
	Conflicts    []ScheduleConflictItem `json:"conflicts"`
	Distribution []GradeDistribution    `json:"distribution"`
}

// CreateSittingRequest creates a single sitting manually.
type CreateSittingRequest struct {
	ExamID          string `json:"examId" validate:"required"`
	Grade           int    `json:"grade" validate:"required,min=1,max=12"`
	SubjectID       string `json:"subjectId" validate:"required"`
	ExamDate        string `json:"examDate" validate:"required,datetime=2006-01-02"`
	StartHour       int    `json:"startHour" validate:"min=0,max=23"`
	StartMinute     int    `json:"startMinute" validate:"min=0,max=59"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,min=15,max=300"`
}

// UpdateSittingTimeRequest moves an existing sitting to a new date/time.
type UpdateSittingTimeRequest struct {
	ExamDate        string `json:"examDate" validate:"required,datetime=2006-01-02"`
	StartHour       int    `json:"startHour" validate:"min=0,max=23"`
	StartMinute     int    `json:"startMinute" validate:"min=0,max=59"`
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,min=15,max=300"`
}

// SittingQuery filters sittings by exam and optionally grade.
type SittingQuery struct {
	ExamID string `form:"examId" json:"examId"`
	Grade  int    `form:"grade" json:"grade"`
}
