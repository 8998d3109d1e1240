package dto

// RegisterCandidateItem is one student to register for the exam.
type RegisterCandidateItem struct {
	StudentID string `json:"studentId" validate:"required"`
	FullName  string `json:"fullName" validate:"required"`
}

// RegisterCandidatesRequest registers students for one exam and grade,
// issuing an SBD per candidate.
type RegisterCandidatesRequest struct {
	ExamID     string                  `json:"examId" validate:"required"`
	Grade      int                     `json:"grade" validate:"required,min=1,max=12"`
	Candidates []RegisterCandidateItem `json:"candidates" validate:"required,min=1,dive"`
}

// RegisteredCandidate echoes a stored candidate with its issued SBD.
type RegisteredCandidate struct {
	ID        string `json:"id"`
	StudentID string `json:"studentId"`
	FullName  string `json:"fullName"`
	SBD       string `json:"sbd"`
}

// RegisterCandidatesResponse returns the issued registrations.
type RegisterCandidatesResponse struct {
	ExamID     string                `json:"examId"`
	Grade      int                   `json:"grade"`
	Registered []RegisteredCandidate `json:"registered"`
}
