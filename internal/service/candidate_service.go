package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type candidateWriter interface {
	ListByScope(ctx context.Context, examID string, grade int) ([]models.ExamStudent, error)
	CountWithSBDByScope(ctx context.Context, exec sqlx.ExtContext, examID string, grade int) (int, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, students []models.ExamStudent) error
}

// CandidateService registers candidates into an exam scope and issues their
// SBD numbers.
type CandidateService struct {
	exams      examReader
	candidates candidateWriter
	tx         txProvider
	locker     *ScopeLocker
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCandidateService wires candidate registration dependencies.
func NewCandidateService(exams examReader, candidates candidateWriter, tx txProvider, locker *ScopeLocker, validate *validator.Validate, logger *zap.Logger) *CandidateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewScopeLocker()
	}
	return &CandidateService{
		exams:      exams,
		candidates: candidates,
		tx:         tx,
		locker:     locker,
		validator:  validate,
		logger:     logger,
	}
}

// RegisterCandidates enrolls the given candidates into the exam scope. Each
// candidate gets the next free SBD for the scope, with the grade as prefix and
// a zero-padded sequence, e.g. the 13th grade-11 candidate gets "110013".
func (s *CandidateService) RegisterCandidates(ctx context.Context, req dto.RegisterCandidatesRequest) (*dto.RegisterCandidatesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	exam, err := s.exams.FindByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if !exam.CoversGrade(req.Grade) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade is not covered by the exam")
	}

	release := s.locker.Acquire(req.ExamID)
	defer release()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	base, err := s.candidates.CountWithSBDByScope(ctx, tx, req.ExamID, req.Grade)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count issued candidate numbers")
		return nil, err
	}

	students := make([]models.ExamStudent, 0, len(req.Candidates))
	registered := make([]dto.RegisteredCandidate, 0, len(req.Candidates))
	for i, candidate := range req.Candidates {
		sbd := FormatSBD(req.Grade, base+i+1)
		students = append(students, models.ExamStudent{
			ExamID:    req.ExamID,
			Grade:     req.Grade,
			StudentID: candidate.StudentID,
			FullName:  candidate.FullName,
			SBD:       sql.NullString{String: sbd, Valid: true},
		})
		registered = append(registered, dto.RegisteredCandidate{
			StudentID: candidate.StudentID,
			FullName:  candidate.FullName,
			SBD:       sbd,
		})
	}

	if err = s.candidates.BulkCreateWithTx(ctx, tx, students); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register candidates")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit registration")
		return nil, err
	}

	s.logger.Info("candidates registered",
		zap.String("exam_id", req.ExamID),
		zap.Int("grade", req.Grade),
		zap.Int("count", len(registered)),
	)
	return &dto.RegisterCandidatesResponse{
		ExamID:     req.ExamID,
		Grade:      req.Grade,
		Registered: registered,
	}, nil
}

// ListCandidates returns a scope's registered candidates.
func (s *CandidateService) ListCandidates(ctx context.Context, examID string, grade int) ([]models.ExamStudent, error) {
	if examID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam id is required")
	}
	candidates, err := s.candidates.ListByScope(ctx, examID, grade)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidates")
	}
	return candidates, nil
}
