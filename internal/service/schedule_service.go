package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByGrade(ctx context.Context, grade int) ([]models.Subject, error)
}

type sittingRepository interface {
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
	ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error)
	ListByScope(ctx context.Context, examID string, grade int) ([]models.ExamSchedule, error)
	ExistsForSubject(ctx context.Context, examID string, grade int, subjectID string) (bool, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sittings []models.ExamSchedule) error
	UpdateTime(ctx context.Context, sitting *models.ExamSchedule) error
	DeleteWithTx(ctx context.Context, tx *sqlx.Tx, id string) error
}

type occupationCascader interface {
	DeleteByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error
}

type seatCascader interface {
	DeleteByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error
}

type placementCascader interface {
	ClearPlacementByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error
}

type sittingConflictChecker interface {
	Check(ctx context.Context, examID string, grade int, date time.Time, start TimeOfDay, durationMinutes int, excludeID string) (*models.ScheduleConflict, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleConfig carries the generator defaults.
type ScheduleConfig struct {
	StartHour       int
	BreakMinutes    int
	MaxPerDay       int
	DefaultDuration int
}

// ScheduleService places subject sittings into an exam window and manages the
// sitting lifecycle.
type ScheduleService struct {
	exams     examReader
	subjects  subjectReader
	sittings  sittingRepository
	rooms     occupationCascader
	seats     seatCascader
	placement placementCascader
	conflicts sittingConflictChecker
	tx        txProvider
	locker    *ScopeLocker
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ScheduleConfig
}

// NewScheduleService wires scheduler dependencies.
func NewScheduleService(
	exams examReader,
	subjects subjectReader,
	sittings sittingRepository,
	rooms occupationCascader,
	seats seatCascader,
	placement placementCascader,
	conflicts sittingConflictChecker,
	tx txProvider,
	locker *ScopeLocker,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ScheduleConfig,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewScopeLocker()
	}
	if cfg.StartHour <= 0 {
		cfg.StartHour = 7
	}
	if cfg.BreakMinutes <= 0 {
		cfg.BreakMinutes = 30
	}
	if cfg.MaxPerDay <= 0 {
		cfg.MaxPerDay = 4
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 90
	}
	return &ScheduleService{
		exams:     exams,
		subjects:  subjects,
		sittings:  sittings,
		rooms:     rooms,
		seats:     seats,
		placement: placement,
		conflicts: conflicts,
		tx:        tx,
		locker:    locker,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate runs the bounded greedy round-robin placement for one grade or for
// every grade of the exam. Each grade is processed independently with its own
// day plan; results across grades are persisted together at the end.
func (s *ScheduleService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	if !req.AllGrades && req.Grade == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade is required unless allGrades is set")
	}

	exam, err := s.loadExam(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}

	grades, err := resolveGrades(exam, req)
	if err != nil {
		return nil, err
	}

	daysCount := exam.DayCount()
	if req.DaysCount > 0 && req.DaysCount < daysCount {
		daysCount = req.DaysCount
	}
	if daysCount == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam window contains no days")
	}

	maxPerDay := orDefault(req.MaxPerDay, s.cfg.MaxPerDay)
	startHour := orDefault(req.StartHour, s.cfg.StartHour)
	breakMinutes := req.BreakMinutes
	if breakMinutes == 0 {
		breakMinutes = s.cfg.BreakMinutes
	}
	defaultDuration := orDefault(req.DefaultDuration, s.cfg.DefaultDuration)

	// The exam-wide lock also covers single-grade runs so an all-grades run
	// cannot interleave with them.
	release := s.locker.Acquire(req.ExamID)
	defer release()

	var staged []models.ExamSchedule
	conflicts := make([]dto.ScheduleConflictItem, 0)
	distribution := make([]dto.GradeDistribution, 0, len(grades))

	for _, grade := range grades {
		placed, gradeConflicts, err := s.placeGrade(ctx, exam, grade, daysCount, maxPerDay, startHour, breakMinutes, defaultDuration)
		if err != nil {
			return nil, err
		}
		staged = append(staged, placed...)
		conflicts = append(conflicts, gradeConflicts...)
		distribution = append(distribution, dto.GradeDistribution{Grade: grade, CreatedCount: len(placed)})
	}

	s.metrics.RecordScheduling(len(staged), len(conflicts))

	if len(staged) == 0 {
		return nil, appErrors.Wrap(
			fmt.Errorf("%d subjects unschedulable", len(conflicts)),
			appErrors.ErrPreconditionFailed.Code,
			appErrors.ErrPreconditionFailed.Status,
			"no sitting could be scheduled",
		)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.sittings.BulkCreateWithTx(ctx, tx, staged); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist sittings")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit sittings")
		return nil, err
	}

	s.logger.Info("schedule generated",
		zap.String("exam_id", req.ExamID),
		zap.Int("created", len(staged)),
		zap.Int("conflicts", len(conflicts)),
	)

	return &dto.GenerateScheduleResponse{
		CreatedCount: len(staged),
		Conflicts:    conflicts,
		Distribution: distribution,
	}, nil
}

// placeGrade runs the round-robin loop for one (exam, grade) scope.
func (s *ScheduleService) placeGrade(ctx context.Context, exam *models.Exam, grade, daysCount, maxPerDay, startHour, breakMinutes, defaultDuration int) ([]models.ExamSchedule, []dto.ScheduleConflictItem, error) {
	subjects, err := s.subjects.ListByGrade(ctx, grade)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })

	dayPlan := make(map[int][]Window, daysCount)
	cursor := 0

	var staged []models.ExamSchedule
	var conflicts []dto.ScheduleConflictItem

	for _, subject := range subjects {
		exists, err := s.sittings.ExistsForSubject(ctx, exam.ID, grade, subject.ID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing sitting")
		}
		if exists {
			// At most one sitting per (exam, grade, subject); repeated
			// invocations skip what is already committed.
			continue
		}

		duration := subject.DurationMinutes
		if duration <= 0 {
			duration = defaultDuration
		}

		placed := false
		for attempt := 0; attempt < daysCount*2; attempt++ {
			day := cursor % daysCount
			if len(dayPlan[day]) >= maxPerDay {
				cursor++
				continue
			}
			start := nextStart(dayPlan[day], startHour, breakMinutes)
			date := exam.StartDate.AddDate(0, 0, day)

			conflict, err := s.conflicts.Check(ctx, exam.ID, grade, date, start, duration, "")
			if err != nil {
				return nil, nil, err
			}
			if conflict != nil {
				cursor++
				continue
			}

			end := start.Add(duration)
			dayPlan[day] = append(dayPlan[day], Window{Start: start, End: end})
			staged = append(staged, models.ExamSchedule{
				ExamID:          exam.ID,
				Grade:           grade,
				SubjectID:       subject.ID,
				SubjectName:     subject.Name,
				ExamDate:        date,
				StartHour:       start.Hour,
				StartMinute:     start.Minute,
				DurationMinutes: duration,
				EndHour:         end.Hour,
				EndMinute:       end.Minute,
			})
			placed = true
			break
		}

		if !placed {
			conflicts = append(conflicts, dto.ScheduleConflictItem{
				Grade:   grade,
				Subject: subject.Name,
				Reason:  fmt.Sprintf("no free slot within %d days (max %d sittings/day)", daysCount, maxPerDay),
			})
		}
	}

	return staged, conflicts, nil
}

// CreateSitting inserts one sitting manually after full validation.
func (s *ScheduleService) CreateSitting(ctx context.Context, req dto.CreateSittingRequest) (*models.ExamSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sitting payload")
	}

	exam, err := s.loadExam(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if !exam.CoversGrade(req.Grade) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam does not cover grade %d", req.Grade))
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	date, err := parseExamDate(req.ExamDate)
	if err != nil {
		return nil, err
	}
	if err := ensureWithinWindow(exam, date); err != nil {
		return nil, err
	}

	release := s.locker.Acquire(req.ExamID)
	defer release()

	exists, err := s.sittings.ExistsForSubject(ctx, req.ExamID, req.Grade, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing sitting")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("subject %s already has a sitting for grade %d", subject.Code, req.Grade))
	}

	start := TimeOfDay{Hour: req.StartHour, Minute: req.StartMinute}
	conflict, err := s.conflicts.Check(ctx, req.ExamID, req.Grade, date, start, req.DurationMinutes, "")
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, appErrors.Wrap(
			&models.ScheduleConflictError{Message: conflictMessage(conflict), Conflict: *conflict},
			appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
			conflictMessage(conflict),
		)
	}

	end := start.Add(req.DurationMinutes)
	sitting := models.ExamSchedule{
		ExamID:          req.ExamID,
		Grade:           req.Grade,
		SubjectID:       req.SubjectID,
		SubjectName:     subject.Name,
		ExamDate:        date,
		StartHour:       start.Hour,
		StartMinute:     start.Minute,
		DurationMinutes: req.DurationMinutes,
		EndHour:         end.Hour,
		EndMinute:       end.Minute,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	batch := []models.ExamSchedule{sitting}
	if err = s.sittings.BulkCreateWithTx(ctx, tx, batch); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist sitting")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit sitting")
		return nil, err
	}

	return &batch[0], nil
}

// UpdateSittingTime moves a sitting, revalidating invariants while excluding
// the sitting itself from the conflict check.
func (s *ScheduleService) UpdateSittingTime(ctx context.Context, id string, req dto.UpdateSittingTimeRequest) (*models.ExamSchedule, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sitting id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sitting update payload")
	}

	sitting, err := s.loadSitting(ctx, id)
	if err != nil {
		return nil, err
	}
	exam, err := s.loadExam(ctx, sitting.ExamID)
	if err != nil {
		return nil, err
	}

	date, err := parseExamDate(req.ExamDate)
	if err != nil {
		return nil, err
	}
	if err := ensureWithinWindow(exam, date); err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = sitting.DurationMinutes
	}

	release := s.locker.Acquire(sitting.ExamID)
	defer release()

	start := TimeOfDay{Hour: req.StartHour, Minute: req.StartMinute}
	conflict, err := s.conflicts.Check(ctx, sitting.ExamID, sitting.Grade, date, start, duration, sitting.ID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, appErrors.Wrap(
			&models.ScheduleConflictError{Message: conflictMessage(conflict), Conflict: *conflict},
			appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
			conflictMessage(conflict),
		)
	}

	end := start.Add(duration)
	sitting.ExamDate = date
	sitting.StartHour = start.Hour
	sitting.StartMinute = start.Minute
	sitting.DurationMinutes = duration
	sitting.EndHour = end.Hour
	sitting.EndMinute = end.Minute

	if err := s.sittings.UpdateTime(ctx, sitting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sitting")
	}
	return sitting, nil
}

// DeleteSitting removes a sitting and cascades to its allocations.
func (s *ScheduleService) DeleteSitting(ctx context.Context, id string) error {
	sitting, err := s.loadSitting(ctx, id)
	if err != nil {
		return err
	}

	release := s.locker.Acquire(sitting.ExamID)
	defer release()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Candidates must be released before their assignment rows disappear.
	if err = s.placement.ClearPlacementByScheduleWithTx(ctx, tx, id); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release candidates")
		return err
	}
	if err = s.seats.DeleteByScheduleWithTx(ctx, tx, id); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete seat assignments")
		return err
	}
	if err = s.rooms.DeleteByScheduleWithTx(ctx, tx, id); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room occupations")
		return err
	}
	if err = s.sittings.DeleteWithTx(ctx, tx, id); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sitting")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit sitting deletion")
		return err
	}
	return nil
}

// ListSittings returns sittings for an exam, optionally narrowed to a grade.
func (s *ScheduleService) ListSittings(ctx context.Context, query dto.SittingQuery) ([]models.ExamSchedule, error) {
	if query.ExamID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "examId is required")
	}
	var (
		sittings []models.ExamSchedule
		err      error
	)
	if query.Grade > 0 {
		sittings, err = s.sittings.ListByScope(ctx, query.ExamID, query.Grade)
	} else {
		sittings, err = s.sittings.ListByExam(ctx, query.ExamID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sittings")
	}
	return sittings, nil
}

func (s *ScheduleService) loadExam(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

func (s *ScheduleService) loadSitting(ctx context.Context, id string) (*models.ExamSchedule, error) {
	sitting, err := s.sittings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sitting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sitting")
	}
	return sitting, nil
}

func resolveGrades(exam *models.Exam, req dto.GenerateScheduleRequest) ([]int, error) {
	if req.AllGrades {
		grades := make([]int, 0, len(exam.Grades))
		for _, g := range exam.Grades {
			grades = append(grades, int(g))
		}
		sort.Ints(grades)
		if len(grades) == 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exam covers no grades")
		}
		return grades, nil
	}
	if !exam.CoversGrade(req.Grade) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam does not cover grade %d", req.Grade))
	}
	return []int{req.Grade}, nil
}

func parseExamDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "examDate must be YYYY-MM-DD")
	}
	return date, nil
}

func ensureWithinWindow(exam *models.Exam, date time.Time) error {
	if date.Before(exam.StartDate) || date.After(exam.EndDate) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is outside the exam window %s..%s",
			date.Format("2006-01-02"), exam.StartDate.Format("2006-01-02"), exam.EndDate.Format("2006-01-02")))
	}
	return nil
}

func orDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
