package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/dto"
	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

func TestScheduleServiceGenerateFillsDayBeforeAdvancing(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	fx := newScheduleFixture(t, scheduleFixtureConfig{tx: txProvider})

	resp, err := fx.svc.Generate(context.Background(), dto.GenerateScheduleRequest{
		ExamID: "exam-1",
		Grade:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.CreatedCount)
	assert.Empty(t, resp.Conflicts)
	require.Len(t, resp.Distribution, 1)
	assert.Equal(t, 10, resp.Distribution[0].Grade)
	assert.Equal(t, 5, resp.Distribution[0].CreatedCount)

	staged := fx.sittings.created
	require.Len(t, staged, 5)

	dayOne := examStart()
	dayTwo := examStart().AddDate(0, 0, 1)
	wantStarts := []string{"07:30", "09:30", "11:30", "13:30", "07:30"}
	for i, sitting := range staged {
		assert.Equal(t, wantStarts[i], sitting.StartLabel())
	}
	for _, sitting := range staged[:4] {
		assert.True(t, sitting.ExamDate.Equal(dayOne), "first four sittings belong on day one")
	}
	assert.True(t, staged[4].ExamDate.Equal(dayTwo), "fifth sitting spills to day two")
	assert.Equal(t, "09:00", staged[0].EndLabel())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceGeneratePartialFailure(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	fx := newScheduleFixture(t, scheduleFixtureConfig{tx: txProvider})

	resp, err := fx.svc.Generate(context.Background(), dto.GenerateScheduleRequest{
		ExamID:    "exam-1",
		Grade:     10,
		DaysCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.CreatedCount)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, 10, resp.Conflicts[0].Grade)
	assert.Equal(t, "Chemistry", resp.Conflicts[0].Subject)
	assert.Contains(t, resp.Conflicts[0].Reason, "no free slot")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceGenerateAllGradesIndependently(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	fx := newScheduleFixture(t, scheduleFixtureConfig{
		tx: txProvider,
		subjects: map[int][]models.Subject{
			10: {subjectFixture("s-mat", "MAT", "Mathematics", 90)},
			11: {subjectFixture("s-lit", "LIT", "Literature", 90)},
		},
	})

	resp, err := fx.svc.Generate(context.Background(), dto.GenerateScheduleRequest{
		ExamID:    "exam-1",
		AllGrades: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.CreatedCount)
	require.Len(t, resp.Distribution, 2)

	staged := fx.sittings.created
	require.Len(t, staged, 2)
	// Each grade owns its own day plan, so both land on day one at 07:30.
	for _, sitting := range staged {
		assert.Equal(t, "07:30", sitting.StartLabel())
		assert.True(t, sitting.ExamDate.Equal(examStart()))
	}
	assert.NotEqual(t, staged[0].Grade, staged[1].Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceGenerateNothingPlaced(t *testing.T) {
	checker := &checkerStub{conflict: &models.ScheduleConflict{SubjectName: "Mathematics", Window: "07:30-09:00"}}
	fx := newScheduleFixture(t, scheduleFixtureConfig{conflicts: checker})

	_, err := fx.svc.Generate(context.Background(), dto.GenerateScheduleRequest{
		ExamID: "exam-1",
		Grade:  10,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestScheduleServiceGenerateRequiresGrade(t *testing.T) {
	fx := newScheduleFixture(t, scheduleFixtureConfig{})

	_, err := fx.svc.Generate(context.Background(), dto.GenerateScheduleRequest{ExamID: "exam-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceGenerateSkipsCommittedSubjects(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	fx := newScheduleFixture(t, scheduleFixtureConfig{tx: txProvider})
	fx.sittings.existing["exam-1|10|s-mat"] = true

	resp, err := fx.svc.Generate(context.Background(), dto.GenerateScheduleRequest{
		ExamID: "exam-1",
		Grade:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.CreatedCount)
	for _, sitting := range fx.sittings.created {
		assert.NotEqual(t, "s-mat", sitting.SubjectID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceCreateSittingConflict(t *testing.T) {
	checker := &checkerStub{conflict: &models.ScheduleConflict{
		ScheduleID:  "sit-existing",
		SubjectName: "Literature",
		Window:      "08:30-09:30",
	}}
	fx := newScheduleFixture(t, scheduleFixtureConfig{conflicts: checker})

	_, err := fx.svc.CreateSitting(context.Background(), dto.CreateSittingRequest{
		ExamID:          "exam-1",
		Grade:           10,
		SubjectID:       "s-mat",
		ExamDate:        "2026-06-01",
		StartHour:       8,
		StartMinute:     0,
		DurationMinutes: 90,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Literature")
	assert.Contains(t, appErr.Message, "08:30-09:30")
}

func TestScheduleServiceCreateSittingSuccess(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	fx := newScheduleFixture(t, scheduleFixtureConfig{tx: txProvider})

	sitting, err := fx.svc.CreateSitting(context.Background(), dto.CreateSittingRequest{
		ExamID:          "exam-1",
		Grade:           10,
		SubjectID:       "s-mat",
		ExamDate:        "2026-06-02",
		StartHour:       8,
		StartMinute:     45,
		DurationMinutes: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", sitting.SubjectName)
	assert.Equal(t, "08:45", sitting.StartLabel())
	assert.Equal(t, "10:15", sitting.EndLabel())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceCreateSittingOutsideWindow(t *testing.T) {
	fx := newScheduleFixture(t, scheduleFixtureConfig{})

	_, err := fx.svc.CreateSitting(context.Background(), dto.CreateSittingRequest{
		ExamID:          "exam-1",
		Grade:           10,
		SubjectID:       "s-mat",
		ExamDate:        "2026-07-01",
		StartHour:       8,
		DurationMinutes: 90,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateSittingDuplicateSubject(t *testing.T) {
	fx := newScheduleFixture(t, scheduleFixtureConfig{})
	fx.sittings.existing["exam-1|10|s-mat"] = true

	_, err := fx.svc.CreateSitting(context.Background(), dto.CreateSittingRequest{
		ExamID:          "exam-1",
		Grade:           10,
		SubjectID:       "s-mat",
		ExamDate:        "2026-06-01",
		StartHour:       8,
		DurationMinutes: 90,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceUpdateSittingTimeExcludesSelf(t *testing.T) {
	checker := &checkerStub{}
	fx := newScheduleFixture(t, scheduleFixtureConfig{conflicts: checker})
	fx.sittings.byID["sit-1"] = &models.ExamSchedule{
		ID:              "sit-1",
		ExamID:          "exam-1",
		Grade:           10,
		SubjectID:       "s-mat",
		ExamDate:        examStart(),
		StartHour:       7,
		StartMinute:     30,
		DurationMinutes: 90,
		EndHour:         9,
	}

	updated, err := fx.svc.UpdateSittingTime(context.Background(), "sit-1", dto.UpdateSittingTimeRequest{
		ExamDate:    "2026-06-02",
		StartHour:   10,
		StartMinute: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "sit-1", checker.lastExcludeID)
	assert.Equal(t, "10:00", updated.StartLabel())
	assert.Equal(t, "11:30", updated.EndLabel(), "end time follows from the kept duration")
	require.NotNil(t, fx.sittings.updated)
	assert.Equal(t, "sit-1", fx.sittings.updated.ID)
}

func TestScheduleServiceUpdateSittingTimeConflict(t *testing.T) {
	checker := &checkerStub{conflict: &models.ScheduleConflict{SubjectName: "English", Window: "10:00-11:30"}}
	fx := newScheduleFixture(t, scheduleFixtureConfig{conflicts: checker})
	fx.sittings.byID["sit-1"] = &models.ExamSchedule{
		ID: "sit-1", ExamID: "exam-1", Grade: 10, DurationMinutes: 90, ExamDate: examStart(),
	}

	_, err := fx.svc.UpdateSittingTime(context.Background(), "sit-1", dto.UpdateSittingTimeRequest{
		ExamDate:  "2026-06-02",
		StartHour: 10,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "English")
}

func TestScheduleServiceDeleteSittingCascades(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	fx := newScheduleFixture(t, scheduleFixtureConfig{tx: txProvider})
	fx.sittings.byID["sit-1"] = &models.ExamSchedule{ID: "sit-1", ExamID: "exam-1", Grade: 10}

	err := fx.svc.DeleteSitting(context.Background(), "sit-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"placements", "seats", "rooms"}, fx.cascades.calls)
	assert.Equal(t, []string{"sit-1"}, fx.sittings.deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceDeleteSittingNotFound(t *testing.T) {
	fx := newScheduleFixture(t, scheduleFixtureConfig{})

	err := fx.svc.DeleteSitting(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// --- Fixtures ---

type scheduleFixtureConfig struct {
	exam      *models.Exam
	subjects  map[int][]models.Subject
	conflicts sittingConflictChecker
	tx        txProvider
}

type scheduleFixture struct {
	svc      *ScheduleService
	sittings *sittingRepoStub
	cascades *cascadeLog
}

func newScheduleFixture(t *testing.T, cfg scheduleFixtureConfig) *scheduleFixture {
	t.Helper()

	exam := cfg.exam
	if exam == nil {
		exam = examFixture()
	}
	subjects := cfg.subjects
	if subjects == nil {
		subjects = map[int][]models.Subject{10: defaultSubjects()}
	}
	byID := make(map[string]*models.Subject)
	for _, list := range subjects {
		for i := range list {
			byID[list[i].ID] = &list[i]
		}
	}

	sittings := &sittingRepoStub{
		existing: make(map[string]bool),
		byID:     make(map[string]*models.ExamSchedule),
	}
	log := &cascadeLog{}
	conflicts := cfg.conflicts
	if conflicts == nil {
		conflicts = &checkerStub{}
	}
	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}

	svc := NewScheduleService(
		examLookupStub{exams: map[string]*models.Exam{exam.ID: exam}},
		subjectCatalogueStub{byID: byID, byGrade: subjects},
		sittings,
		cascadeRecorder{log: log, label: "rooms"},
		cascadeRecorder{log: log, label: "seats"},
		cascadeRecorder{log: log, label: "placements"},
		conflicts,
		tx,
		NewScopeLocker(),
		validator.New(),
		nil,
		zap.NewNop(),
		ScheduleConfig{},
	)
	return &scheduleFixture{svc: svc, sittings: sittings, cascades: log}
}

func examStart() time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
}

func examFixture() *models.Exam {
	return &models.Exam{
		ID:        "exam-1",
		Name:      "Final Term Exam",
		StartDate: examStart(),
		EndDate:   examStart().AddDate(0, 0, 2),
		Grades:    pq.Int64Array{10, 11},
		Status:    models.ExamStatusScheduled,
	}
}

func subjectFixture(id, code, name string, duration int) models.Subject {
	return models.Subject{ID: id, Code: code, Name: name, DurationMinutes: duration}
}

func defaultSubjects() []models.Subject {
	return []models.Subject{
		subjectFixture("s-mat", "A-MAT", "Mathematics", 90),
		subjectFixture("s-lit", "B-LIT", "Literature", 90),
		subjectFixture("s-eng", "C-ENG", "English", 90),
		subjectFixture("s-phy", "D-PHY", "Physics", 90),
		subjectFixture("s-che", "E-CHE", "Chemistry", 90),
	}
}

type examLookupStub struct {
	exams map[string]*models.Exam
}

func (s examLookupStub) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if exam, ok := s.exams[id]; ok {
		return exam, nil
	}
	return nil, sql.ErrNoRows
}

type subjectCatalogueStub struct {
	byID    map[string]*models.Subject
	byGrade map[int][]models.Subject
}

func (s subjectCatalogueStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := s.byID[id]; ok {
		return subject, nil
	}
	return nil, sql.ErrNoRows
}

func (s subjectCatalogueStub) ListByGrade(ctx context.Context, grade int) ([]models.Subject, error) {
	return s.byGrade[grade], nil
}

type sittingRepoStub struct {
	existing map[string]bool
	byID     map[string]*models.ExamSchedule
	created  []models.ExamSchedule
	updated  *models.ExamSchedule
	deleted  []string
}

func sittingKey(examID string, grade int, subjectID string) string {
	return fmt.Sprintf("%s|%d|%s", examID, grade, subjectID)
}

func (s *sittingRepoStub) FindByID(ctx context.Context, id string) (*models.ExamSchedule, error) {
	if sitting, ok := s.byID[id]; ok {
		return sitting, nil
	}
	return nil, sql.ErrNoRows
}

func (s *sittingRepoStub) ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error) {
	return s.created, nil
}

func (s *sittingRepoStub) ListByScope(ctx context.Context, examID string, grade int) ([]models.ExamSchedule, error) {
	var out []models.ExamSchedule
	for _, sitting := range s.created {
		if sitting.ExamID == examID && sitting.Grade == grade {
			out = append(out, sitting)
		}
	}
	return out, nil
}

func (s *sittingRepoStub) ExistsForSubject(ctx context.Context, examID string, grade int, subjectID string) (bool, error) {
	return s.existing[sittingKey(examID, grade, subjectID)], nil
}

func (s *sittingRepoStub) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sittings []models.ExamSchedule) error {
	s.created = append(s.created, sittings...)
	return nil
}

func (s *sittingRepoStub) UpdateTime(ctx context.Context, sitting *models.ExamSchedule) error {
	s.updated = sitting
	return nil
}

func (s *sittingRepoStub) DeleteWithTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type cascadeLog struct {
	calls []string
}

type cascadeRecorder struct {
	log   *cascadeLog
	label string
}

func (c cascadeRecorder) DeleteByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error {
	c.log.calls = append(c.log.calls, c.label)
	return nil
}

func (c cascadeRecorder) ClearPlacementByScheduleWithTx(ctx context.Context, tx *sqlx.Tx, scheduleID string) error {
	c.log.calls = append(c.log.calls, "placements")
	return nil
}

type checkerStub struct {
	conflict      *models.ScheduleConflict
	err           error
	lastExcludeID string
	calls         int
}

func (c *checkerStub) Check(ctx context.Context, examID string, grade int, date time.Time, start TimeOfDay, durationMinutes int, excludeID string) (*models.ScheduleConflict, error) {
	c.calls++
	c.lastExcludeID = excludeID
	return c.conflict, c.err
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
