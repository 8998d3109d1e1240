package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type sittingWindowReader interface {
	ListByScopeAndDate(ctx context.Context, examID string, grade int, date time.Time, excludeID string) ([]models.ExamSchedule, error)
}

// ConflictChecker decides whether a candidate time window collides with a
// committed sitting of the same (exam, grade) scope on the same day.
type ConflictChecker struct {
	sittings sittingWindowReader
}

// NewConflictChecker wires the checker to the sitting store.
func NewConflictChecker(sittings sittingWindowReader) *ConflictChecker {
	return &ConflictChecker{sittings: sittings}
}

// Check returns the first committed sitting whose half-open window overlaps
// [start, start+duration), or nil when the slot is free. excludeID skips one
// sitting so updates do not conflict with themselves.
func (c *ConflictChecker) Check(ctx context.Context, examID string, grade int, date time.Time, start TimeOfDay, durationMinutes int, excludeID string) (*models.ScheduleConflict, error) {
	existing, err := c.sittings.ListByScopeAndDate(ctx, examID, grade, date, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load committed sittings")
	}

	candidate := Window{Start: start, End: start.Add(durationMinutes)}
	for _, sitting := range existing {
		committed := sittingWindow(&sitting)
		if candidate.Overlaps(committed) {
			return &models.ScheduleConflict{
				ScheduleID:  sitting.ID,
				ExamID:      sitting.ExamID,
				Grade:       sitting.Grade,
				SubjectID:   sitting.SubjectID,
				SubjectName: sitting.SubjectName,
				ExamDate:    sitting.ExamDate,
				Window:      committed.String(),
			}, nil
		}
	}
	return nil, nil
}

func sittingWindow(s *models.ExamSchedule) Window {
	return Window{
		Start: TimeOfDay{Hour: s.StartHour, Minute: s.StartMinute},
		End:   TimeOfDay{Hour: s.EndHour, Minute: s.EndMinute},
	}
}

func conflictMessage(conflict *models.ScheduleConflict) string {
	return fmt.Sprintf("overlaps %s (%s)", conflict.SubjectName, conflict.Window)
}
