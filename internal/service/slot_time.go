package service

import "fmt"

// TimeOfDay is a wall-clock time within one exam day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Add returns the time shifted forward by the given minutes, carrying
// overflow minutes into hours.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	total := t.Hour*60 + t.Minute + minutes
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// TotalMinutes returns minutes since midnight.
func (t TimeOfDay) TotalMinutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is strictly earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.TotalMinutes() < other.TotalMinutes()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Window is a half-open [Start, End) interval within one day.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps implements the half-open overlap rule: touching endpoints do not
// conflict.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// nextStart returns the candidate start time for the next sitting of a day:
// half past the configured start hour when the day is empty, otherwise the
// last placed end time plus the break.
func nextStart(placed []Window, startHour, breakMinutes int) TimeOfDay {
	if len(placed) == 0 {
		return TimeOfDay{Hour: startHour, Minute: 30}
	}
	last := placed[len(placed)-1]
	return last.End.Add(breakMinutes)
}
