package main

import "time"

// streakRecord is a user's consecutive-day logging streak. Streak only ever
// changes through advanceStreak, so it always agrees with LastLoggedDate.
type streakRecord struct {
	Streak         int      `json:"streak"`
	LastLoggedDate DateOnly `json:"lastLoggedDate"`
}

// advanceStreak returns the streak after a log on eventDay.
//
// Days are compared as calendar dates in whatever calendar the caller used;
// the engine does no timezone conversion. eventDay must be normalized the
// same way as the stored LastLoggedDate (see parseDay), otherwise a log near
// midnight can be counted on the wrong day.
//
//   - no prior record: start at 1
//   - same day as the last log: hold
//   - the day after the last log: increment
//   - any other day, earlier or after a gap: reset to 1
func advanceStreak(prior *streakRecord, eventDay DateOnly) streakRecord {
	day := calendarDay(eventDay.Time)
	next := streakRecord{Streak: 1, LastLoggedDate: DateOnly{day}}
	if prior == nil {
		return next
	}

	last := calendarDay(prior.LastLoggedDate.Time)
	switch {
	case day.Equal(last):
		if prior.Streak > 0 {
			next.Streak = prior.Streak
		}
	case day.Equal(last.AddDate(0, 0, 1)):
		next.Streak = prior.Streak + 1
	}
	return next
}

// calendarDay drops the time of day, keeping t's year, month and day fields.
// The result is in UTC so that AddDate never crosses a DST transition.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
