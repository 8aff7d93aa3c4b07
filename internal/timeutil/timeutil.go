// Package timeutil centralizes window-boundary math for lifecycle
// timers. All deadlines in the engine (snoozes, suppression expiries,
// regression watch) are computed at org-local midnight so that "90 days"
// means 90 calendar days in the org's timezone, not 90*24h from an
// arbitrary clock instant.
package timeutil

import "time"

// DayStart returns the start of the current day in the org's timezone,
// converted to UTC.
func DayStart(now time.Time, tz *time.Location) time.Time {
	local := now.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz).UTC()
}

// NextDayStart returns the start of the next day in the org's timezone,
// converted to UTC.
func NextDayStart(now time.Time, tz *time.Location) time.Time {
	local := now.In(tz)
	// AddDate handles DST correctly, Add(24h) does not.
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz).AddDate(0, 0, 1)
	return next.UTC()
}

// Deadline returns org-local midnight `days` calendar days after now,
// in UTC. Used for snooze and regression-watch deadlines: the window
// closes at the start of the day after the last counted day.
func Deadline(now time.Time, days int, tz *time.Location) time.Time {
	local := now.In(tz)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz).AddDate(0, 0, days+1)
	return end.UTC()
}

// IsFuture reports whether t is strictly after now. Boundary instants
// are not "in the future"; a snooze until now is already expired.
func IsFuture(t, now time.Time) bool {
	return t.After(now)
}

// ParseTimezone parses an IANA timezone name, returning UTC as fallback.
func ParseTimezone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
