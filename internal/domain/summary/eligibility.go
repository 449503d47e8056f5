package summary

import "time"

// RetentionDays is how long raw activity rows are kept after their
// daily aggregate has been acknowledged.
const RetentionDays = 7

// Yesterday returns the calendar date before now in loc.
func Yesterday(now time.Time, loc *time.Location) string {
	return daysBefore(now, 1, loc)
}

// RetentionFloor returns the date before which raw activity rows may
// be deleted.
func RetentionFloor(now time.Time, loc *time.Location) string {
	return daysBefore(now, RetentionDays, loc)
}

// daysBefore steps back whole calendar days in loc so DST transitions
// do not shift the result.
func daysBefore(now time.Time, days int, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return Day(now.In(loc).AddDate(0, 0, -days), loc)
}

// CompletedDays keeps only aggregates whose date is strictly before
// yesterday. Today and yesterday may still receive activity.
func CompletedDays(days []Daily, now time.Time, loc *time.Location) []Daily {
	cutoff := Yesterday(now, loc)
	completed := make([]Daily, 0, len(days))
	for _, d := range days {
		if d.Date < cutoff {
			completed = append(completed, d)
		}
	}
	return completed
}
