// Package summary holds the aggregates derived from stored activity.
package summary

import "time"

// FileActivity aggregates activity for one file at one commit/branch
// in one editor. Once created it is never modified; it is deleted when
// the remote service acknowledges it.
type FileActivity struct {
	ID              int64
	ProjectPath     string
	CommitHash      string
	Branch          string
	FilePath        string
	Language        string
	EditorName      string
	TotalDuration   time.Duration
	ActivityCount   int
	FirstActivityAt time.Time
	LastActivityAt  time.Time
}

// Daily aggregates a project's activity for one local calendar date.
type Daily struct {
	// Date is formatted as DateLayout.
	Date              string
	ProjectPath       string
	TotalDuration     time.Duration
	LanguageBreakdown map[string]time.Duration
	Files             []string
	CommitCount       int
}

// DateLayout is the calendar date format used for Daily.Date and for
// the stored day of activity and commit rows.
const DateLayout = "2006-01-02"

// Day formats t as a calendar date in loc.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
