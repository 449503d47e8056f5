// Package commit models version-control commits observed while the
// agent was running.
package commit

import "time"

// Commit is recorded when a repository root's HEAD changes.
type Commit struct {
	ID           string
	ProjectPath  string
	CommitHash   string
	Message      string
	Author       string
	AuthorEmail  string
	Timestamp    time.Time
	FilesChanged int
	LinesAdded   int
	LinesDeleted int
	Branch       *string
}
