package activity

import "time"

// ListOptions provides filtering options for listing stored activity.
type ListOptions struct {
	ProjectPath string
	FilePath    string
	Since       time.Time
	Limit       int
	Offset      int
}
