package activity

import "time"

// Kind identifies the host notification that produced an Event.
type Kind string

const (
	KindChange    Kind = "change"
	KindSelection Kind = "selection"
	KindSave      Kind = "save"
)

// Event is a host notification that the user interacted with a file.
// It is never persisted.
type Event struct {
	FilePath string
	Language string
	Kind     Kind
	// Time is the wall-clock time of the interaction. Zero means now.
	Time time.Time
}

// Log is a durable, time-attributed activity record.
type Log struct {
	ID          int64         `json:"id"`
	ProjectPath string        `json:"project_path"`
	FilePath    string        `json:"file_path"`
	Language    string        `json:"language"`
	Timestamp   time.Time     `json:"timestamp"`
	Duration    time.Duration `json:"duration"`
	EditorName  string        `json:"editor_name"`
	CommitHash  *string       `json:"commit_hash,omitempty"`
	Branch      *string       `json:"branch,omitempty"`
}
