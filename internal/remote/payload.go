package remote

import (
	"encoding/json"
	"time"

	"github.com/rpggio/codepulse/internal/domain/commit"
	"github.com/rpggio/codepulse/internal/domain/summary"
)

// Method names served by the telemetry service.
const (
	MethodSyncFileActivities = "syncFileActivities"
	MethodSyncDailyStats     = "syncDailyStats"
	MethodSyncCommits        = "syncCommits"
)

// Input wraps a batch as the named "input" parameter.
type Input[T any] struct {
	Input []T `json:"input"`
}

// FileActivityItem is the wire form of a file-activity aggregate.
type FileActivityItem struct {
	ProjectPath     string  `json:"projectPath"`
	CommitHash      *string `json:"commitHash"`
	Branch          *string `json:"branch"`
	FilePath        string  `json:"filePath"`
	Language        string  `json:"language"`
	TotalDuration   int64   `json:"totalDuration"`
	ActivityCount   int     `json:"activityCount"`
	FirstActivityAt string  `json:"firstActivityAt"`
	LastActivityAt  string  `json:"lastActivityAt"`
	Editor          string  `json:"editor"`
}

// DailyStatItem is the wire form of a daily aggregate. The language
// breakdown travels as a serialized JSON object of milliseconds.
type DailyStatItem struct {
	Date              string `json:"date"`
	ProjectPath       string `json:"projectPath"`
	TotalDuration     int64  `json:"totalDuration"`
	LanguageBreakdown string `json:"languageBreakdown"`
	FilesEdited       int    `json:"filesEdited"`
	CommitCount       int    `json:"commitCount"`
}

// CommitItem is the wire form of an observed commit.
type CommitItem struct {
	ProjectPath  string  `json:"projectPath"`
	CommitHash   string  `json:"commitHash"`
	Message      string  `json:"message"`
	Author       string  `json:"author"`
	AuthorEmail  string  `json:"authorEmail"`
	Timestamp    string  `json:"timestamp"`
	FilesChanged int     `json:"filesChanged"`
	LinesAdded   int     `json:"linesAdded"`
	LinesDeleted int     `json:"linesDeleted"`
	Branch       *string `json:"branch"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FileActivityItems converts aggregates to their wire form.
func FileActivityItems(activities []summary.FileActivity) []FileActivityItem {
	items := make([]FileActivityItem, len(activities))
	for i, a := range activities {
		items[i] = FileActivityItem{
			ProjectPath:     a.ProjectPath,
			CommitHash:      optional(a.CommitHash),
			Branch:          optional(a.Branch),
			FilePath:        a.FilePath,
			Language:        a.Language,
			TotalDuration:   a.TotalDuration.Milliseconds(),
			ActivityCount:   a.ActivityCount,
			FirstActivityAt: formatTime(a.FirstActivityAt),
			LastActivityAt:  formatTime(a.LastActivityAt),
			Editor:          a.EditorName,
		}
	}
	return items
}

// DailyStatItems converts daily aggregates to their wire form.
func DailyStatItems(days []summary.Daily) ([]DailyStatItem, error) {
	items := make([]DailyStatItem, len(days))
	for i, d := range days {
		breakdown := make(map[string]int64, len(d.LanguageBreakdown))
		for language, duration := range d.LanguageBreakdown {
			breakdown[language] = duration.Milliseconds()
		}
		encoded, err := json.Marshal(breakdown)
		if err != nil {
			return nil, err
		}
		items[i] = DailyStatItem{
			Date:              d.Date,
			ProjectPath:       d.ProjectPath,
			TotalDuration:     d.TotalDuration.Milliseconds(),
			LanguageBreakdown: string(encoded),
			FilesEdited:       len(d.Files),
			CommitCount:       d.CommitCount,
		}
	}
	return items, nil
}

// CommitItems converts commits to their wire form.
func CommitItems(commits []commit.Commit) []CommitItem {
	items := make([]CommitItem, len(commits))
	for i, c := range commits {
		items[i] = CommitItem{
			ProjectPath:  c.ProjectPath,
			CommitHash:   c.CommitHash,
			Message:      c.Message,
			Author:       c.Author,
			AuthorEmail:  c.AuthorEmail,
			Timestamp:    formatTime(c.Timestamp),
			FilesChanged: c.FilesChanged,
			LinesAdded:   c.LinesAdded,
			LinesDeleted: c.LinesDeleted,
			Branch:       c.Branch,
		}
	}
	return items
}
