package git

import (
	"regexp"
	"strconv"
	"strings"
)

var combinedPhrase = regexp.MustCompile(`(\d+) insertions?\(\+\), (\d+) deletions?\(-\)`)

// ParseShortStat derives diff statistics from a commit's file listing
// and its --shortstat summary. Files changed is the number of non-empty
// listing lines. Line counts come only from the combined
// "N insertion(s)(+), M deletion(s)(-)" phrase: a summary carrying only
// insertions or only deletions yields zero for both. Callers that need
// exact counts use ParseNumstat.
func ParseShortStat(nameListing, summary string) DiffStat {
	var stat DiffStat
	for _, line := range strings.Split(nameListing, "\n") {
		if strings.TrimSpace(line) != "" {
			stat.FilesChanged++
		}
	}

	match := combinedPhrase.FindStringSubmatch(summary)
	if match == nil {
		return stat
	}
	stat.LinesAdded, _ = strconv.Atoi(match[1])
	stat.LinesDeleted, _ = strconv.Atoi(match[2])
	return stat
}

// ParseNumstat sums git --numstat output ("added<TAB>deleted<TAB>path"
// per file). Binary files report "-" and count as changed files with no
// line changes.
func ParseNumstat(out string) DiffStat {
	var stat DiffStat
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		stat.FilesChanged++
		if added, err := strconv.Atoi(fields[0]); err == nil {
			stat.LinesAdded += added
		}
		if deleted, err := strconv.Atoi(fields[1]); err == nil {
			stat.LinesDeleted += deleted
		}
	}
	return stat
}
