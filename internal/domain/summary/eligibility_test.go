package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompletedDays(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	days := []Daily{
		{Date: "2025-06-10", ProjectPath: "/w/app"},
		{Date: "2025-06-09", ProjectPath: "/w/app"},
		{Date: "2025-06-08", ProjectPath: "/w/app"},
		{Date: "2025-05-31", ProjectPath: "/w/docs"},
	}

	completed := CompletedDays(days, now, time.UTC)

	require.Len(t, completed, 2)
	require.Equal(t, "2025-06-08", completed[0].Date)
	require.Equal(t, "2025-05-31", completed[1].Date)
}

func TestRetentionFloor(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 5, 0, 0, time.UTC)
	require.Equal(t, "2025-06-03", RetentionFloor(now, time.UTC))
	require.Equal(t, "2025-06-09", Yesterday(now, time.UTC))
}

func TestDay_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	ts := time.Date(2025, 6, 10, 2, 0, 0, 0, time.UTC)

	require.Equal(t, "2025-06-10", Day(ts, time.UTC))
	require.Equal(t, "2025-06-09", Day(ts, loc))
}
