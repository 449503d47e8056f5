package status

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTracker_Transitions(t *testing.T) {
	tr := NewTracker("", nil)
	require.Equal(t, Active, tr.Current())

	tr.SetStatus(Tracking)
	require.Equal(t, Tracking, tr.Current())

	tr.SetStatus(Offline)
	require.Equal(t, Offline, tr.Current())
}

func TestTracker_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status")
	tr := NewTracker(path, nil)

	tr.SetStatus(Synced)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Synced\n", string(data))
}
