package correlator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, base string, dirs ...string) {
	t.Helper()
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(base, dir), 0755))
	}
}

func TestDiscover(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base,
		"w/app/.git",
		"w/app/vendor/lib/.git", // nested under a root: not reported
		"w/docs/notes",
		"w/services/api/.git",
		"w/services/web/.git",
		"w/node_modules/pkg/.git",
		"w/.cache/tool/.git",
	)
	// A .git file marks a worktree root too.
	mkdirs(t, base, "w/linked")
	require.NoError(t, os.WriteFile(filepath.Join(base, "w/linked/.git"), []byte("gitdir: /elsewhere\n"), 0644))

	roots := Discover([]string{filepath.Join(base, "w")})

	require.Equal(t, []string{
		filepath.Join(base, "w/app"),
		filepath.Join(base, "w/linked"),
		filepath.Join(base, "w/services/api"),
		filepath.Join(base, "w/services/web"),
	}, roots)
}

func TestDiscover_FolderIsRoot(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, ".git", "sub/.git")

	require.Equal(t, []string{base}, Discover([]string{base}))
}

func TestDiscover_SkipsSymlinksAndMissingFolders(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "real/repo/.git", "w")
	require.NoError(t, os.Symlink(filepath.Join(base, "real"), filepath.Join(base, "w/link")))

	roots := Discover([]string{filepath.Join(base, "w"), filepath.Join(base, "missing")})
	require.Empty(t, roots)
}

func TestDiscover_OverlappingFolders(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "w/app/.git")

	roots := Discover([]string{filepath.Join(base, "w"), filepath.Join(base, "w/app")})
	require.Equal(t, []string{filepath.Join(base, "w/app")}, roots)
}

func TestDiscover_DeepTree(t *testing.T) {
	base := t.TempDir()
	deep := base
	for i := 0; i < 200; i++ {
		deep = filepath.Join(deep, "d")
	}
	require.NoError(t, os.MkdirAll(filepath.Join(deep, ".git"), 0755))

	require.Equal(t, []string{deep}, Discover([]string{base}))
}
