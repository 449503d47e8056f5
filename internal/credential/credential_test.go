package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	t.Setenv(EnvToken, "")
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileStore(path)

	token, err := store.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.SetToken(ctx, "  secret  "))
	token, err = store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "secret", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.SetToken(ctx, ""))
	token, err = store.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
	require.NoError(t, store.SetToken(ctx, ""))
}

func TestFileStore_EnvOverride(t *testing.T) {
	t.Setenv(EnvToken, "from-env")
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "token"))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "from-env", token)

	require.ErrorIs(t, store.SetToken(ctx, "other"), ErrEnvOverride)
}
