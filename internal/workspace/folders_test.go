package workspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFolders_RootFor(t *testing.T) {
	folders := NewFolders([]string{"/w/app", "/w/docs/", "/w", "/w/app", ""})

	require.Equal(t, []string{"/w", "/w/app", "/w/docs"}, folders.Paths())

	cases := []struct {
		path string
		want string
		ok   bool
	}{
		{path: "/w/app/src/index.ts", want: "/w/app", ok: true},
		{path: "/w/docs/guide.md", want: "/w/docs", ok: true},
		{path: "/w/other/x.go", want: "/w", ok: true},
		{path: "/w/app", want: "/w/app", ok: true},
		{path: "/wx/file", ok: false},
		{path: "/elsewhere/notes.txt", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, ok := folders.RootFor(tc.path)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLanguageForPath(t *testing.T) {
	require.Equal(t, "go", LanguageForPath("/w/app/main.go"))
	require.Equal(t, "typescript", LanguageForPath("/w/app/index.TS"))
	require.Equal(t, "typescriptreact", LanguageForPath("App.tsx"))
	require.Equal(t, "dockerfile", LanguageForPath("/w/app/Dockerfile"))
	require.Equal(t, "plaintext", LanguageForPath("/w/app/LICENSE"))
}
