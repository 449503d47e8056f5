package correlator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/codepulse/internal/domain/commit"
	"github.com/rpggio/codepulse/internal/git"
	"github.com/rpggio/codepulse/internal/repository"
	"github.com/rpggio/codepulse/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeGit struct {
	mu       sync.Mutex
	heads    map[string]string
	branches map[string]string
	failHead map[string]bool
	failStat bool
	commits  int
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		heads:    make(map[string]string),
		branches: make(map[string]string),
		failHead: make(map[string]bool),
	}
}

func (g *fakeGit) set(root, head, branch string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.heads[root] = head
	g.branches[root] = branch
}

func (g *fakeGit) Head(ctx context.Context, dir string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failHead[dir] {
		return "", errors.New("not a git repository")
	}
	head, ok := g.heads[dir]
	if !ok {
		return "", git.ErrNoCommits
	}
	return head, nil
}

func (g *fakeGit) Branch(ctx context.Context, dir string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.branches[dir], nil
}

func (g *fakeGit) Commit(ctx context.Context, dir, hash string) (git.CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commits++
	return git.CommitInfo{
		Hash:        hash,
		Message:     "message " + hash,
		Author:      "Dev",
		AuthorEmail: "dev@example.com",
		Time:        time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (g *fakeGit) DiffStat(ctx context.Context, dir, hash string) (git.DiffStat, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failStat {
		return git.DiffStat{}, errors.New("git show failed")
	}
	return git.DiffStat{FilesChanged: 2, LinesAdded: 10, LinesDeleted: 3}, nil
}

func commitFor(hash string) interface{} {
	return mock.MatchedBy(func(c *commit.Commit) bool { return c.CommitHash == hash })
}

func TestCorrelator_LongestPrefix(t *testing.T) {
	base := t.TempDir()
	outer := filepath.Join(base, "a")
	inner := filepath.Join(base, "a", "b")
	mkdirs(t, base, "a/.git")

	c := New(newFakeGit(), &mocks.CommitRepository{}, nil)
	c.mu.Lock()
	c.roots[outer] = &RootState{Path: outer, Commit: "outer"}
	c.roots[inner] = &RootState{Path: inner, Commit: "inner"}
	c.reorder()
	c.mu.Unlock()

	for i := 0; i < 3; i++ {
		root, ok := c.RootForPath(filepath.Join(inner, "file.ts"))
		require.True(t, ok)
		require.Equal(t, inner, root)
	}

	root, ok := c.RootForPath(filepath.Join(outer, "c", "file.ts"))
	require.True(t, ok)
	require.Equal(t, outer, root)

	root, ok = c.RootForPath(inner)
	require.True(t, ok)
	require.Equal(t, inner, root)

	// Sibling with a shared name prefix is not inside the root.
	_, ok = c.RootForPath(filepath.Join(base, "ab", "file.ts"))
	require.False(t, ok)

	commitHash, _, ok := c.StateForPath(filepath.Join(inner, "file.ts"))
	require.True(t, ok)
	require.Equal(t, "inner", commitHash)
}

func TestCorrelator_InitializeRecordsCurrentCommits(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "w/app/.git", "w/docs")
	app := filepath.Join(base, "w/app")

	g := newFakeGit()
	g.set(app, "abc123", "main")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, commitFor("abc123")).Return(nil).Once()

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{filepath.Join(base, "w")}))
	t.Cleanup(func() { _ = c.Close() })

	commits.AssertExpectations(t)
	stored := commits.Calls[0].Arguments.Get(1).(*commit.Commit)
	require.NotEmpty(t, stored.ID)
	require.Equal(t, app, stored.ProjectPath)
	require.Equal(t, "message abc123", stored.Message)
	require.Equal(t, "Dev", stored.Author)
	require.Equal(t, "dev@example.com", stored.AuthorEmail)
	require.Equal(t, 2, stored.FilesChanged)
	require.Equal(t, 10, stored.LinesAdded)
	require.Equal(t, 3, stored.LinesDeleted)
	require.NotNil(t, stored.Branch)
	require.Equal(t, "main", *stored.Branch)

	commitHash, branch, ok := c.StateForPath(filepath.Join(app, "src/index.ts"))
	require.True(t, ok)
	require.Equal(t, "abc123", commitHash)
	require.Equal(t, "main", branch)

	_, _, ok = c.StateForPath(filepath.Join(base, "w/docs/guide.md"))
	require.False(t, ok)

	require.Equal(t, []RootState{{Path: app, Commit: "abc123", Branch: "main"}}, c.Roots())
}

func TestCorrelator_UnchangedHeadIsNoOp(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git")
	app := filepath.Join(base, "app")

	g := newFakeGit()
	g.set(app, "abc123", "main")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, commitFor("abc123")).Return(nil).Once()

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	c.TrackCommitChange(context.Background(), app)
	c.TrackCommitChange(context.Background(), app)

	commits.AssertNumberOfCalls(t, "Create", 1)
	g.mu.Lock()
	require.Equal(t, 1, g.commits)
	g.mu.Unlock()
}

func TestCorrelator_NewHeadRecordsCommit(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git")
	app := filepath.Join(base, "app")

	g := newFakeGit()
	g.set(app, "abc123", "main")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	g.set(app, "def456", "feature")
	c.TrackCommitChange(context.Background(), app)

	commits.AssertNumberOfCalls(t, "Create", 2)
	commitHash, branch, _ := c.StateForPath(filepath.Join(app, "x.go"))
	require.Equal(t, "def456", commitHash)
	require.Equal(t, "feature", branch)
}

func TestCorrelator_GitFailureLeavesCacheAndRetries(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git")
	app := filepath.Join(base, "app")

	g := newFakeGit()
	g.set(app, "abc123", "main")
	g.failStat = true
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, commitFor("abc123")).Return(nil).Once()

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	commitHash, _, ok := c.StateForPath(filepath.Join(app, "x.go"))
	require.True(t, ok)
	require.Empty(t, commitHash)
	commits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	g.mu.Lock()
	g.failStat = false
	g.mu.Unlock()
	c.TrackCommitChange(context.Background(), app)

	commits.AssertExpectations(t)
	commitHash, _, _ = c.StateForPath(filepath.Join(app, "x.go"))
	require.Equal(t, "abc123", commitHash)
}

func TestCorrelator_HeadFailureAndEmptyRepository(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "broken/.git", "empty/.git")
	broken := filepath.Join(base, "broken")

	g := newFakeGit()
	g.failHead[broken] = true
	commits := &mocks.CommitRepository{}

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	require.Len(t, c.Roots(), 2)
	commits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCorrelator_DuplicateCommitUpdatesCache(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git")
	app := filepath.Join(base, "app")

	g := newFakeGit()
	g.set(app, "abc123", "")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate).Once()

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	commitHash, branch, _ := c.StateForPath(filepath.Join(app, "x.go"))
	require.Equal(t, "abc123", commitHash)
	require.Equal(t, "", branch)

	stored := commits.Calls[0].Arguments.Get(1).(*commit.Commit)
	require.Nil(t, stored.Branch)
}

func TestCorrelator_StoreFailureRetries(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git")
	app := filepath.Join(base, "app")

	g := newFakeGit()
	g.set(app, "abc123", "main")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	commits.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	commitHash, _, _ := c.StateForPath(filepath.Join(app, "x.go"))
	require.Empty(t, commitHash)

	c.TrackCommitChange(context.Background(), app)
	commitHash, _, _ = c.StateForPath(filepath.Join(app, "x.go"))
	require.Equal(t, "abc123", commitHash)
	commits.AssertExpectations(t)
}

func TestCorrelator_UnknownRootIgnored(t *testing.T) {
	c := New(newFakeGit(), &mocks.CommitRepository{}, nil)
	c.TrackCommitChange(context.Background(), "/nowhere")
	require.Empty(t, c.Roots())
	require.NoError(t, c.Close())
}

func TestCorrelator_WatchTriggersDetection(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git/refs/heads")
	app := filepath.Join(base, "app")

	g := newFakeGit()
	g.set(app, "abc123", "main")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	g.set(app, "def456", "main")
	require.NoError(t, os.WriteFile(filepath.Join(app, ".git/refs/heads/main"), []byte("def456\n"), 0644))

	require.Eventually(t, func() bool {
		commitHash, _, _ := c.StateForPath(filepath.Join(app, "x.go"))
		return commitHash == "def456"
	}, 5*time.Second, 10*time.Millisecond)

	g.set(app, "0a0b0c", "release")
	require.NoError(t, os.WriteFile(filepath.Join(app, ".git/HEAD"), []byte("ref: refs/heads/release\n"), 0644))

	require.Eventually(t, func() bool {
		_, branch, _ := c.StateForPath(filepath.Join(app, "x.go"))
		return branch == "release"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCorrelator_WatchNestedBranchRefs(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git/refs/heads/feature")
	app := filepath.Join(base, "app")
	refs := filepath.Join(app, ".git", "refs", "heads")
	require.NoError(t, os.WriteFile(filepath.Join(refs, "feature", "login"), []byte("abc123\n"), 0644))

	g := newFakeGit()
	g.set(app, "abc123", "feature/login")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	headOf := func() string {
		commitHash, _, _ := c.StateForPath(filepath.Join(app, "x.go"))
		return commitHash
	}

	// Commit on an existing slash-named branch: only the nested ref moves.
	g.set(app, "def456", "feature/login")
	require.NoError(t, os.WriteFile(filepath.Join(refs, "feature", "login"), []byte("def456\n"), 0644))
	require.Eventually(t, func() bool { return headOf() == "def456" }, 5*time.Second, 10*time.Millisecond)

	// A branch directory created after startup is picked up too.
	g.set(app, "0a0b0c", "fix/crash")
	require.NoError(t, os.MkdirAll(filepath.Join(refs, "fix"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(refs, "fix", "crash"), []byte("0a0b0c\n"), 0644))
	require.Eventually(t, func() bool { return headOf() == "0a0b0c" }, 5*time.Second, 10*time.Millisecond)

	g.set(app, "1d2e3f", "fix/crash")
	require.NoError(t, os.WriteFile(filepath.Join(refs, "fix", "crash"), []byte("1d2e3f\n"), 0644))
	require.Eventually(t, func() bool { return headOf() == "1d2e3f" }, 5*time.Second, 10*time.Millisecond)
}

func TestCorrelator_WatchPackedRefs(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git/refs/heads")
	app := filepath.Join(base, "app")

	g := newFakeGit()
	g.set(app, "abc123", "main")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	g.set(app, "def456", "main")
	require.NoError(t, os.WriteFile(filepath.Join(app, ".git", "packed-refs"), []byte("def456 refs/heads/main\n"), 0644))

	require.Eventually(t, func() bool {
		commitHash, _, _ := c.StateForPath(filepath.Join(app, "x.go"))
		return commitHash == "def456"
	}, 5*time.Second, 10*time.Millisecond)
}

// worktree lays out a primary repository and a linked worktree of it the
// way git worktree add does.
func worktree(t *testing.T, base string) (string, string, string) {
	t.Helper()
	mkdirs(t, base, "main/.git/refs/heads", "main/.git/worktrees/wt", "wt")
	primary := filepath.Join(base, "main")
	wt := filepath.Join(base, "wt")
	wtGitDir := filepath.Join(primary, ".git", "worktrees", "wt")
	require.NoError(t, os.WriteFile(filepath.Join(wt, ".git"), []byte("gitdir: "+wtGitDir+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(wtGitDir, "commondir"), []byte("../..\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(wtGitDir, "HEAD"), []byte("ref: refs/heads/topic\n"), 0644))
	return primary, wt, wtGitDir
}

func TestGitDirs(t *testing.T) {
	base := t.TempDir()
	primary, wt, wtGitDir := worktree(t, base)

	gitDir, commonDir, ok := gitDirs(primary)
	require.True(t, ok)
	require.Equal(t, filepath.Join(primary, ".git"), gitDir)
	require.Equal(t, gitDir, commonDir)

	gitDir, commonDir, ok = gitDirs(wt)
	require.True(t, ok)
	require.Equal(t, wtGitDir, gitDir)
	require.Equal(t, filepath.Join(primary, ".git"), commonDir)

	// Submodule style: relative gitdir, no commondir.
	mkdirs(t, base, "super/.git/modules/sub", "super/sub")
	sub := filepath.Join(base, "super", "sub")
	require.NoError(t, os.WriteFile(filepath.Join(sub, ".git"), []byte("gitdir: ../.git/modules/sub\n"), 0644))
	gitDir, commonDir, ok = gitDirs(sub)
	require.True(t, ok)
	require.Equal(t, filepath.Join(base, "super", ".git", "modules", "sub"), gitDir)
	require.Equal(t, gitDir, commonDir)

	_, _, ok = gitDirs(filepath.Join(base, "missing"))
	require.False(t, ok)
}

func TestCorrelator_WatchLinkedWorktree(t *testing.T) {
	base := t.TempDir()
	_, wt, wtGitDir := worktree(t, base)

	g := newFakeGit()
	g.set(wt, "abc123", "topic")
	commits := &mocks.CommitRepository{}
	commits.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := New(g, commits, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	t.Cleanup(func() { _ = c.Close() })

	headOf := func() string {
		commitHash, _, _ := c.StateForPath(filepath.Join(wt, "x.go"))
		return commitHash
	}
	require.Equal(t, "abc123", headOf())

	// Checkout inside the worktree rewrites its own HEAD.
	g.set(wt, "def456", "other")
	require.NoError(t, os.WriteFile(filepath.Join(wtGitDir, "HEAD"), []byte("ref: refs/heads/other\n"), 0644))
	require.Eventually(t, func() bool { return headOf() == "def456" }, 5*time.Second, 10*time.Millisecond)

	// A commit in the worktree moves a branch ref in the shared refs tree.
	g.set(wt, "0a0b0c", "other")
	refs := filepath.Join(base, "main", ".git", "refs", "heads")
	require.NoError(t, os.WriteFile(filepath.Join(refs, "other"), []byte("0a0b0c\n"), 0644))
	require.Eventually(t, func() bool { return headOf() == "0a0b0c" }, 5*time.Second, 10*time.Millisecond)
}

func TestCorrelator_CloseIsIdempotent(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "app/.git")

	c := New(newFakeGit(), &mocks.CommitRepository{}, nil)
	require.NoError(t, c.Initialize(context.Background(), []string{base}))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
