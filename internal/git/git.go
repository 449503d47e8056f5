// Package git provides typed access to the git CLI for the commit
// metadata codepulse attaches to activity. All commands target a
// specific working tree via "git -C <dir>".
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoCommits is returned by Head when the repository has no commits yet.
var ErrNoCommits = errors.New("repository has no commits")

// Repository represents a git working tree at a specific directory.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Head returns the full hash of the commit HEAD points at.
func (r *Repository) Head(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", ErrNoCommits
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Branch returns the checked-out branch name, or "" for a detached HEAD.
func (r *Repository) Branch(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(out)
	if branch == "HEAD" {
		return "", nil
	}
	return branch, nil
}

// CommitInfo is the metadata of a single commit.
type CommitInfo struct {
	Hash        string
	Message     string
	Author      string
	AuthorEmail string
	Time        time.Time
}

// Commit reads the metadata of the given commit.
func (r *Repository) Commit(ctx context.Context, hash string) (CommitInfo, error) {
	out, err := r.Run(ctx, "show", "-s", "--format=%H%x00%an%x00%ae%x00%ct%x00%B", hash)
	if err != nil {
		return CommitInfo{}, err
	}
	return parseCommit(out)
}

func parseCommit(out string) (CommitInfo, error) {
	fields := strings.SplitN(out, "\x00", 5)
	if len(fields) != 5 {
		return CommitInfo{}, fmt.Errorf("unexpected commit format: %q", out)
	}
	seconds, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("parse commit time %q: %w", fields[3], err)
	}
	return CommitInfo{
		Hash:        strings.TrimSpace(fields[0]),
		Author:      fields[1],
		AuthorEmail: fields[2],
		Time:        time.Unix(seconds, 0).UTC(),
		Message:     strings.TrimSpace(fields[4]),
	}, nil
}

// DiffStat summarizes the size of a commit.
type DiffStat struct {
	FilesChanged int
	LinesAdded   int
	LinesDeleted int
}

// NumStat computes exact diff statistics from git's machine-readable
// per-file output.
func (r *Repository) NumStat(ctx context.Context, hash string) (DiffStat, error) {
	out, err := r.Run(ctx, "show", "--numstat", "--format=", hash)
	if err != nil {
		return DiffStat{}, err
	}
	return ParseNumstat(out), nil
}

// ShortStat computes diff statistics from the changed-file listing and
// the human-readable summary line. See ParseShortStat for its limits.
func (r *Repository) ShortStat(ctx context.Context, hash string) (DiffStat, error) {
	names, err := r.Run(ctx, "show", "--name-only", "--format=", hash)
	if err != nil {
		return DiffStat{}, err
	}
	summary, err := r.Run(ctx, "show", "--shortstat", "--format=", hash)
	if err != nil {
		return DiffStat{}, err
	}
	return ParseShortStat(names, summary), nil
}
