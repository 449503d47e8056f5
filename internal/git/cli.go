package git

import "context"

// CLI answers commit queries for any working tree by running git in it.
// With Structured set, diff statistics come from --numstat; otherwise
// the lossy --shortstat summary is parsed.
type CLI struct {
	Structured bool
}

// Head returns the HEAD commit hash of the tree at dir.
func (c CLI) Head(ctx context.Context, dir string) (string, error) {
	return NewRepository(dir).Head(ctx)
}

// Branch returns the checked-out branch of the tree at dir.
func (c CLI) Branch(ctx context.Context, dir string) (string, error) {
	return NewRepository(dir).Branch(ctx)
}

// Commit returns the metadata of hash in the tree at dir.
func (c CLI) Commit(ctx context.Context, dir, hash string) (CommitInfo, error) {
	return NewRepository(dir).Commit(ctx, hash)
}

// DiffStat returns the size of hash in the tree at dir.
func (c CLI) DiffStat(ctx context.Context, dir, hash string) (DiffStat, error) {
	repo := NewRepository(dir)
	if c.Structured {
		return repo.NumStat(ctx, hash)
	}
	return repo.ShortStat(ctx, hash)
}
