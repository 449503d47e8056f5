package activity

// Observer is the capability a host uses to report interactions.
type Observer interface {
	OnInteraction(event Event)
}

// RepositoryResolver answers path queries against known version
// control roots.
type RepositoryResolver interface {
	RootForPath(path string) (string, bool)
	StateForPath(path string) (commit, branch string, ok bool)
}

// WorkspaceResolver returns the host workspace folder containing a
// path.
type WorkspaceResolver interface {
	RootFor(path string) (string, bool)
}
