package search

import "github.com/pkg/errors"

// The three error kinds spec.md §7 requires the core to surface. Each is a
// sentinel created with github.com/pkg/errors (which records the stack at
// creation) and is returned by Search as-is, unwrapped, so callers can
// compare with errors.Is.
var (
	// ErrNoMove reports that the root could not be expanded: it was
	// terminal, or the search was aborted before the first expansion.
	ErrNoMove = errors.New("search: no move available")

	// ErrOutOfMemory reports that the arena was exhausted and either pruning
	// is disabled (Config.PruneEnabled false) or pruning could not recover
	// headroom. When returned, the move written to Search's out
	// parameter (if moveFound is true) is still the best move found so far.
	ErrOutOfMemory = errors.New("search: arena exhausted, pruning could not recover")

	// ErrReuseAborted reports that subtree-reuse extraction was interrupted
	// before completion and the caller's always_search policy declined to
	// proceed with the partial tree.
	ErrReuseAborted = errors.New("search: reuse extraction aborted")
)
