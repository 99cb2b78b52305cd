// Package changeset holds the package changes the user has toggled in the
// UI, pending confirmation. The UI goroutine mutates it; the transaction
// worker snapshots it once per application under the lock.
package changeset

import (
	"slices"
	"sync"

	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

// Change pairs a package name with the direction the user selected for it.
type Change struct {
	Name string
	Kind types.ChangeKind
}

// ChangeSet is a mutex-guarded ordered set of pending changes. A package
// name appears at most once, so an entry is never simultaneously marked
// for install and removal.
type ChangeSet struct {
	mu      sync.Mutex
	changes []Change
}

// New creates an empty change set.
func New() *ChangeSet {
	return &ChangeSet{}
}

// Set records a change for the package, replacing any existing entry for
// the same name.
func (c *ChangeSet) Set(name string, kind types.ChangeKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(name); i >= 0 {
		c.changes[i].Kind = kind
		return
	}
	c.changes = append(c.changes, Change{Name: name, Kind: kind})
}

// Unset drops any pending change for the package.
func (c *ChangeSet) Unset(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(name); i >= 0 {
		c.changes = slices.Delete(c.changes, i, i+1)
	}
}

// Pending returns the recorded change kind for the package and whether one
// exists.
func (c *ChangeSet) Pending(name string) (types.ChangeKind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(name); i >= 0 {
		return c.changes[i].Kind, true
	}
	return 0, false
}

// Len returns the number of pending changes.
func (c *ChangeSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.changes)
}

// Snapshot returns a copy of the pending changes. The worker calls this
// once per transaction and iterates the copy without holding the lock.
func (c *ChangeSet) Snapshot() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.changes)
}

// Clear empties the set after a transaction has been applied.
func (c *ChangeSet) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = nil
}

// index returns the position of name, or -1. Caller holds the lock.
func (c *ChangeSet) index(name string) int {
	return slices.IndexFunc(c.changes, func(ch Change) bool { return ch.Name == name })
}
