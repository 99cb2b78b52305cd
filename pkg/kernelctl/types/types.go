// Package types provides core data types for kernelctl.
// It includes the kernel catalog entry, transaction result types, and
// utility functions for formatting package and module-tree sizes.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Kernel describes one kernel package known to the catalog.
// Entries are owned by the catalog and read-only to the UI.
type Kernel struct {
	// Name is the raw package id (e.g. "linux-cachyos").
	Name string `json:"name"`

	// Version is the sync database version of the package.
	Version string `json:"version"`

	// Category is the repository the package belongs to (e.g. "core").
	Category string `json:"category"`

	// Installed reports whether the package is present in the local database.
	Installed bool `json:"installed"`

	// InstalledVersion is the locally installed version, empty if not installed.
	InstalledVersion string `json:"installed_version,omitempty"`

	// InstalledDB is the sync database the installed package originated
	// from. Empty when the origin is unknown (e.g. a foreign package).
	InstalledDB string `json:"installed_db,omitempty"`

	// UpdateAvailable reports whether the sync version differs from the
	// installed version.
	UpdateAvailable bool `json:"update_available"`

	// Running reports whether this package provides the currently booted
	// kernel release.
	Running bool `json:"running,omitempty"`

	// ModulesSize is the on-disk size of /usr/lib/modules/<release> for
	// installed kernels, 0 otherwise.
	ModulesSize int64 `json:"modules_size,omitempty"`
}

// HumanModulesSize returns the module tree size as a human-readable string,
// or "-" when the kernel is not installed.
func (k *Kernel) HumanModulesSize() string {
	if k.ModulesSize == 0 {
		return "-"
	}
	return FormatSize(k.ModulesSize)
}

// ChangeKind distinguishes the two directions a change-set entry can take.
type ChangeKind int

const (
	// ChangeInstall marks a package to be installed or updated.
	ChangeInstall ChangeKind = iota
	// ChangeRemove marks an installed package to be removed.
	ChangeRemove
)

// String returns "install" or "remove".
func (c ChangeKind) String() string {
	if c == ChangeRemove {
		return "remove"
	}
	return "install"
}

// ChangeError pairs a package name with the error its install or remove
// staging produced. Failed entries are skipped; the batch continues.
type ChangeError struct {
	Package string
	Kind    ChangeKind
	Err     error
}

// ApplyResult summarizes one change-set application: which packages were
// staged for install and removal, which entries failed, and whether the
// aggregate commit succeeded. Persistence uses the history record form,
// not this struct.
type ApplyResult struct {
	// ID is the history record id assigned to this transaction.
	ID string

	// Started is when the worker picked up the request.
	Started time.Time

	// Elapsed is the total transaction duration.
	Elapsed time.Duration

	// Installed lists packages staged for install.
	Installed []string

	// Removed lists packages staged for removal.
	Removed []string

	// Skipped lists change-set entries whose state was already satisfied.
	Skipped []string

	// Errors lists per-entry staging failures.
	Errors []ChangeError

	// CommitErr is the error from the aggregate commit, nil on success.
	CommitErr error
}

// Ok reports whether the transaction committed without any failures.
func (r *ApplyResult) Ok() bool {
	return r.CommitErr == nil && len(r.Errors) == 0
}

// Summary returns a one-line description suitable for logs and history
// listings.
func (r *ApplyResult) Summary() string {
	var parts []string
	if n := len(r.Installed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d installed", n))
	}
	if n := len(r.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	if n := len(r.Skipped); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unchanged", n))
	}
	if n := len(r.Errors); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units, matching common filesystem tools.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
