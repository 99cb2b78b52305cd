// Package catalog enumerates kernel packages from the distribution package
// database and applies staged install/remove transactions against it.
package catalog

import (
	"context"
	"errors"

	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

// ErrUnknownPackage is returned when staging an operation for a package the
// catalog does not know about.
var ErrUnknownPackage = errors.New("unknown kernel package")

// Catalog is the package backend consumed by the transaction worker and the
// UI. Install and Remove stage operations; Commit applies everything staged
// as one aggregate transaction.
type Catalog interface {
	// Refresh re-reads the sync and local databases.
	Refresh(ctx context.Context) error

	// Kernels returns the catalog entries from the last refresh.
	Kernels() []types.Kernel

	// Get returns the entry for a raw package id.
	Get(name string) (types.Kernel, bool)

	// IsInstalled reports whether the package is in the local database.
	IsInstalled(name string) bool

	// IsUpdateAvailable reports whether the sync version differs from the
	// installed version.
	IsUpdateAvailable(name string) bool

	// Install stages the package for installation or update.
	Install(name string) error

	// Remove stages the package for removal.
	Remove(name string) error

	// Commit applies all staged operations in one transaction. It is a
	// no-op when nothing is staged.
	Commit(ctx context.Context) error
}
