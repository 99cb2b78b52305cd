// Package filter selects, sorts, and limits kernel catalog entries for the
// list command.
package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

// SortField selects the sort key for kernel listings.
type SortField string

// Supported sort fields.
const (
	SortName    SortField = "name"
	SortVersion SortField = "version"
	SortSize    SortField = "size"
)

// ParseSortField validates a sort field name.
func ParseSortField(s string) (SortField, bool) {
	switch SortField(strings.ToLower(s)) {
	case SortName, SortVersion, SortSize:
		return SortField(strings.ToLower(s)), true
	default:
		return "", false
	}
}

// Filter defines criteria for selecting kernel entries.
type Filter struct {
	// Patterns contains glob patterns matched against the package name.
	// If non-empty, a kernel must match at least one.
	Patterns []string

	// InstalledOnly keeps only installed kernels.
	InstalledOnly bool

	// UpdatesOnly keeps only kernels with a pending update.
	UpdatesOnly bool

	// Repo keeps only kernels from the named repository.
	Repo string

	// SortBy is the sort key.
	SortBy SortField

	// SortDescending reverses the sort order.
	SortDescending bool

	// Limit caps the number of results. 0 means unlimited.
	Limit int
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a Filter sorted by name ascending with no limit.
func New(opts ...Option) *Filter {
	f := &Filter{SortBy: SortName}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithPatterns sets the name glob patterns.
func WithPatterns(patterns ...string) Option {
	return func(f *Filter) { f.Patterns = patterns }
}

// WithInstalledOnly keeps only installed kernels.
func WithInstalledOnly(on bool) Option {
	return func(f *Filter) { f.InstalledOnly = on }
}

// WithUpdatesOnly keeps only kernels with pending updates.
func WithUpdatesOnly(on bool) Option {
	return func(f *Filter) { f.UpdatesOnly = on }
}

// WithRepo keeps only kernels from the named repository.
func WithRepo(repo string) Option {
	return func(f *Filter) { f.Repo = repo }
}

// WithSortBy sets the sort key.
func WithSortBy(field SortField) Option {
	return func(f *Filter) { f.SortBy = field }
}

// WithSortDescending reverses the sort order.
func WithSortDescending(desc bool) Option {
	return func(f *Filter) { f.SortDescending = desc }
}

// WithLimit caps the number of results. Negative values mean unlimited.
func WithLimit(limit int) Option {
	return func(f *Filter) {
		if limit < 0 {
			limit = 0
		}
		f.Limit = limit
	}
}

// Match reports whether the kernel passes all criteria.
func (f *Filter) Match(k types.Kernel) bool {
	if f.InstalledOnly && !k.Installed {
		return false
	}
	if f.UpdatesOnly && !k.UpdateAvailable {
		return false
	}
	if f.Repo != "" && k.Category != f.Repo {
		return false
	}
	if len(f.Patterns) > 0 && !matchesAny(k.Name, f.Patterns) {
		return false
	}
	return true
}

// matchesAny reports whether name matches any glob pattern. Invalid
// patterns are skipped.
func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Sort returns a sorted copy of the kernels.
func (f *Filter) Sort(kernels []types.Kernel) []types.Kernel {
	sorted := slices.Clone(kernels)

	slices.SortFunc(sorted, func(a, b types.Kernel) int {
		var result int
		switch f.SortBy {
		case SortVersion:
			result = cmp.Compare(a.Version, b.Version)
		case SortSize:
			result = cmp.Compare(a.ModulesSize, b.ModulesSize)
		default:
			result = cmp.Compare(a.Name, b.Name)
		}
		if result == 0 {
			result = cmp.Compare(a.Name, b.Name)
		}
		if f.SortDescending {
			return -result
		}
		return result
	})

	return sorted
}

// Apply runs the full pipeline: match, sort, limit.
func (f *Filter) Apply(kernels []types.Kernel) []types.Kernel {
	var matched []types.Kernel
	for _, k := range kernels {
		if f.Match(k) {
			matched = append(matched, k)
		}
	}

	sorted := f.Sort(matched)
	if f.Limit > 0 && len(sorted) > f.Limit {
		return sorted[:f.Limit]
	}
	return sorted
}
