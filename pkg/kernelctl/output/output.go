// Package output provides formatters for kernel listings and transaction
// results in table, tsv, csv, json, and yaml formats.
//
// The package uses a registry pattern so formats can be selected at
// runtime:
//
//	formatter, err := output.Get("table")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

// Row is one kernel listing entry with computed display fields.
type Row struct {
	// Name is the package name.
	Name string `json:"name" yaml:"name"`

	// Version is the version offered by the sync databases.
	Version string `json:"version" yaml:"version"`

	// Repo is the repository the package comes from.
	Repo string `json:"repo" yaml:"repo"`

	// Installed reports whether the package is installed.
	Installed bool `json:"installed" yaml:"installed"`

	// InstalledVersion is the locally installed version, if any.
	InstalledVersion string `json:"installed_version,omitempty" yaml:"installed_version,omitempty"`

	// UpdateAvailable reports whether the sync version differs.
	UpdateAvailable bool `json:"update_available" yaml:"update_available"`

	// Running marks the currently booted kernel.
	Running bool `json:"running" yaml:"running"`

	// ModulesSize is the on-disk module tree size in bytes.
	ModulesSize int64 `json:"modules_size" yaml:"modules_size"`

	// ModulesSizeHuman is the human-readable module tree size.
	ModulesSizeHuman string `json:"modules_size_human,omitempty" yaml:"modules_size_human,omitempty"`
}

// Result is the complete listing passed to formatters.
type Result struct {
	// Kernels contains the listing rows.
	Kernels []Row `json:"kernels" yaml:"kernels"`

	// Total is the number of rows before any limit was applied.
	Total int `json:"total" yaml:"total"`

	// Scheduler is the current sched_ext status string, when known.
	Scheduler string `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`

	// RunningKernel is the booted kernel release.
	RunningKernel string `json:"running_kernel,omitempty" yaml:"running_kernel,omitempty"`

	// Generated is when the listing was produced.
	Generated time.Time `json:"generated" yaml:"generated"`
}

// NewResult builds a Result from catalog entries.
func NewResult(kernels []types.Kernel) *Result {
	rows := make([]Row, 0, len(kernels))
	for _, k := range kernels {
		row := Row{
			Name:             k.Name,
			Version:          k.Version,
			Repo:             k.Category,
			Installed:        k.Installed,
			InstalledVersion: k.InstalledVersion,
			UpdateAvailable:  k.UpdateAvailable,
			Running:          k.Running,
			ModulesSize:      k.ModulesSize,
		}
		if k.ModulesSize > 0 {
			row.ModulesSizeHuman = humanize.IBytes(uint64(k.ModulesSize))
		}
		rows = append(rows, row)
	}
	return &Result{
		Kernels:   rows,
		Total:     len(rows),
		Generated: time.Now(),
	}
}

// Formatter writes a Result in one output format.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any existing one with the
// same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted registered format names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all format names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
