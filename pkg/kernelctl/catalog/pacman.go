package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
	"github.com/scxtools/kernelctl/pkg/kernelctl/privexec"
	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

// DefaultPacmanBin is the pacman executable used for database queries and,
// elevated, for transaction commits.
const DefaultPacmanBin = "/usr/bin/pacman"

// nonKernelSuffixes excludes companion packages that share the linux name
// prefix but are not bootable kernels.
var nonKernelSuffixes = []string{
	"-headers", "-docs", "-firmware", "-api-headers", "-tools", "-zen-headers",
}

// Options configures the pacman-backed catalog.
type Options struct {
	// PacmanBin overrides the pacman executable path.
	PacmanBin string

	// ModulesDir overrides the kernel modules root (default /usr/lib/modules).
	ModulesDir string

	// Runner performs unprivileged database queries.
	Runner privexec.Runner

	// Elevated performs privileged transaction commits.
	Elevated *privexec.Elevated

	// DryRun stages and logs operations but commits nothing.
	DryRun bool
}

// Pacman is a Catalog over the pacman command line. The sync databases
// provide available kernels and the local database provides installed
// state; commits go through the elevation helper.
type Pacman struct {
	bin        string
	modulesDir string
	runner     privexec.Runner
	elevated   *privexec.Elevated
	dryRun     bool

	mu            sync.Mutex
	kernels       []types.Kernel
	index         map[string]int
	stagedInstall []string
	stagedRemove  []string
}

// NewPacman creates a pacman-backed catalog.
func NewPacman(opts Options) *Pacman {
	if opts.PacmanBin == "" {
		opts.PacmanBin = DefaultPacmanBin
	}
	if opts.ModulesDir == "" {
		opts.ModulesDir = DefaultModulesDir
	}
	if opts.Runner == nil {
		opts.Runner = privexec.Local{}
	}
	if opts.Elevated == nil {
		opts.Elevated = privexec.NewElevated("")
	}
	return &Pacman{
		bin:        opts.PacmanBin,
		modulesDir: opts.ModulesDir,
		runner:     opts.Runner,
		elevated:   opts.Elevated,
		dryRun:     opts.DryRun,
		index:      make(map[string]int),
	}
}

// Refresh re-reads the sync listing and local database and rebuilds the
// catalog entries.
func (p *Pacman) Refresh(ctx context.Context) error {
	syncOut, err := p.runner.Output(ctx, p.bin, "-Sl")
	if err != nil {
		return fmt.Errorf("listing sync databases: %w", err)
	}
	// Local listing covers kernels installed from a database that is no
	// longer configured; a failure here just means an empty local db.
	localOut, _ := p.runner.Output(ctx, p.bin, "-Q")

	local := parseLocalList(localOut)
	kernels := parseSyncList(syncOut, local)

	// Foreign kernels: installed, matching the kernel name shape, absent
	// from every sync database.
	seen := make(map[string]bool, len(kernels))
	for _, k := range kernels {
		seen[k.Name] = true
	}
	var foreign []string
	for name := range local {
		if !seen[name] && IsKernelPackage(name) {
			foreign = append(foreign, name)
		}
	}
	sort.Strings(foreign)
	for _, name := range foreign {
		kernels = append(kernels, types.Kernel{
			Name:             name,
			Version:          local[name],
			InstalledVersion: local[name],
			Category:         "local",
			Installed:        true,
		})
	}

	p.annotateModules(ctx, kernels)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.kernels = kernels
	p.index = make(map[string]int, len(kernels))
	for i, k := range kernels {
		p.index[k.Name] = i
	}
	return nil
}

// annotateModules attaches module-tree sizes and the running marker to
// installed kernels by resolving each modules directory to its owning
// package.
func (p *Pacman) annotateModules(ctx context.Context, kernels []types.Kernel) {
	log := logging.Get("catalog")

	sizes, err := ModulesSizes(p.modulesDir)
	if err != nil {
		log.Debug("modules sizing unavailable", "dir", p.modulesDir, "error", err)
		return
	}

	running := RunningRelease()

	byName := make(map[string]*types.Kernel, len(kernels))
	for i := range kernels {
		byName[kernels[i].Name] = &kernels[i]
	}

	for release, size := range sizes {
		owner, err := p.runner.Output(ctx, p.bin, "-Qoq", p.modulesDir+"/"+release)
		if err != nil || owner == "" {
			continue
		}
		if k, ok := byName[owner]; ok {
			k.ModulesSize += size
			if release == running {
				k.Running = true
			}
		}
	}
}

// Kernels returns a copy of the catalog entries.
func (p *Pacman) Kernels() []types.Kernel {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Kernel, len(p.kernels))
	copy(out, p.kernels)
	return out
}

// Get returns the entry for a raw package id.
func (p *Pacman) Get(name string) (types.Kernel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := p.index[name]; ok {
		return p.kernels[i], true
	}
	return types.Kernel{}, false
}

// IsInstalled reports whether the package is in the local database.
func (p *Pacman) IsInstalled(name string) bool {
	k, ok := p.Get(name)
	return ok && k.Installed
}

// IsUpdateAvailable reports whether the sync version differs from the
// installed version.
func (p *Pacman) IsUpdateAvailable(name string) bool {
	k, ok := p.Get(name)
	return ok && k.UpdateAvailable
}

// Install stages the package for installation or update.
func (p *Pacman) Install(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPackage, name)
	}
	p.stagedInstall = append(p.stagedInstall, name)
	return nil
}

// Remove stages the package for removal.
func (p *Pacman) Remove(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPackage, name)
	}
	p.stagedRemove = append(p.stagedRemove, name)
	return nil
}

// Commit applies everything staged as one elevated pacman invocation.
// Staged lists are cleared whether or not the commit succeeds, matching
// the one-shot transaction semantics of the worker.
func (p *Pacman) Commit(ctx context.Context) error {
	p.mu.Lock()
	installs := p.stagedInstall
	removes := p.stagedRemove
	p.stagedInstall = nil
	p.stagedRemove = nil
	p.mu.Unlock()

	if len(installs) == 0 && len(removes) == 0 {
		return nil
	}

	log := logging.Get("catalog")
	script := commitScript(p.bin, installs, removes)
	if p.dryRun {
		log.Info("dry run, skipping commit", "command", script)
		return nil
	}

	log.Info("committing transaction", "installs", len(installs), "removes", len(removes))
	if err := p.elevated.Shell(ctx, script); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// commitScript builds the single shell command for the aggregate commit.
func commitScript(bin string, installs, removes []string) string {
	var parts []string
	if len(installs) > 0 {
		parts = append(parts, bin+" -S --noconfirm --needed "+strings.Join(installs, " "))
	}
	if len(removes) > 0 {
		parts = append(parts, bin+" -R --noconfirm "+strings.Join(removes, " "))
	}
	return strings.Join(parts, " && ")
}

// IsKernelPackage reports whether a package name looks like a bootable
// kernel rather than a companion package.
func IsKernelPackage(name string) bool {
	if !strings.HasPrefix(name, "linux") {
		return false
	}
	for _, suffix := range nonKernelSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return true
}

// parseLocalList parses `pacman -Q` output into name -> version.
func parseLocalList(out string) map[string]string {
	local := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			local[fields[0]] = fields[1]
		}
	}
	return local
}

// parseSyncList parses `pacman -Sl` output ("repo name version [installed]"
// or "[installed: ver]") into kernel entries, using the local database for
// installed versions.
func parseSyncList(out string, local map[string]string) []types.Kernel {
	var kernels []types.Kernel
	seen := make(map[string]int)

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		repo, name, version := fields[0], fields[1], fields[2]
		if !IsKernelPackage(name) {
			continue
		}

		installedVer, installed := local[name]
		k := types.Kernel{
			Name:             name,
			Version:          version,
			Category:         repo,
			Installed:        installed,
			InstalledVersion: installedVer,
			UpdateAvailable:  installed && installedVer != version,
		}
		if installed {
			k.InstalledDB = repo
		}

		// A package can be listed by several databases; the first one
		// wins, mirroring pacman's database order.
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = len(kernels)
		kernels = append(kernels, k)
	}
	return kernels
}

// RunningRelease returns the booted kernel release from uname, or empty
// when the syscall fails.
func RunningRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}
