package schedext

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
	"github.com/scxtools/kernelctl/pkg/kernelctl/privexec"
)

// Defaults for the scx service wiring on Arch-family systems.
const (
	DefaultService  = "scx"
	DefaultConfPath = "/etc/default/scx"
)

// Schedulers lists the selectable sched_ext schedulers.
var Schedulers = []string{
	"scx_bpfland",
	"scx_central",
	"scx_lavd",
	"scx_layered",
	"scx_nest",
	"scx_qmap",
	"scx_rlfifo",
	"scx_rustland",
	"scx_rusty",
	"scx_simple",
	"scx_userland",
}

// IsKnownScheduler reports whether name is a selectable scheduler.
func IsKnownScheduler(name string) bool {
	return slices.Contains(Schedulers, name)
}

// Controller edits the scx service configuration and drives the service
// through systemctl. Configuration edits and the service verb run as one
// elevated shell command so the user authenticates once.
type Controller struct {
	// Service is the systemd unit name.
	Service string

	// ConfPath is the service environment file holding SCX_SCHEDULER and
	// SCX_FLAGS.
	ConfPath string

	runner   privexec.Runner
	elevated *privexec.Elevated
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithRunner overrides the unprivileged runner used for systemctl queries.
func WithRunner(r privexec.Runner) ControllerOption {
	return func(c *Controller) { c.runner = r }
}

// WithElevated overrides the elevation wrapper used for mutations.
func WithElevated(e *privexec.Elevated) ControllerOption {
	return func(c *Controller) { c.elevated = e }
}

// NewController creates a controller for the scx service.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Service:  DefaultService,
		ConfPath: DefaultConfPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = privexec.Local{}
	}
	if c.elevated == nil {
		c.elevated = privexec.NewElevated("")
	}
	return c
}

// ServiceEnabled reports whether the scx unit is enabled.
func (c *Controller) ServiceEnabled(ctx context.Context) bool {
	out, err := c.runner.Output(ctx, "systemctl", "is-enabled", c.Service)
	return err == nil && strings.TrimSpace(out) == "enabled"
}

// ServiceActive reports whether the scx unit is running.
func (c *Controller) ServiceActive(ctx context.Context) bool {
	out, err := c.runner.Output(ctx, "systemctl", "is-active", c.Service)
	return err == nil && strings.TrimSpace(out) == "active"
}

// applyVerb picks the systemctl verb for an apply: a disabled unit is
// enabled and started in one step, an enabled one is restarted so the new
// configuration takes effect.
func (c *Controller) applyVerb(ctx context.Context) string {
	if !c.ServiceEnabled(ctx) {
		return "enable --now"
	}
	return "restart"
}

// Apply writes the scheduler selection and flags into the configuration
// file and enables or restarts the service, all as one elevated command.
func (c *Controller) Apply(ctx context.Context, scheduler, flags string) error {
	if !IsKnownScheduler(scheduler) {
		return fmt.Errorf("unknown scheduler: %s", scheduler)
	}

	verb := c.applyVerb(ctx)
	script := c.applyScript(scheduler, flags, verb)

	log := logging.Get("schedext")
	log.Info("applying scheduler", "scheduler", scheduler, "flags", flags, "verb", verb)

	if err := c.elevated.Shell(ctx, script); err != nil {
		return fmt.Errorf("applying scheduler %s: %w", scheduler, err)
	}
	return nil
}

// applyScript assembles the sed edit of the configuration file chained
// with the service verb.
func (c *Controller) applyScript(scheduler, flags, verb string) string {
	parts := []string{
		"sed -e 's/SCX_SCHEDULER=.*/SCX_SCHEDULER=" + scheduler + "/'",
	}
	if frag := FlagsEditFragment(flags, c.flagsCommented()); frag != "" {
		parts = append(parts, frag)
	}
	parts = append(parts, "-i "+c.ConfPath)
	return strings.Join(parts, " ") + " && systemctl " + verb + " " + c.Service
}

// flagsCommented reports whether the SCX_FLAGS line in the configuration
// file is commented out. A missing file counts as uncommented.
func (c *Controller) flagsCommented() bool {
	data, err := os.ReadFile(c.ConfPath)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "#SCX_FLAGS=")
}

// FlagsEditFragment returns the sed expression updating the SCX_FLAGS line
// for the requested flags, given whether the line is currently commented.
// Empty flags leave a commented line alone and comment out an active one;
// non-empty flags replace the line, uncommenting it when needed.
func FlagsEditFragment(flags string, commented bool) string {
	switch {
	case flags == "" && commented:
		return ""
	case flags == "":
		return `-e 's/SCX_FLAGS=/#SCX_FLAGS=/'`
	case commented:
		return `-e "s/.*SCX_FLAGS=.*/SCX_FLAGS='` + flags + `'/"`
	default:
		return `-e "s/SCX_FLAGS=.*/SCX_FLAGS='` + flags + `'/"`
	}
}

// Disable turns the scheduler off. An enabled unit is disabled and stopped
// together; a merely running one is stopped. Nothing happens when the unit
// is neither.
func (c *Controller) Disable(ctx context.Context) error {
	log := logging.Get("schedext")

	switch {
	case c.ServiceEnabled(ctx):
		log.Info("disabling scheduler service", "service", c.Service)
		if err := c.elevated.Run(ctx, "systemctl", "disable", "--now", c.Service); err != nil {
			return fmt.Errorf("disabling service: %w", err)
		}
	case c.ServiceActive(ctx):
		log.Info("stopping scheduler service", "service", c.Service)
		if err := c.elevated.Run(ctx, "systemctl", "stop", c.Service); err != nil {
			return fmt.Errorf("stopping service: %w", err)
		}
	default:
		log.Debug("scheduler service neither enabled nor active", "service", c.Service)
	}
	return nil
}

// Selection is the scheduler configuration read from the environment file.
type Selection struct {
	Scheduler     string
	Flags         string
	FlagsActive   bool
	ConfAvailable bool
}

// CurrentSelection parses the configuration file for the selected scheduler
// and flags.
func (c *Controller) CurrentSelection() Selection {
	data, err := os.ReadFile(c.ConfPath)
	if err != nil {
		return Selection{}
	}

	sel := Selection{ConfAvailable: true}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if value, ok := strings.CutPrefix(line, "SCX_SCHEDULER="); ok {
			sel.Scheduler = strings.Trim(value, `'"`)
		}
		if value, ok := strings.CutPrefix(line, "SCX_FLAGS="); ok {
			sel.Flags = strings.Trim(value, `'"`)
			sel.FlagsActive = true
		}
	}
	return sel
}
