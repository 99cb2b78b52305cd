// Package privexec runs external commands, optionally elevated through a
// polkit helper. All privileged operations in kernelctl go through the
// Runner interface so tests can assert on the exact command constructed
// without spawning real processes.
package privexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// DefaultHelper is the polkit elevation helper.
const DefaultHelper = "/usr/bin/pkexec"

// DefaultShell is the shell used for compound elevated commands.
const DefaultShell = "/usr/bin/bash"

// Runner executes external commands. Run waits for the process and returns
// its error; Output additionally captures trimmed stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// Local runs commands directly with the caller's privileges.
type Local struct{}

// Run executes the command and waits for it. On failure the captured
// stderr is folded into the returned error.
func (Local) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Output executes the command and returns its trimmed stdout.
// A non-zero exit still returns whatever was written to stdout, which
// matches systemctl's is-enabled/is-active query behavior.
func (Local) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

// Elevated wraps a Runner so every command is prefixed with the elevation
// helper (pkexec by default).
type Elevated struct {
	Helper string
	Runner Runner
}

// NewElevated creates an Elevated runner over Local with the given helper.
// An empty helper selects DefaultHelper.
func NewElevated(helper string) *Elevated {
	if helper == "" {
		helper = DefaultHelper
	}
	return &Elevated{Helper: helper, Runner: Local{}}
}

// Run executes the command through the elevation helper and waits for it.
func (e *Elevated) Run(ctx context.Context, name string, args ...string) error {
	return e.Runner.Run(ctx, e.Helper, append([]string{name}, args...)...)
}

// Shell runs a compound shell command line elevated, via `bash -c`.
func (e *Elevated) Shell(ctx context.Context, script string) error {
	return e.Run(ctx, DefaultShell, "-c", script)
}

// Call records one command invocation made against a Recorder.
type Call struct {
	Name string
	Args []string
}

// Line returns the call as a single command line.
func (c Call) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Recorder is a Runner test double. It records every call and serves
// scripted outputs and errors keyed by the full command line.
type Recorder struct {
	mu      sync.Mutex
	Calls   []Call
	Outputs map[string]string
	Errs    map[string]error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		Outputs: make(map[string]string),
		Errs:    make(map[string]error),
	}
}

// Run records the call and returns the scripted error, if any.
func (r *Recorder) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := Call{Name: name, Args: args}
	r.Calls = append(r.Calls, call)
	return r.Errs[call.Line()]
}

// Output records the call and returns the scripted output and error.
func (r *Recorder) Output(_ context.Context, name string, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := Call{Name: name, Args: args}
	r.Calls = append(r.Calls, call)
	return r.Outputs[call.Line()], r.Errs[call.Line()]
}

// Lines returns the recorded calls as command lines, in order.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		lines[i] = c.Line()
	}
	return lines
}
