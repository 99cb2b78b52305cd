// Package schedext reads sched_ext scheduler state from sysfs and drives
// the scx service through the privilege helper.
package schedext

import (
	"os"
	"strings"
)

// Default sysfs locations exported by the sched_ext core.
const (
	DefaultStateFile = "/sys/kernel/sched_ext/state"
	DefaultOpsFile   = "/sys/kernel/sched_ext/root/ops"
)

// StatusUnknown is reported when sched_ext is enabled but the ops file
// names no scheduler.
const StatusUnknown = "unknown"

// StatusReader resolves the current scheduler status from sysfs.
type StatusReader struct {
	StateFile string
	OpsFile   string
}

// NewStatusReader returns a reader over the default sysfs files.
func NewStatusReader() StatusReader {
	return StatusReader{StateFile: DefaultStateFile, OpsFile: DefaultOpsFile}
}

// Current returns the scheduler status string. When sched_ext is enabled
// the result is the active scheduler name from the ops file; otherwise it
// is the raw state value. Kernels without sched_ext yield an empty string.
func (r StatusReader) Current() string {
	state := readFirstLine(r.StateFile)
	if state != "enabled" {
		return state
	}
	ops := readFirstLine(r.OpsFile)
	if ops == "" {
		return StatusUnknown
	}
	return ops
}

// Enabled reports whether a sched_ext scheduler is active.
func (r StatusReader) Enabled() bool {
	return readFirstLine(r.StateFile) == "enabled"
}

// readFirstLine returns the first line of the file with only the newline
// stripped, or empty when the file is missing or unreadable. The content is
// otherwise passed through verbatim so callers see the raw sysfs value.
func readFirstLine(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return line
}
