// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// minFileDescriptors covers the watchdog's own needs: the three redirected
// streams, the metrics listener with a few scrapers, and log output.
const minFileDescriptors = 64

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options describes what the checks look at.
type Options struct {
	Executable  string
	Stdin       string
	Stdout      string
	Stderr      string
	MetricsAddr string
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// Failed returns the checks that did not pass.
func (r *Result) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Err returns an error naming the failed checks, or nil if all passed.
func (r *Result) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, c := range failed {
		names[i] = c.Name
	}
	return fmt.Errorf("preflight checks failed: %s", strings.Join(names, ", "))
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 6),
		Passed: true,
	}

	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkExecutable(opts.Executable))
	if opts.Stdin != "" {
		add(checkReadable("stdin", opts.Stdin))
	}
	if opts.Stdout != "" {
		add(checkWritable("stdout", opts.Stdout))
	}
	if opts.Stderr != "" && opts.Stderr != opts.Stdout {
		add(checkWritable("stderr", opts.Stderr))
	}
	add(checkFileDescriptors(minFileDescriptors))
	add(checkProcessLimit(2))
	if opts.MetricsAddr != "" {
		add(checkListen(opts.MetricsAddr))
	}

	return result
}

// checkExecutable verifies the executable resolves the way exec would.
func checkExecutable(path string) Check {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Check{
			Name:    "executable",
			Passed:  false,
			Message: fmt.Sprintf("%s: %v", path, err),
		}
	}
	return Check{
		Name:    "executable",
		Passed:  true,
		Message: "found at " + resolved,
	}
}

// checkReadable verifies an input redirection target can be opened.
func checkReadable(name, path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Passed: false, Message: err.Error()}
	}
	if info.IsDir() {
		return Check{Name: name, Passed: false, Message: path + " is a directory"}
	}
	f, err := os.Open(path)
	if err != nil {
		return Check{Name: name, Passed: false, Message: err.Error()}
	}
	f.Close()
	return Check{Name: name, Passed: true, Message: path + " readable"}
}

// checkWritable verifies an output redirection target can be created.
// The file itself is not touched; it is truncated on every spawn anyway.
func checkWritable(name, path string) Check {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return Check{Name: name, Passed: false, Message: path + " is a directory"}
		}
		if err := accessWritable(path); err != nil {
			return Check{Name: name, Passed: false, Message: fmt.Sprintf("%s not writable: %v", path, err)}
		}
		return Check{Name: name, Passed: true, Message: path + " writable"}
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("directory %s: %v", dir, err)}
	}
	if !info.IsDir() {
		return Check{Name: name, Passed: false, Message: dir + " is not a directory"}
	}
	if err := accessWritable(dir); err != nil {
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("cannot create files in %s: %v", dir, err)}
	}
	return Check{Name: name, Passed: true, Message: path + " will be created"}
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors(required int) Check {
	actual, ok := fileDescriptorLimit()
	if !ok {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to check on this platform",
		}
	}

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d)", actual, required),
	}
}

// checkProcessLimit verifies there is room to fork the child.
func checkProcessLimit(required int) Check {
	// RLIMIT_NPROC is not exported by syscall, read it from /proc instead.
	data, err := os.ReadFile("/proc/self/limits")
	if err != nil {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to check (non-Linux or restricted)",
		}
	}

	actual := parseMaxProcesses(string(data))
	if actual == 0 {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to determine (assuming OK)",
		}
	}

	return Check{
		Name:     "process_limit",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -u %d (need %d)", actual, required),
	}
}

// parseMaxProcesses extracts the soft "Max processes" limit from the
// contents of /proc/self/limits. It returns 0 if the line is missing.
func parseMaxProcesses(limits string) int {
	for _, line := range strings.Split(limits, "\n") {
		if !strings.HasPrefix(line, "Max processes") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return 0
		}
		if fields[2] == "unlimited" {
			return 1000000
		}
		var n int
		fmt.Sscanf(fields[2], "%d", &n)
		return n
	}
	return 0
}

// checkListen verifies the metrics address can be bound. The listener is
// closed again straight away.
func checkListen(addr string) Check {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{
			Name:    "metrics_listen",
			Passed:  false,
			Message: err.Error(),
		}
	}
	ln.Close()
	return Check{
		Name:    "metrics_listen",
		Passed:  true,
		Message: addr + " available",
	}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "executable":
		return "pass an absolute path or add its directory to PATH"
	case "stdin":
		return "create the input file or drop --stdin"
	case "stdout", "stderr":
		return "create the parent directory or fix its permissions"
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	case "process_limit":
		return "ulimit -u 4096 (or edit /etc/security/limits.conf)"
	case "metrics_listen":
		return "pick a free --metrics address"
	default:
		return "see documentation"
	}
}
