// Package deps checks that the external programs behind command tasks can be
// found before runqd relies on them.
package deps

import (
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"runqd/internal/config"
)

// Requirement names an external program a task runs.
type Requirement struct {
	Name    string
	Command string
	// Optional marks programs of tasks that no runner is registered for.
	Optional bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name      string
	Command   string
	Optional  bool
	Available bool
	Path      string
	Detail    string
}

// ForCommandTasks lists the programs of the configured command tasks. Tasks
// missing from active are optional.
func ForCommandTasks(tasks []config.CommandTask, active []string) []Requirement {
	reqs := make([]Requirement, 0, len(tasks))
	for _, t := range tasks {
		reqs = append(reqs, Requirement{
			Name:     t.Name,
			Command:  t.Command,
			Optional: !slices.Contains(active, t.Name),
		})
	}
	return reqs
}

// CheckBinaries resolves every requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:     req.Name,
			Command:  cmd,
			Optional: req.Optional,
		}
		switch path, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the unavailable required entries of statuses.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
