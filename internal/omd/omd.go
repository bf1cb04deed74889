package omd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Action names one service-lifecycle operation executed against a site.
type Action string

const (
	// ActionRestartCore restarts the monitoring core. It always runs first.
	ActionRestartCore Action = "restart-core"
	// ActionReloadWebFrontend reloads the site's web server.
	ActionReloadWebFrontend Action = "reload-web-frontend"
	// ActionRestartUIScheduler restarts the UI job scheduler.
	ActionRestartUIScheduler Action = "restart-ui-scheduler"
)

// actionCommands maps each action to the command run inside the site's
// user context.
var actionCommands = map[Action][]string{
	ActionRestartCore:        {"cmk", "-R"},
	ActionReloadWebFrontend:  {"omd", "reload", "apache"},
	ActionRestartUIScheduler: {"omd", "restart", "ui-job-scheduler"},
}

// actionLabels are the headings shown while an action runs.
var actionLabels = map[Action]string{
	ActionRestartCore:        "Restart Checkmk",
	ActionReloadWebFrontend:  "Reload Apache",
	ActionRestartUIScheduler: "Restart UI Job Scheduler",
}

// Label returns a human-readable heading for the action.
func (a Action) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return string(a)
}

// Host provides the site operations the sync engine needs: discovery, file
// copy and restart execution. All failures are per-call; the engine decides
// whether to continue.
type Host interface {
	// Sites lists the site names known to the local OMD installation.
	Sites(ctx context.Context) ([]string, error)
	// CopyFile copies a file or directory into the site tree.
	CopyFile(ctx context.Context, src, dst string) error
	// RunAction executes a restart action in the site's user context and
	// returns the captured command output.
	RunAction(ctx context.Context, site string, action Action) (string, error)
}

// ShellHost implements Host by shelling out to omd, sudo and cp.
type ShellHost struct{}

// NewShellHost creates a host client for the local OMD installation.
func NewShellHost() *ShellHost {
	return &ShellHost{}
}

// Sites runs "omd sites --bare" and returns the listed site names.
func (h *ShellHost) Sites(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "omd", "sites", "--bare").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return parseSites(string(out)), nil
}

// CopyFile copies src to dst with root privileges. The site tree is owned
// by the site user, so a plain copy would fail for the invoking developer.
func (h *ShellHost) CopyFile(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "sudo", "cp", "-R", src, dst)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("cp failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// RunAction executes the command mapped to action as the site user. The
// captured output is returned even on failure so callers can display it.
func (h *ShellHost) RunAction(ctx context.Context, site string, action Action) (string, error) {
	args, err := actionArgs(site, action)
	if err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s failed: %w", action, err)
	}
	return string(output), nil
}

// actionArgs builds the full argv for an action, scoped to the site's user
// context via a sudo login shell.
func actionArgs(site string, action Action) ([]string, error) {
	argv, ok := actionCommands[action]
	if !ok {
		return nil, fmt.Errorf("unknown restart action: %s", action)
	}
	args := []string{"sudo", "--login", "-u", site, "--"}
	return append(args, argv...), nil
}

// parseSites splits the bare site listing into names, dropping blank lines.
func parseSites(out string) []string {
	var sites []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			sites = append(sites, line)
		}
	}
	return sites
}
