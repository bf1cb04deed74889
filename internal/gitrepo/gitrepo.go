package gitrepo

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Commit holds the metadata of the commit being synced.
type Commit struct {
	Author  string
	Email   string
	Time    time.Time
	Subject string
	// Files are the repository-relative paths touched by the commit,
	// deduplicated, in the order git reports them.
	Files []string
}

// Repository provides the git operations the sync engine needs.
type Repository interface {
	// Root returns the absolute path of the repository working tree.
	Root() string
	// HeadCommit returns the metadata and changed files of HEAD.
	HeadCommit(ctx context.Context) (*Commit, error)
	// AuthoredByUser reports whether the invoking user's configured git
	// identity last touched the path. Display only; errors degrade to false.
	AuthoredByUser(ctx context.Context, path string) bool
}

// ShellRepository implements Repository by shelling out to the git command.
type ShellRepository struct {
	root      string
	userEmail string
	emailInit bool
}

// Open locates the repository containing dir by asking git for the working
// tree root. It fails when dir is not inside a git repository.
func Open(ctx context.Context, dir string) (*ShellRepository, error) {
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository: %w", err)
	}
	return &ShellRepository{root: strings.TrimSpace(string(out))}, nil
}

// Root returns the absolute path of the repository working tree.
func (r *ShellRepository) Root() string {
	return r.root
}

// HeadCommit reads author, time, subject and the changed-file list of HEAD.
func (r *ShellRepository) HeadCommit(ctx context.Context) (*Commit, error) {
	meta, err := r.git(ctx, "log", "-1", "--pretty=format:%an%x00%ae%x00%at%x00%s")
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}

	parts := strings.SplitN(meta, "\x00", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("unexpected git log output: %q", meta)
	}

	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid commit timestamp %q: %w", parts[2], err)
	}

	// --root makes this work for the initial commit as well.
	files, err := r.git(ctx, "diff-tree", "--root", "--no-commit-id", "--name-only", "-r", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w", err)
	}

	return &Commit{
		Author:  parts[0],
		Email:   parts[1],
		Time:    time.Unix(unix, 0),
		Subject: parts[3],
		Files:   splitLines(files),
	}, nil
}

// AuthoredByUser compares the author of the path's latest commit with the
// user's configured git email.
func (r *ShellRepository) AuthoredByUser(ctx context.Context, path string) bool {
	email := r.configuredEmail(ctx)
	if email == "" {
		return false
	}
	out, err := r.git(ctx, "log", "-1", "--pretty=format:%ae", "--", path)
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == email
}

// configuredEmail reads git's user.email once and caches it for the run.
func (r *ShellRepository) configuredEmail(ctx context.Context) string {
	if !r.emailInit {
		r.emailInit = true
		out, err := r.git(ctx, "config", "user.email")
		if err == nil {
			r.userEmail = strings.TrimSpace(out)
		}
	}
	return r.userEmail
}

// git runs a git subcommand against the repository and returns its stdout,
// wrapping stderr into the error on failure.
func (r *ShellRepository) git(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", r.root}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// splitLines splits command output into non-empty lines, dropping
// duplicates while keeping first-occurrence order.
func splitLines(s string) []string {
	var lines []string
	seen := make(map[string]bool)
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" && !seen[l] {
			seen[l] = true
			lines = append(lines, l)
		}
	}
	return lines
}
