package detective

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitClient runs git operations against arbitrary repositories. Cloning
// always targets a caller-owned directory; locators are passed as argument
// vectors, never interpolated into a shell string.
type GitClient interface {
	// Clone clones url into dir with the given history depth.
	Clone(ctx context.Context, url, dir string, depth int) error

	// Log returns one line per commit in chronological order.
	Log(ctx context.Context, dir string) ([]string, error)
}

// ExecGit implements GitClient using the git binary.
type ExecGit struct{}

// NewGitClient returns an ExecGit.
func NewGitClient() *ExecGit {
	return &ExecGit{}
}

func gitCmd(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}
	out, err := exec.CommandContext(ctx, "git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Clone clones url into dir with the given history depth.
func (c *ExecGit) Clone(ctx context.Context, url, dir string, depth int) error {
	_, err := gitCmd(ctx, "", "clone", "--depth", fmt.Sprint(depth), url, dir)
	return err
}

// Log returns one line per commit, oldest first, formatted as
// "<short-hash> <date> <subject>".
func (c *ExecGit) Log(ctx context.Context, dir string) ([]string, error) {
	out, err := gitCmd(ctx, dir, "log", "--oneline", "--reverse", "--date=iso", "--pretty=%h %ad %s")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}
