package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

const (
	DefaultCloneTimeout = 5 * time.Minute
	defaultCloneDepth   = 1
)

var _ scan.HeadResolver = (*GitCloner)(nil)

// GitCloner performs shallow clones into fresh temporary directories via the
// git binary. Concurrency control (semaphore) is managed by the use case
// layer, not here.
type GitCloner struct {
	tempRoot string
	timeout  time.Duration
}

// Option configures a GitCloner.
type Option func(*GitCloner)

// WithCloneTimeout sets the hard clone timeout. Non-positive values are
// ignored and the 5 minute default is used.
func WithCloneTimeout(d time.Duration) Option {
	return func(g *GitCloner) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithTempRoot sets the directory clones are created under. Empty values are
// ignored and the system temp dir is used.
func WithTempRoot(dir string) Option {
	return func(g *GitCloner) {
		if dir != "" {
			g.tempRoot = dir
		}
	}
}

func NewGitCloner(opts ...Option) *GitCloner {
	g := &GitCloner{
		tempRoot: os.TempDir(),
		timeout:  DefaultCloneTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Clone shallow-clones cloneURL into a fresh temporary directory. The
// directory is never reused across calls; on any clone failure it is removed
// before the error is returned. The caller owns the returned Checkout and
// must Close it.
func (g *GitCloner) Clone(ctx context.Context, cloneURL string, opts scan.FetchOptions) (*Checkout, error) {
	if cloneURL == "" {
		return nil, fmt.Errorf("%w: clone URL is required", scan.ErrInvalidInput)
	}

	dir, err := os.MkdirTemp(g.tempRoot, "threatcanvas-clone-")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp dir: %w", scan.ErrCloneFailed, err)
	}

	depth := opts.Depth
	if depth <= 0 {
		depth = defaultCloneDepth
	}

	args := []string{"clone", "--depth", strconv.Itoa(depth), "--single-branch", "--quiet"}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch)
	}
	args = append(args, cloneURL, dir)

	cloneCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(cloneCtx, "git", args...)
	cmd.Env = scrubbedGitEnv()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.RemoveAll(dir)
		if cloneCtx.Err() != nil {
			return nil, fmt.Errorf("%w: clone %q timed out after %v", scan.ErrCloneFailed, cloneURL, g.timeout)
		}
		return nil, fmt.Errorf("%w: clone %q: %s: %w", scan.ErrCloneFailed, cloneURL, strings.TrimSpace(stderr.String()), err)
	}

	branch, sha := headInfo(dir)
	return &Checkout{root: dir, branch: branch, commitSHA: sha}, nil
}

// ResolveHead returns the remote HEAD commit SHA via git ls-remote, without
// cloning.
func (g *GitCloner) ResolveHead(ctx context.Context, repoURL string) (string, error) {
	if repoURL == "" {
		return "", fmt.Errorf("%w: repository URL is required", scan.ErrInvalidInput)
	}

	cmd := exec.CommandContext(ctx, "git", "ls-remote", repoURL, "HEAD")
	cmd.Env = scrubbedGitEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git ls-remote %q: %s: %w", repoURL, strings.TrimSpace(stderr.String()), err)
	}

	fields := strings.Fields(stdout.String())
	if len(fields) == 0 {
		return "", fmt.Errorf("git ls-remote %q: empty response", repoURL)
	}
	return fields[0], nil
}

// scrubbedGitEnv keeps git from prompting for credentials or reading user
// configuration.
func scrubbedGitEnv() []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_ASKPASS=",
		"HOME=/nonexistent",
	}
}

// headInfo inspects the fresh clone for its HEAD commit and branch.
// Best effort: a repository with no commits yields empty values.
func headInfo(dir string) (branch, sha string) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", ""
	}
	head, err := repo.Head()
	if err != nil {
		return "", ""
	}
	sha = head.Hash().String()
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	return branch, sha
}

// Checkout is a cloned working tree. Close removes it; every exit path of a
// fetch must do so.
type Checkout struct {
	root      string
	branch    string
	commitSHA string
}

func (c *Checkout) Root() string      { return c.root }
func (c *Checkout) Branch() string    { return c.branch }
func (c *Checkout) CommitSHA() string { return c.commitSHA }

func (c *Checkout) Close() error {
	return os.RemoveAll(c.root)
}
