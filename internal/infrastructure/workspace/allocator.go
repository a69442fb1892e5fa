package workspace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/workingcopy"
	"github.com/YoshitsuguKoike/deerun/internal/domain/repository"
)

// Allocator hands out isolated git worktrees, one per (repository, issue)
// pair. Jobs on distinct issues get non-conflicting checkouts; jobs on the
// same issue share one so successive commands accumulate on the same branch.
//
// The allocator is the sole writer of WorkingCopy records. Creation is
// serialized; concurrent triggers for the same issue cannot race two
// worktrees into existence.
type Allocator struct {
	mu      sync.Mutex
	copies  repository.WorkingCopyRepository
	baseDir string

	// runGit is swappable for tests
	runGit func(ctx context.Context, dir string, args ...string) (string, error)
}

// NewAllocator creates an allocator placing worktrees under baseDir
func NewAllocator(copies repository.WorkingCopyRepository, baseDir string) *Allocator {
	return &Allocator{
		copies:  copies,
		baseDir: baseDir,
		runGit:  runGitCommand,
	}
}

// GetOrCreate returns the working copy path for an issue, creating a new
// worktree branched from the default branch on first use.
//
// Failure here is reported to the caller, which falls back to the shared
// primary path; it must never hard-fail a trigger.
func (a *Allocator) GetOrCreate(ctx context.Context, repo string, issueNum int, mainRepoPath string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := model.NewIssueKey(repo, issueNum)

	existing, err := a.copies.FindByIssueKey(ctx, key)
	if err != nil {
		return "", fmt.Errorf("look up working copy: %w", err)
	}
	if existing != nil {
		return existing.Path(), nil
	}

	slug := model.RepoSlug(repo)
	branch := fmt.Sprintf("agent/issue-%d", issueNum)
	path := filepath.Join(a.baseDir, fmt.Sprintf("%s-issue-%d", slug, issueNum))

	if err := os.MkdirAll(a.baseDir, 0755); err != nil {
		return "", fmt.Errorf("create worktree base directory: %w", err)
	}

	base, err := a.defaultBranch(ctx, mainRepoPath)
	if err != nil {
		return "", fmt.Errorf("resolve default branch: %w", err)
	}

	if _, err := a.runGit(ctx, mainRepoPath, "worktree", "add", "-B", branch, path, base); err != nil {
		return "", fmt.Errorf("create worktree for %s: %w", key, err)
	}

	wc, err := workingcopy.NewWorkingCopy(key, path, branch)
	if err != nil {
		return "", err
	}
	if err := a.copies.Save(ctx, wc); err != nil {
		return "", fmt.Errorf("record working copy: %w", err)
	}

	return path, nil
}

// Cleanup removes an issue's worktree and its record. Explicit operation
// only; nothing removes working copies automatically.
func (a *Allocator) Cleanup(ctx context.Context, key model.IssueKey, mainRepoPath string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	wc, err := a.copies.FindByIssueKey(ctx, key)
	if err != nil {
		return fmt.Errorf("look up working copy: %w", err)
	}
	if wc == nil {
		return fmt.Errorf("no working copy recorded for %s", key)
	}

	if _, err := a.runGit(ctx, mainRepoPath, "worktree", "remove", "--force", wc.Path()); err != nil {
		return fmt.Errorf("remove worktree %s: %w", wc.Path(), err)
	}

	return a.copies.Delete(ctx, key)
}

// defaultBranch resolves the branch new worktrees are based on
func (a *Allocator) defaultBranch(ctx context.Context, mainRepoPath string) (string, error) {
	if out, err := a.runGit(ctx, mainRepoPath, "symbolic-ref", "--short", "refs/remotes/origin/HEAD"); err == nil {
		if ref := strings.TrimSpace(out); ref != "" {
			return ref, nil
		}
	}

	// No origin HEAD (local-only repo); fall back to the current branch
	out, err := a.runGit(ctx, mainRepoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func runGitCommand(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w (output: %s)", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
