package git

import (
	"fmt"
	"path/filepath"

	gitlib "github.com/go-git/go-git/v5"
)

// openRepo opens the repository containing repoPath. Every operation
// opens its own handle; handles never outlive the call that created
// them.
func openRepo(repoPath string) (*gitlib.Repository, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

// worktreeRoot resolves the repository's working directory, which is
// independent of the process working directory. Bare repositories
// have none and cannot be diffed against.
func worktreeRoot(repo *gitlib.Repository) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		if err == gitlib.ErrIsBareRepository {
			return "", fmt.Errorf("repository has no working directory")
		}
		return "", err
	}
	return wt.Filesystem.Root(), nil
}
