package git

import (
	"fmt"
	"log/slog"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// stashUntrackedParent is the parent slot holding the tree of files
// that were untracked at stash time.
const stashUntrackedParent = 2

// GetCommitFiles lists every file changed by a commit relative to its
// first parent, in the order the tree diff enumerates them. For stash
// commits the files stashed while untracked live in a separate third
// parent; their entries are appended after the regular ones.
//
// TODO: merge entries for paths present in both the parent diff and
// the untracked tree instead of appending duplicates.
func GetCommitFiles(repoPath string, id CommitID) ([]StatusItem, error) {
	repo, err := openRepo(repoPath)
	if err != nil {
		return nil, err
	}
	items, err := commitFiles(repo, id)
	if err != nil {
		return nil, err
	}
	stash, err := isStashCommit(repo, id)
	if err != nil {
		return nil, err
	}
	if stash {
		untracked, err := stashUntrackedFiles(repo, id)
		if err != nil {
			return nil, err
		}
		items = append(items, untracked...)
	}
	return items, nil
}

// stashUntrackedFiles resolves the change-set of the stash's third
// parent as an ordinary commit. The third parent is never itself a
// stash entry, so the recursion is bounded at depth one.
func stashUntrackedFiles(repo *gitlib.Repository, id CommitID) ([]StatusItem, error) {
	commit, err := repo.CommitObject(id.Hash())
	if err != nil {
		return nil, fmt.Errorf("resolve stash commit %s: %w", id, err)
	}
	if commit.NumParents() <= stashUntrackedParent {
		slog.Debug("stash commit has no untracked parent", slog.String("id", id.String()))
		return nil, nil
	}
	return commitFiles(repo, NewCommitID(commit.ParentHashes[stashUntrackedParent]))
}

func commitFiles(repo *gitlib.Repository, id CommitID) ([]StatusItem, error) {
	commit, err := repo.CommitObject(id.Hash())
	if err != nil {
		return nil, fmt.Errorf("resolve commit %s: %w", id, err)
	}
	commitTree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("resolve commit tree: %w", err)
	}
	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("resolve parent commit: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("resolve parent tree: %w", err)
		}
	}
	changes, err := object.DiffTree(parentTree, commitTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	items := make([]StatusItem, 0, len(changes))
	for _, change := range changes {
		status, err := statusItemTypeFromChange(change)
		if err != nil {
			return nil, err
		}
		items = append(items, StatusItem{Path: changePath(change), Status: status})
	}
	return items, nil
}

// changePath prefers the new side of a change; only deletions carry
// nothing there.
func changePath(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	return change.From.Name
}
