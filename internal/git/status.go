package git

import (
	"fmt"
	"sort"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// StatusItemType is the closed vocabulary of change kinds shared by
// commit change-sets and working-tree status listings, so every view
// renders the same words regardless of where an item came from.
type StatusItemType uint8

const (
	StatusItemUnknown StatusItemType = iota
	StatusItemNew
	StatusItemModified
	StatusItemDeleted
	StatusItemRenamed
	StatusItemCopied
	StatusItemTypechange
	StatusItemConflicted
)

func (t StatusItemType) String() string {
	switch t {
	case StatusItemNew:
		return "new"
	case StatusItemModified:
		return "modified"
	case StatusItemDeleted:
		return "deleted"
	case StatusItemRenamed:
		return "renamed"
	case StatusItemCopied:
		return "copied"
	case StatusItemTypechange:
		return "typechange"
	case StatusItemConflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}

// StatusType selects which side of the index boundary a status
// listing describes.
type StatusType uint8

const (
	StatusWorkingDir StatusType = iota
	StatusStage
)

// GetStatus lists the changed files on one side of the index
// boundary, sorted by path. Untracked files appear only in the
// working-dir listing.
func GetStatus(repoPath string, statusType StatusType) ([]StatusItem, error) {
	repo, err := openRepo(repoPath)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		if err == gitlib.ErrIsBareRepository {
			return nil, fmt.Errorf("repository has no working directory")
		}
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	items := make([]StatusItem, 0, len(status))
	for path, st := range status {
		var code gitlib.StatusCode
		switch statusType {
		case StatusStage:
			code = st.Staging
			if code == gitlib.Untracked {
				continue
			}
		default:
			code = st.Worktree
		}
		if code == gitlib.Unmodified {
			continue
		}
		items = append(items, StatusItem{Path: path, Status: statusItemTypeFromCode(code)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

// statusItemTypeFromCode maps a worktree status code into the shared
// vocabulary. The mapping is total; unclassified codes fall back to
// Unknown.
func statusItemTypeFromCode(code gitlib.StatusCode) StatusItemType {
	switch code {
	case gitlib.Untracked, gitlib.Added:
		return StatusItemNew
	case gitlib.Modified:
		return StatusItemModified
	case gitlib.Deleted:
		return StatusItemDeleted
	case gitlib.Renamed:
		return StatusItemRenamed
	case gitlib.Copied:
		return StatusItemCopied
	case gitlib.UpdatedButUnmerged:
		return StatusItemConflicted
	default:
		return StatusItemUnknown
	}
}

// statusItemTypeFromChange maps a tree-to-tree change into the shared
// vocabulary.
func statusItemTypeFromChange(change *object.Change) (StatusItemType, error) {
	action, err := change.Action()
	if err != nil {
		return StatusItemUnknown, fmt.Errorf("change action: %w", err)
	}
	switch action {
	case merkletrie.Insert:
		return StatusItemNew, nil
	case merkletrie.Delete:
		return StatusItemDeleted, nil
	case merkletrie.Modify:
		if change.From.Name != change.To.Name {
			return StatusItemRenamed, nil
		}
		if modeClass(change.From.TreeEntry.Mode) != modeClass(change.To.TreeEntry.Mode) {
			return StatusItemTypechange, nil
		}
		return StatusItemModified, nil
	default:
		return StatusItemUnknown, nil
	}
}

// modeClass collapses file modes that diff identically: a chmod
// between regular and executable is a modification, not a typechange.
func modeClass(mode filemode.FileMode) filemode.FileMode {
	if mode == filemode.Executable {
		return filemode.Regular
	}
	return mode
}
