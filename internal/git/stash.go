package git

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const stashRefName = "refs/stash"

// GetStashes enumerates the commits currently recorded as stash
// entries, newest first. A repository without a stash yields an empty
// list, not an error.
func GetStashes(repoPath string) ([]CommitID, error) {
	repo, err := openRepo(repoPath)
	if err != nil {
		return nil, err
	}
	return stashes(repo)
}

func stashes(repo *gitlib.Repository) ([]CommitID, error) {
	// Every stash entry lives in the refs/stash reflog; the ref
	// itself only names the newest one.
	if storage, ok := repo.Storer.(*filesystem.Storage); ok {
		ids, err := stashesFromReflog(storage.Filesystem())
		if err != nil {
			return nil, err
		}
		if ids != nil {
			return ids, nil
		}
	}
	ref, err := repo.Reference(plumbing.ReferenceName(stashRefName), true)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve %s: %w", stashRefName, err)
	}
	return []CommitID{NewCommitID(ref.Hash())}, nil
}

// stashesFromReflog parses the refs/stash reflog from the repository
// metadata filesystem. A nil list with no error means the reflog does
// not exist.
func stashesFromReflog(fs billy.Filesystem) ([]CommitID, error) {
	f, err := fs.Open("logs/" + stashRefName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stash reflog: %w", err)
	}
	defer f.Close()

	var ids []CommitID
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// "<old> <new> <ident> <epoch> <tz>\t<message>"
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !plumbing.IsHash(fields[1]) {
			continue
		}
		ids = append(ids, NewCommitID(plumbing.NewHash(fields[1])))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stash reflog: %w", err)
	}
	// The reflog is ordered oldest first.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

func isStashCommit(repo *gitlib.Repository, id CommitID) (bool, error) {
	ids, err := stashes(repo)
	if err != nil {
		return false, err
	}
	for _, stash := range ids {
		if stash == id {
			return true, nil
		}
	}
	return false, nil
}
