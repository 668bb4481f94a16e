package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func repoInit(t *testing.T) (string, *gitlib.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	return dir, repo
}

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func stageFile(t *testing.T, repo *gitlib.Repository, path string) {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add(path); err != nil {
		t.Fatalf("stage %s: %v", path, err)
	}
}

func removeFile(t *testing.T, repo *gitlib.Repository, path string) {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Remove(path); err != nil {
		t.Fatalf("remove %s: %v", path, err)
	}
}

func testSignature() object.Signature {
	return object.Signature{
		Name:  "tester",
		Email: "tester@example.com",
		When:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func commitStaged(t *testing.T, repo *gitlib.Repository, message string) CommitID {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	sig := testSignature()
	hash, err := wt.Commit(message, &gitlib.CommitOptions{Author: &sig})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return NewCommitID(hash)
}

// commitFile writes, stages, and commits a single file.
func commitFile(t *testing.T, root string, repo *gitlib.Repository, path, content, message string) CommitID {
	t.Helper()
	writeFile(t, root, path, content)
	stageFile(t, repo, path)
	return commitStaged(t, repo, message)
}

func storeBlob(t *testing.T, repo *gitlib.Repository, content string) plumbing.Hash {
	t.Helper()
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		t.Fatalf("blob writer: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close blob: %v", err)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("store blob: %v", err)
	}
	return hash
}

func storeTree(t *testing.T, repo *gitlib.Repository, entries []object.TreeEntry) plumbing.Hash {
	t.Helper()
	tree := &object.Tree{Entries: entries}
	obj := repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		t.Fatalf("encode tree: %v", err)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("store tree: %v", err)
	}
	return hash
}

func storeCommit(t *testing.T, repo *gitlib.Repository, tree plumbing.Hash, parents []plumbing.Hash, message string) CommitID {
	t.Helper()
	sig := testSignature()
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}
	obj := repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		t.Fatalf("encode commit: %v", err)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("store commit: %v", err)
	}
	return NewCommitID(hash)
}

func setStashRef(t *testing.T, repo *gitlib.Repository, id CommitID) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.ReferenceName(stashRefName), id.Hash())
	if err := repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("set %s: %v", stashRefName, err)
	}
}

// writeStashReflog records stash entries the way git does, oldest
// first, one reflog line per entry.
func writeStashReflog(t *testing.T, root string, ids ...CommitID) {
	t.Helper()
	logDir := filepath.Join(root, ".git", "logs", "refs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir reflog dir: %v", err)
	}
	var content string
	old := plumbing.ZeroHash.String()
	for _, id := range ids {
		content += old + " " + id.String() +
			" tester <tester@example.com> 1714564800 +0000\tWIP on master: stash entry\n"
		old = id.String()
	}
	if err := os.WriteFile(filepath.Join(logDir, "stash"), []byte(content), 0o644); err != nil {
		t.Fatalf("write stash reflog: %v", err)
	}
}
