package git

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
)

const diffContextLines = 3

// GetDiff builds the line-level diff of a single file. Staged
// compares the HEAD tree against the index (an empty tree when the
// repository has no commits yet); unstaged compares the index against
// the working tree, untracked files included.
func GetDiff(repoPath, filePath string, staged bool) (FileDiff, error) {
	if filePath == "" {
		return FileDiff{}, fmt.Errorf("file path is unspecified")
	}
	repo, err := openRepo(repoPath)
	if err != nil {
		return FileDiff{}, err
	}
	root, err := worktreeRoot(repo)
	if err != nil {
		return FileDiff{}, err
	}
	slog.Debug("GetDiff", slog.String("path", filePath), slog.Bool("staged", staged))

	var oldFile, newFile *object.File
	if staged {
		oldFile, err = fileFromHead(repo, filePath)
		if err != nil {
			return FileDiff{}, err
		}
		newFile, err = fileFromIndex(repo, filePath)
		if err != nil {
			return FileDiff{}, err
		}
	} else {
		oldFile, err = fileFromIndex(repo, filePath)
		if err != nil {
			return FileDiff{}, err
		}
		if oldFile == nil {
			// Untracked file: the index has nothing to diff against,
			// so synthesize the patch from the file content itself.
			// Unreadable or undecodable content falls through to the
			// regular machinery below.
			if content, ok := newFileContent(filepath.Join(root, filePath)); ok {
				return diffBuffers("", content)
			}
		}
		newFile, err = fileFromDisk(root, filePath)
		if err != nil {
			return FileDiff{}, err
		}
	}

	oldText, oldOK, err := fileText(oldFile)
	if err != nil {
		return FileDiff{}, err
	}
	newText, newOK, err := fileText(newFile)
	if err != nil {
		return FileDiff{}, err
	}
	if !oldOK || !newOK {
		// Binary content has no renderable text diff.
		return FileDiff{}, nil
	}
	return diffBuffers(oldText, newText)
}

// diffBuffers renders a unified diff between two in-memory texts and
// folds the line stream into hunks.
func diffBuffers(oldText, newText string) (FileDiff, error) {
	oldLines, oldBare := diffInputLines(oldText)
	newLines, newBare := diffInputLines(newText)
	diffText, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       oldLines,
		B:       newLines,
		Context: diffContextLines,
	})
	if err != nil {
		return FileDiff{}, fmt.Errorf("unified diff: %w", err)
	}
	c := &hunkCollector{}
	if err := collectUnified(c, diffText); err != nil {
		return FileDiff{}, err
	}
	fileDiff := c.finish()
	if err := trimSentinelNewlines(&fileDiff, oldBare, newBare, len(oldLines), len(newLines)); err != nil {
		return FileDiff{}, err
	}
	return fileDiff, nil
}

// diffInputLines prepares one side of a unified diff. The renderer
// emits each input element with a one-character marker and nothing
// else, so a final line without a trailing newline would run into the
// next rendered line. Such a line gets a newline appended here;
// trimSentinelNewlines strips it from the collected output again.
func diffInputLines(text string) ([]string, bool) {
	lines := splitTextLines(text)
	if len(lines) == 0 {
		return nil, false
	}
	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n"
		return lines, true
	}
	return lines, false
}

// trimSentinelNewlines undoes the newline diffInputLines appended to a
// bare final line. Only the last hunk can contain a side's final line,
// and only when its range runs to that side's end.
func trimSentinelNewlines(fileDiff *FileDiff, oldBare, newBare bool, oldTotal, newTotal int) error {
	if (!oldBare && !newBare) || len(fileDiff.Hunks) == 0 {
		return nil
	}
	h := &fileDiff.Hunks[len(fileDiff.Hunks)-1]
	header, err := parseHunkHeader(strings.TrimSuffix(h.Lines[0].Content, "\n"))
	if err != nil {
		return err
	}
	if oldBare && header.OldLines > 0 && header.OldStart+header.OldLines-1 == uint32(oldTotal) {
		trimLastLineOfType(h, DiffLineDelete, DiffLineNone)
	}
	if newBare && header.NewLines > 0 && header.NewStart+header.NewLines-1 == uint32(newTotal) {
		trimLastLineOfType(h, DiffLineAdd, DiffLineNone)
	}
	return nil
}

// trimLastLineOfType strips the trailing newline from the hunk's last
// line of either given type. Line 0 is the hunk header and never a
// candidate.
func trimLastLineOfType(h *Hunk, a, b DiffLineType) {
	for i := len(h.Lines) - 1; i > 0; i-- {
		if t := h.Lines[i].Type; t == a || t == b {
			h.Lines[i].Content = strings.TrimSuffix(h.Lines[i].Content, "\n")
			return
		}
	}
}

// fileFromHead resolves the file at path in the HEAD commit's tree.
// An unborn HEAD behaves like an empty tree.
func fileFromHead(repo *gitlib.Repository, path string) (*object.File, error) {
	head, err := repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD tree: %w", err)
	}
	f, err := tree.File(path)
	if err == object.ErrFileNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func fileFromIndex(repo *gitlib.Repository, path string) (*object.File, error) {
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	entry, err := idx.Entry(path)
	if err == gitindex.ErrEntryNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	blob, err := object.GetBlob(repo.Storer, entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("read index blob: %w", err)
	}
	return object.NewFile(entry.Name, entry.Mode, blob), nil
}

// fileFromDisk builds a transient blob for the file at path under the
// worktree root. Symlinks contribute their target path string, the
// same content git records for them.
func fileFromDisk(root, path string) (*object.File, error) {
	if root == "" {
		return nil, fmt.Errorf("repository root not set")
	}
	fullPath := filepath.Join(root, path)
	info, err := os.Lstat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var data []byte
	mode := filemode.Regular
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(fullPath)
		if err != nil {
			return nil, err
		}
		data = []byte(target)
		mode = filemode.Symlink
	} else {
		file, err := os.Open(fullPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		if m, err := filemode.NewFromOSFileMode(info.Mode()); err == nil {
			mode = m
		}
	}
	mem := &plumbing.MemoryObject{}
	mem.SetType(plumbing.BlobObject)
	if _, err := mem.Write(data); err != nil {
		return nil, err
	}
	blob, err := object.DecodeBlob(mem)
	if err != nil {
		return nil, err
	}
	return object.NewFile(path, mode, blob), nil
}

// newFileContent reads a brand-new file straight from disk. A symlink
// contributes its target path as content. Anything that cannot be
// classified, read, or decoded as UTF-8 reports !ok.
func newFileContent(path string) (string, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", false
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return "", false
		}
		return target, true
	}
	if !info.Mode().IsRegular() {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// fileText extracts the text content of one diff side. An absent side
// is empty text; binary or invalid-UTF-8 content reports !ok.
func fileText(f *object.File) (string, bool, error) {
	if f == nil {
		return "", true, nil
	}
	bin, err := f.IsBinary()
	if err != nil {
		return "", false, err
	}
	if bin {
		return "", false, nil
	}
	content, err := f.Contents()
	if err != nil {
		return "", false, err
	}
	if !utf8.ValidString(content) {
		return "", false, nil
	}
	return content, true, nil
}
