package git

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/go-git/go-git/v5/plumbing"
)

// DiffLineType classifies a single line of a rendered diff.
type DiffLineType uint8

const (
	// DiffLineNone is a context line surrounding a change.
	DiffLineNone DiffLineType = iota
	// DiffLineHeader is a hunk header line.
	DiffLineHeader
	DiffLineAdd
	DiffLineDelete
)

func (t DiffLineType) String() string {
	switch t {
	case DiffLineHeader:
		return "header"
	case DiffLineAdd:
		return "add"
	case DiffLineDelete:
		return "delete"
	default:
		return "none"
	}
}

// DiffLine is one line of a file diff. Content keeps the trailing
// newline as produced by the diff; invalid UTF-8 is replaced lossily.
type DiffLine struct {
	Content string
	Type    DiffLineType
}

// HunkHeader identifies a hunk boundary. Two lines belong to the same
// hunk exactly when their headers compare equal.
type HunkHeader struct {
	OldStart uint32
	OldLines uint32
	NewStart uint32
	NewLines uint32
}

// Hash returns a stable 64-bit digest of the header, cheap to store
// and compare when grouping lines into hunks.
func (h HunkHeader) Hash() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:], h.OldStart)
	binary.LittleEndian.PutUint32(buf[4:], h.OldLines)
	binary.LittleEndian.PutUint32(buf[8:], h.NewStart)
	binary.LittleEndian.PutUint32(buf[12:], h.NewLines)
	d := fnv.New64a()
	d.Write(buf[:])
	return d.Sum64()
}

// Hunk is a contiguous block of diff lines sharing one header.
type Hunk struct {
	HeaderHash uint64
	Lines      []DiffLine
}

// FileDiff is the complete diff of a single file in one comparison
// mode.
type FileDiff struct {
	Hunks []Hunk
	// Lines is the total line count over all hunks, saturating at
	// 65535.
	Lines uint16
}

// StatusItem is one changed file in a commit or working-tree
// comparison. Path is always the new side of the change.
type StatusItem struct {
	Path   string
	Status StatusItemType
}

// CommitID is a value wrapper around a commit hash. It is comparable
// and usable as a map key.
type CommitID struct {
	hash plumbing.Hash
}

func NewCommitID(h plumbing.Hash) CommitID {
	return CommitID{hash: h}
}

// ParseCommitID parses a full hex commit hash.
func ParseCommitID(s string) (CommitID, error) {
	if !plumbing.IsHash(s) {
		return CommitID{}, fmt.Errorf("invalid commit id: %q", s)
	}
	return CommitID{hash: plumbing.NewHash(s)}, nil
}

func (c CommitID) Hash() plumbing.Hash { return c.hash }

func (c CommitID) IsZero() bool { return c.hash.IsZero() }

func (c CommitID) String() string { return c.hash.String() }
