package git

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// hunkCollector folds a stream of (boundary, line) pairs into
// completed hunks. The buffered hunk is flushed as soon as a line
// with a different boundary arrives, and once more by finish, so a
// partially built hunk is never exposed.
type hunkCollector struct {
	current HunkHeader
	open    bool
	lines   []DiffLine
	hunks   []Hunk
	total   uint16
}

func (c *hunkCollector) push(header HunkHeader, line DiffLine) {
	if c.open && header != c.current {
		c.flush()
	}
	if !c.open {
		c.current = header
		c.open = true
	}
	c.lines = append(c.lines, line)
}

func (c *hunkCollector) flush() {
	if c.open && len(c.lines) > 0 {
		c.hunks = append(c.hunks, Hunk{HeaderHash: c.current.Hash(), Lines: c.lines})
		if n := len(c.lines); int(c.total)+n > math.MaxUint16 {
			c.total = math.MaxUint16
		} else {
			c.total += uint16(n)
		}
	}
	c.lines = nil
	c.open = false
}

func (c *hunkCollector) finish() FileDiff {
	c.flush()
	return FileDiff{Hunks: c.hunks, Lines: c.total}
}

// collectUnified feeds a unified-diff text line by line into the
// collector. Lines seen before any hunk boundary (the ---/+++ file
// headers) carry no boundary and are dropped.
func collectUnified(c *hunkCollector, diffText string) error {
	var header HunkHeader
	seen := false
	for _, raw := range splitTextLines(diffText) {
		switch {
		case strings.HasPrefix(raw, "@@"):
			h, err := parseHunkHeader(strings.TrimSuffix(raw, "\n"))
			if err != nil {
				return err
			}
			header = h
			seen = true
			c.push(header, DiffLine{Content: lossyText(raw), Type: DiffLineHeader})
		case !seen:
			continue
		case strings.HasPrefix(raw, "+"):
			c.push(header, DiffLine{Content: lossyText(raw[1:]), Type: DiffLineAdd})
		case strings.HasPrefix(raw, "-"):
			c.push(header, DiffLine{Content: lossyText(raw[1:]), Type: DiffLineDelete})
		case strings.HasPrefix(raw, " "):
			c.push(header, DiffLine{Content: lossyText(raw[1:]), Type: DiffLineNone})
		default:
			c.push(header, DiffLine{Content: lossyText(raw), Type: DiffLineNone})
		}
	}
	return nil
}

// parseHunkHeader parses "@@ -oldStart,oldLines +newStart,newLines @@".
// A range without a count ("-3 +4") means a single line.
func parseHunkHeader(line string) (HunkHeader, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "@@" {
		return HunkHeader{}, fmt.Errorf("malformed hunk header: %q", line)
	}
	oldStart, oldLines, err := parseHunkRange(strings.TrimPrefix(fields[1], "-"))
	if err != nil {
		return HunkHeader{}, fmt.Errorf("malformed hunk header %q: %w", line, err)
	}
	newStart, newLines, err := parseHunkRange(strings.TrimPrefix(fields[2], "+"))
	if err != nil {
		return HunkHeader{}, fmt.Errorf("malformed hunk header %q: %w", line, err)
	}
	return HunkHeader{
		OldStart: oldStart,
		OldLines: oldLines,
		NewStart: newStart,
		NewLines: newLines,
	}, nil
}

func parseHunkRange(s string) (uint32, uint32, error) {
	start, count := s, "1"
	if i := strings.IndexByte(s, ','); i >= 0 {
		start, count = s[:i], s[i+1:]
	}
	st, err := strconv.ParseUint(start, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	ct, err := strconv.ParseUint(count, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(st), uint32(ct), nil
}

// splitTextLines splits text into lines keeping the trailing newline
// of every line; a final line without one is kept as-is.
func splitTextLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lossyText replaces invalid UTF-8 sequences so malformed content can
// never fail to render.
func lossyText(s string) string {
	return strings.ToValidUTF8(s, "�")
}
