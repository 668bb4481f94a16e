package cmd

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/MCord/gitui/internal/buildinfo"
	"github.com/MCord/gitui/internal/git"
	"github.com/MCord/gitui/internal/watch"
)

func Run() error {
	return run(os.Args[1:], os.Stdout)
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("gitui", flag.ContinueOnError)
	repoPath := fs.String("C", ".", "repository path (or any directory inside it)")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintln(out, buildinfo.Version())
		return nil
	}
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: gitui [-C path] [-verbose] <diff|files|status|watch> [args]")
	}
	switch rest[0] {
	case "diff":
		sub, staged, err := stagedFlagSet("gitui diff", rest[1:])
		if err != nil {
			if err == flag.ErrHelp {
				return nil
			}
			return err
		}
		if sub.NArg() != 1 {
			return fmt.Errorf("usage: gitui diff [-staged] <path>")
		}
		return printDiff(out, *repoPath, sub.Arg(0), *staged)
	case "files":
		if len(rest) != 2 {
			return fmt.Errorf("usage: gitui files <commit>")
		}
		return printCommitFiles(out, *repoPath, rest[1])
	case "status":
		sub, staged, err := stagedFlagSet("gitui status", rest[1:])
		if err != nil {
			if err == flag.ErrHelp {
				return nil
			}
			return err
		}
		if sub.NArg() != 0 {
			return fmt.Errorf("usage: gitui status [-staged]")
		}
		return printStatus(out, *repoPath, *staged)
	case "watch":
		sub, staged, err := stagedFlagSet("gitui watch", rest[1:])
		if err != nil {
			if err == flag.ErrHelp {
				return nil
			}
			return err
		}
		if sub.NArg() != 0 {
			return fmt.Errorf("usage: gitui watch [-staged]")
		}
		return watchStatus(out, *repoPath, *staged)
	default:
		return fmt.Errorf("unknown command: %s", rest[0])
	}
}

// stagedFlagSet parses a subcommand's own arguments, which the outer
// flag set leaves untouched once it meets the subcommand name.
func stagedFlagSet(name string, args []string) (*flag.FlagSet, *bool, error) {
	sub := flag.NewFlagSet(name, flag.ContinueOnError)
	staged := sub.Bool("staged", false, "use the index side instead of the working tree")
	if err := sub.Parse(args); err != nil {
		return nil, nil, err
	}
	return sub, staged, nil
}

func printDiff(out io.Writer, repoPath, path string, staged bool) error {
	fileDiff, err := git.GetDiff(repoPath, path, staged)
	if err != nil {
		return err
	}
	last := ""
	for _, hunk := range fileDiff.Hunks {
		for _, line := range hunk.Lines {
			fmt.Fprintf(out, "%s%s", lineMarker(line.Type), line.Content)
			last = line.Content
		}
	}
	if last != "" && !strings.HasSuffix(last, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

func lineMarker(t git.DiffLineType) string {
	switch t {
	case git.DiffLineAdd:
		return "+"
	case git.DiffLineDelete:
		return "-"
	case git.DiffLineNone:
		return " "
	default:
		// a header line already carries its @@ text
		return ""
	}
}

func printCommitFiles(out io.Writer, repoPath, commit string) error {
	id, err := git.ParseCommitID(commit)
	if err != nil {
		return err
	}
	items, err := git.GetCommitFiles(repoPath, id)
	if err != nil {
		return err
	}
	printStatusItems(out, items)
	return nil
}

func printStatus(out io.Writer, repoPath string, staged bool) error {
	statusType := git.StatusWorkingDir
	if staged {
		statusType = git.StatusStage
	}
	items, err := git.GetStatus(repoPath, statusType)
	if err != nil {
		return err
	}
	printStatusItems(out, items)
	return nil
}

func printStatusItems(out io.Writer, items []git.StatusItem) {
	for _, item := range items {
		fmt.Fprintf(out, "%-10s  %s\n", item.Status, item.Path)
	}
}

func watchStatus(out io.Writer, repoPath string, staged bool) error {
	if err := printStatus(out, repoPath, staged); err != nil {
		return err
	}
	w, err := watch.New(repoPath)
	if err != nil {
		return err
	}
	defer w.Close()
	for range w.Changes {
		fmt.Fprintln(out)
		if err := printStatus(out, repoPath, staged); err != nil {
			return err
		}
	}
	return nil
}
