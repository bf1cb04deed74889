package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/schaermu/cmksync/internal/gitrepo"
	"github.com/schaermu/cmksync/internal/sync"
)

const headingWidth = 60

// Console renders run progress and reads interactive input. It implements
// sync.Reporter and sync.Prompter.
type Console struct {
	out io.Writer
	in  *bufio.Reader

	heading func(a ...interface{}) string
	success func(a ...interface{}) string
	danger  func(a ...interface{}) string
	warn    func(a ...interface{}) string
	muted   func(a ...interface{}) string
}

// NewConsole creates a console writing to out and reading from in. Colors
// are disabled when out is not a terminal.
func NewConsole(out io.Writer, in io.Reader) *Console {
	if f, ok := out.(*os.File); ok && !isatty.IsTerminal(f.Fd()) {
		color.NoColor = true
	}
	return &Console{
		out:     out,
		in:      bufio.NewReader(in),
		heading: color.New(color.FgCyan, color.Bold).SprintFunc(),
		success: color.New(color.FgGreen).SprintFunc(),
		danger:  color.New(color.FgRed, color.Bold).SprintFunc(),
		warn:    color.New(color.FgYellow).SprintFunc(),
		muted:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

// Heading prints a ruled section heading.
func (c *Console) Heading(msg string) {
	rest := headingWidth - len(msg) - 4
	if rest < 0 {
		rest = 0
	}
	fmt.Fprintf(c.out, "\n%s %s %s\n", c.heading("──"), c.heading(msg), c.heading(strings.Repeat("─", rest)))
}

// CommitInfo prints author, age and subject of the commit being synced.
func (c *Console) CommitInfo(commit *gitrepo.Commit) {
	c.Heading("Last commit")
	fmt.Fprintf(c.out, "  %s (%s)\n", commit.Author, humanize.Time(commit.Time))
	fmt.Fprintf(c.out, "  %s\n", c.muted(commit.Subject))
}

// Classification prints the eligible and ineligible paths of the commit as
// one table, marking files the invoking user authored.
func (c *Console) Classification(eligible []sync.ClassifiedPath, ineligible []string) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(c.out)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateHeader = false

	for _, p := range eligible {
		marker := ""
		if p.Authored {
			marker = c.muted("(yours)")
		}
		tbl.AppendRow(table.Row{c.success("✓"), p.Path, marker})
	}
	for _, p := range ineligible {
		tbl.AppendRow(table.Row{c.warn("✗"), c.warn(p), c.muted("not syncable")})
	}
	tbl.Render()
}

// FileResult prints the outcome of one copy operation.
func (c *Console) FileResult(dst string, err error) {
	if err != nil {
		fmt.Fprintf(c.out, "  %s %s\n", c.danger("✗"), dst)
		fmt.Fprintf(c.out, "    %s\n", c.danger(err.Error()))
		return
	}
	fmt.Fprintf(c.out, "  %s %s\n", c.success("✓"), dst)
}

// ActionResult prints the outcome of one restart action with its captured
// command output.
func (c *Console) ActionResult(label, output string, err error) {
	c.Heading(label)
	if err != nil {
		fmt.Fprintf(c.out, "  %s\n", c.danger("ERROR: "+err.Error()))
	}
	if output = strings.TrimSpace(output); output != "" {
		for _, line := range strings.Split(output, "\n") {
			fmt.Fprintf(c.out, "  %s\n", c.muted(line))
		}
	}
}

// Info prints a plain message.
func (c *Console) Info(msg string) {
	fmt.Fprintf(c.out, "  %s\n", msg)
}

// Warn prints a warning message.
func (c *Console) Warn(msg string) {
	fmt.Fprintf(c.out, "  %s\n", c.warn(msg))
}

// Success prints a success message.
func (c *Console) Success(msg string) {
	fmt.Fprintf(c.out, "\n  %s\n", c.success(msg))
}

// Confirm asks a yes/no question defaulting to yes. An empty line counts
// as confirmation.
func (c *Console) Confirm(msg string) (bool, error) {
	fmt.Fprintf(c.out, "\n  %s [y/n] (y): ", msg)
	line, err := c.readLine()
	if err != nil {
		return false, err
	}
	return line == "" || line == "y", nil
}

// SelectSite shows a numbered site menu and reads the user's choice. The
// preselected site, when installed, becomes the default. Entering "q"
// quits; ok is false in that case.
func (c *Console) SelectSite(sites []string, preselected string) (string, bool, error) {
	c.Heading("Select a site")
	fmt.Fprintf(c.out, "  Available sites:\n")

	defaultChoice := 1
	for i, site := range sites {
		line := fmt.Sprintf("  %-3d%s", i+1, site)
		if site == preselected {
			defaultChoice = i + 1
			fmt.Fprintf(c.out, "%s\n", line)
		} else {
			fmt.Fprintf(c.out, "%s\n", c.muted(line))
		}
	}

	for {
		fmt.Fprintf(c.out, "\n  Select [1-%d, q] (%d): ", len(sites), defaultChoice)
		line, err := c.readLine()
		if err != nil {
			return "", false, err
		}
		switch {
		case line == "q":
			return "", false, nil
		case line == "":
			return sites[defaultChoice-1], true, nil
		default:
			choice, err := strconv.Atoi(line)
			if err == nil && choice >= 1 && choice <= len(sites) {
				return sites[choice-1], true, nil
			}
			fmt.Fprintf(c.out, "  %s\n", c.warn("Invalid selection."))
		}
	}
}

// readLine reads one trimmed, lowercased input line.
func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}
