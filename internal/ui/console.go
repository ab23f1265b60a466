package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/michelemendel/haintsec/internal/scan"
)

const bannerArt = `
 _           _       _
| |__   __ _(_)_ __ | |_ ___  ___  ___
| '_ \ / _' | | '_ \| __/ __|/ _ \/ __|
| | | | (_| | | | | | |_\__ \  __/ (__
|_| |_|\__,_|_|_| |_|\__|___/\___|\___|
`

// activity names used in progress lines, one per stage
var activities = map[scan.Stage]string{
	scan.StageSubdomains:      "EnumerateSubdomains",
	scan.StageVulnerabilities: "ProbeVulnerabilities",
	scan.StagePorts:           "ScanPorts",
	scan.StageTLS:             "CheckTLS",
	scan.StageSQL:             "TestSQLInjection",
}

var nouns = map[scan.Stage]string{
	scan.StageSubdomains:      "subdomains",
	scan.StageVulnerabilities: "vulnerabilities",
	scan.StagePorts:           "open ports",
	scan.StageTLS:             "TLS issues",
	scan.StageSQL:             "SQLMap lines",
}

var title = cases.Title(language.English, cases.NoLower)

// Activity returns the progress-line name of a stage.
func Activity(s scan.Stage) string {
	if a, ok := activities[s]; ok {
		return a
	}
	return string(s)
}

// Console writes progress output. It is safe for concurrent use; stages
// report from their own goroutines.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a Console writing to w. Colour is disabled when
// noColor is set or w is not a terminal.
func NewConsole(w io.Writer, noColor bool) *Console {
	if noColor || !isTerminal(w) || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return &Console{out: w}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// Banner prints the application banner.
func (c *Console) Banner(version string) {
	var b strings.Builder
	for _, line := range strings.Split(strings.Trim(bannerArt, "\n"), "\n") {
		b.WriteString(BannerStyle.Render(line))
		b.WriteByte('\n')
	}
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("  web vulnerability scan orchestrator v%s", version)))
	b.WriteByte('\n')
	c.println(b.String())
}

// Info prints a plain line.
func (c *Console) Info(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}

// Warn prints a highlighted warning.
func (c *Console) Warn(format string, args ...any) {
	c.println(WarningStyle.Render("[!] " + fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (c *Console) Error(format string, args ...any) {
	c.println(ErrorStyle.Render("[x] " + fmt.Sprintf(format, args...)))
}

// ToolStatus prints one preflight result.
func (c *Console) ToolStatus(tool, path string, found bool) {
	if found {
		c.println(SuccessStyle.Render(fmt.Sprintf("[+] %s: found (path: %s)", tool, path)))
		return
	}
	c.println(ErrorStyle.Render(fmt.Sprintf("[x] %s: NOT FOUND", tool)))
}

// StageStarted prints "<domain>: <Activity>: Starting...".
func (c *Console) StageStarted(domain string, s scan.Stage) {
	c.println(fmt.Sprintf("%s: %s: Starting...", domain, StageStyle.Render(Activity(s))))
}

// StageFinished prints the completion line of a stage.
func (c *Console) StageFinished(domain string, s scan.Summary) {
	c.println(StageLine(domain, s))
}

// StageLine formats the completion line of a stage.
func StageLine(domain string, s scan.Summary) string {
	head := fmt.Sprintf("%s: %s: ", domain, StageStyle.Render(Activity(s.Stage)))
	elapsed := MutedStyle.Render(fmt.Sprintf("(%s)", s.Elapsed.Round(time.Millisecond)))
	switch s.Status {
	case scan.StatusSuccess:
		return head + SuccessStyle.Render(fmt.Sprintf("Completed - found %d %s", s.Findings, nouns[s.Stage])) + " " + elapsed
	case scan.StatusEmpty:
		return head + SuccessStyle.Render(fmt.Sprintf("Completed - no %s found", nouns[s.Stage])) + " " + elapsed
	default:
		return head + ErrorStyle.Render(fmt.Sprintf("Failed - %s: %s", s.Reason, s.Detail)) + " " + elapsed
	}
}

// ToolOutput echoes one line of a tool's stdout.
func (c *Console) ToolOutput(s scan.Stage, line string) {
	c.println(MutedStyle.Render(fmt.Sprintf("  [%s] %s", Activity(s), line)))
}

// Summary prints one row per stage.
func (c *Console) Summary(rows []scan.Summary) {
	var b strings.Builder
	b.WriteString(BannerStyle.Render("=== Scan Summary ==="))
	b.WriteByte('\n')
	for _, r := range rows {
		status := SuccessStyle.Render(string(r.Status))
		if r.Status == scan.StatusFailed {
			status = ErrorStyle.Render(fmt.Sprintf("%s (%s)", r.Status, r.Reason))
		}
		fmt.Fprintf(&b, "%s %4d  %s\n", LabelStyle.Render(title.String(nouns[r.Stage])), r.Findings, status)
	}
	c.println(strings.TrimRight(b.String(), "\n"))
}

// Reports prints where the outputs were saved.
func (c *Console) Reports(document, export string) {
	if export == "" {
		c.println(SuccessStyle.Render("[*] Report saved as: " + document))
		return
	}
	c.println(SuccessStyle.Render(fmt.Sprintf("[*] Reports saved as: %s, %s", document, export)))
}

// Elapsed prints the total run time.
func (c *Console) Elapsed(d time.Duration) {
	c.println(SuccessStyle.Render(fmt.Sprintf("[*] Total execution time: %.2f seconds", d.Seconds())))
}
