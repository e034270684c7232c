// Package tui renders registryflow's console output: pass reports, run
// summaries and progress bars. Machine-readable logs go to stderr through
// zap; everything here is for people and goes to the writer it is given.
package tui

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	rferrors "github.com/registryflow/registryflow/pkg/errors"
	"github.com/registryflow/registryflow/pkg/pipeline"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

const rule = "  ─────────────────────────────────────"

// Printer writes styled output to w.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Header prints the run banner.
func (p *Printer) Header(version, input string, size int64, strategy pipeline.Strategy) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, titleStyle.Render("  REGISTRYFLOW")+mutedStyle.Render(" "+version))
	fmt.Fprintln(p.w, mutedStyle.Render(rule))
	fmt.Fprintf(p.w, "  %s %s\n", mutedStyle.Render("Input:"), codeStyle.Render(input))
	fmt.Fprintf(p.w, "  %s %s\n", mutedStyle.Render("Size:"), titleStyle.Render(formatBytes(size)))
	fmt.Fprintf(p.w, "  %s %s\n", mutedStyle.Render("Strategy:"), titleStyle.Render(string(strategy)))
	fmt.Fprintln(p.w, mutedStyle.Render(rule))
}

// PassResult prints the report of one pass.
func (p *Printer) PassResult(r pipeline.PassResult) {
	name := strings.ToUpper(string(r.Strategy))
	fmt.Fprintln(p.w)

	if r.Err != nil {
		fmt.Fprintln(p.w, accentStyle.Render("  ✗ "+name+" FAILED"))
		fmt.Fprintf(p.w, "    %s\n", accentStyle.Render(r.Err.Error()))
	} else {
		fmt.Fprintln(p.w, successStyle.Render("  ✓ "+name))
	}

	rep := r.Report
	fmt.Fprintf(p.w, "    %s %s   %s %s   %s %s   %s %s\n",
		mutedStyle.Render("rows:"), titleStyle.Render(formatNumber(int64(rep.Total))),
		mutedStyle.Render("active:"), titleStyle.Render(formatNumber(int64(rep.Active))),
		mutedStyle.Render("classes:"), titleStyle.Render(fmt.Sprint(rep.Classes)),
		mutedStyle.Render("cities:"), titleStyle.Render(fmt.Sprint(rep.Cities)),
	)
	fmt.Fprintf(p.w, "    %s %s\n", mutedStyle.Render("time:"), titleStyle.Render(formatDuration(r.Elapsed)))

	for _, a := range r.Artifacts {
		fmt.Fprintf(p.w, "    %s %s\n", mutedStyle.Render("→"), a)
	}

	if rep.Errors > 0 {
		fmt.Fprintf(p.w, "    %s\n", accentStyle.Render(fmt.Sprintf("%d row errors", rep.Errors)))
		for _, msg := range rep.Messages {
			fmt.Fprintf(p.w, "      %s\n", mutedStyle.Render(msg))
		}
		if more := rep.More(); more != "" {
			fmt.Fprintf(p.w, "      %s\n", mutedStyle.Render(more))
		}
		if r.ErrorLog != "" {
			fmt.Fprintf(p.w, "      %s %s\n", mutedStyle.Render("details:"), filepath.Base(r.ErrorLog))
		}
	}
}

// Summary prints every pass followed by the overall outcome.
func (p *Printer) Summary(s *pipeline.Summary) {
	for _, r := range s.Passes {
		p.PassResult(r)
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, mutedStyle.Render(rule))
	failed := s.Failed()
	if len(failed) == 0 {
		fmt.Fprintf(p.w, "  %s %s\n",
			successStyle.Render(fmt.Sprintf("✓ %d pass(es) complete", len(s.Passes))),
			mutedStyle.Render("in "+formatDuration(s.Elapsed)))
	} else {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = string(f.Strategy)
		}
		fmt.Fprintf(p.w, "  %s %s\n",
			accentStyle.Render(fmt.Sprintf("✗ %d of %d pass(es) failed:", len(failed), len(s.Passes))),
			strings.Join(names, ", "))
	}
	fmt.Fprintln(p.w)
}

// Error prints a fatal error.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, accentStyle.Render("  ✗ "+err.Error()))
}

// Stack prints the capture site of every registry error in err's chain.
func (p *Printer) Stack(err error) {
	for err != nil {
		var rErr *rferrors.RegistryError
		if !errors.As(err, &rErr) {
			return
		}
		if len(rErr.StackTrace) > 0 {
			fmt.Fprintln(p.w, mutedStyle.Render(fmt.Sprintf("  [%s] %s", rErr.Code, rErr.Message)))
			fmt.Fprint(p.w, rErr.FormatStack())
		}
		err = rErr.Cause
	}
}

// Info prints a muted status line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, mutedStyle.Render("  "+msg))
}

// Table prints label/value rows aligned in two columns.
func (p *Printer) Table(title string, rows [][2]string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, accentStyle.Render("▸ "+strings.ToUpper(title)))
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	for _, r := range rows {
		fmt.Fprintf(p.w, "  %s %s\n", mutedStyle.Render(fmt.Sprintf("%-*s", width, r[0])), titleStyle.Render(r[1]))
	}
}

// ProgressReporter returns a pipeline progress callback that drives one
// bar per pass over the input's byte size.
func ProgressReporter(w io.Writer, inputSize int64) func(pipeline.Progress) {
	var (
		bar     *progressbar.ProgressBar
		current pipeline.Strategy
	)
	return func(pr pipeline.Progress) {
		if bar == nil || pr.Strategy != current {
			current = pr.Strategy
			bar = NewProgressBar(w, inputSize, string(pr.Strategy))
		}
		if inputSize > 0 {
			bar.Set64(pr.BytesRead)
		}
		if pr.Done {
			bar.Finish()
		}
	}
}

// NewProgressBar creates a byte-based progress bar.
func NewProgressBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	if total <= 0 {
		total = -1
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("  "+description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
