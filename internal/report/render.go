package report

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Mode selects the rendering format.
type Mode int

const (
	// ModeASCII renders fixed-width terminal tables.
	ModeASCII Mode = iota
	// ModeMarkdown renders GitHub-flavoured Markdown tables.
	ModeMarkdown
)

// ParseMode maps a format flag value onto a Mode.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "table", "ascii":
		return ModeASCII, true
	case "markdown", "md":
		return ModeMarkdown, true
	}
	return ModeASCII, false
}

// Render draws the rows as a table, one line per build. Cause names and bug
// URLs stack inside their cells, slot-aligned.
func Render(rows []Row, mode Mode) string {
	w := newWriter(mode)
	w.AppendHeader(table.Row{"Job Name", "Build", "Status", "Cause", "Bug URL(s)", "Build URL", "Build Info"})
	for _, row := range rows {
		w.AppendRow(table.Row{
			row.Job,
			row.Number,
			string(row.Status),
			strings.Join(row.Causes, "\n"),
			strings.Join(row.BugURLs, "\n"),
			row.BuildURL,
			row.DisplayName,
		})
	}
	return render(w, mode)
}

// RenderSummary draws the cause-frequency summary with the unclassified
// count as the footer.
func RenderSummary(sum Summary, mode Mode) string {
	w := newWriter(mode)
	w.AppendHeader(table.Row{"Cause", "Builds", "Bug URL"})
	for _, c := range sum.Causes {
		w.AppendRow(table.Row{c.Name, c.Count, c.BugURL})
	}
	w.AppendFooter(table.Row{"unclassified", sum.Unclassified, ""})
	return render(w, mode)
}

func newWriter(mode Mode) table.Writer {
	w := table.NewWriter()
	if mode == ModeASCII {
		w.SetStyle(table.StyleLight)
	}
	return w
}

func render(w table.Writer, mode Mode) string {
	if mode == ModeMarkdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}
