package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ANSI escape codes for terminal formatting.
const (
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	dim    = "\033[2m"
	reset  = "\033[0m"
)

// Style controls terminal decoration. The zero value prints plain text.
type Style struct {
	Color bool
}

func (s Style) wrap(code, text string) string {
	if !s.Color {
		return text
	}
	return code + text + reset
}

// FormatScan formats a ScanReport as a table of track files, newest first.
func FormatScan(r *ScanReport, now time.Time, st Style) string {
	var b strings.Builder

	b.WriteString(st.wrap(bold, "GPS Device Scan") + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	b.WriteString(fmt.Sprintf("Device:   %s\n", r.Mount))
	b.WriteString(fmt.Sprintf("Filter:   %s\n", r.Filter))
	b.WriteString(fmt.Sprintf("Selected: %d of %d GPX file(s)\n\n", r.Selected, r.Total))

	if len(r.Entries) == 0 {
		b.WriteString("No GPX files on the device.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-40s %-16s %10s\n", "File", "Modified", "Size"))
	b.WriteString(strings.Repeat("-", 72) + "\n")

	var selectedBytes uint64
	for _, e := range r.Entries {
		name := e.Rel
		if len(name) > 40 {
			name = "..." + name[len(name)-37:]
		}
		line := fmt.Sprintf("%-40s %-16s %10s", name,
			humanize.RelTime(e.ModTime, now, "ago", "from now"),
			humanize.IBytes(uint64(e.Size)))
		if e.Selected {
			selectedBytes += uint64(e.Size)
			b.WriteString(st.wrap(green, "* "+line) + "\n")
		} else {
			b.WriteString(st.wrap(dim, "  "+line) + "\n")
		}
	}
	b.WriteString(fmt.Sprintf("\n%s selected\n", humanize.IBytes(selectedBytes)))

	return b.String()
}

// FormatHistory formats recent transfers as a terminal table.
func FormatHistory(r *HistoryReport, now time.Time, st Style) string {
	var b strings.Builder

	b.WriteString(st.wrap(bold, "Transfer History") + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	b.WriteString(fmt.Sprintf("%-12s %s\n", "Transfers:", humanize.Comma(r.Total)))
	b.WriteString(fmt.Sprintf("%-12s %s\n\n", "Journal:", humanize.IBytes(uint64(r.DBSizeBytes))))

	if len(r.Transfers) == 0 {
		b.WriteString("No transfers recorded.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%-16s %-9s %-12s %-22s %7s %9s  %s\n",
		"When", "Command", "Strategy", "Outcome", "Files", "Response", "Message"))
	b.WriteString(strings.Repeat("-", 100) + "\n")

	for _, t := range r.Transfers {
		files := ""
		if t.TotalFiles > 0 {
			files = fmt.Sprintf("%d/%d", t.SelectedFiles, t.TotalFiles)
		}
		msg := t.Message
		if r := []rune(msg); len(r) > 40 {
			msg = string(r[:37]) + "..."
		}
		b.WriteString(fmt.Sprintf("%-16s %-9s %-12s %s %7s %9s  %s\n",
			humanize.RelTime(t.CreatedAt, now, "ago", "from now"),
			t.Cmd, dash(t.Strategy),
			st.wrap(colorForOutcome(t.Outcome), fmt.Sprintf("%-22s", t.Outcome)),
			files, humanize.IBytes(uint64(t.ResponseBytes)),
			oneLine(msg)))
	}

	return b.String()
}

// FormatJSON marshals any value as indented JSON.
func FormatJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// colorForOutcome returns an ANSI color code for a transfer outcome:
// ok = green, missing device = yellow, anything else = red.
func colorForOutcome(outcome string) string {
	switch outcome {
	case "ok":
		return green
	case "error-no-device":
		return yellow
	default:
		return red
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
