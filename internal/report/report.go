// Package report renders stats results for people and for other tools.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/joescharf/prstats/internal/output"
	"github.com/joescharf/prstats/internal/stats"
)

// Formats lists the accepted values of the --format flag.
var Formats = []string{"table", "json", "csv", "markdown"}

// Render writes res to ui.Out in the given format.
func Render(ui *output.UI, res *stats.Result, format string) error {
	switch format {
	case "", "table":
		return renderTable(ui, res)
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "csv":
		return renderCSV(ui, res)
	case "markdown":
		renderMarkdown(ui, res)
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: table, json, csv, markdown)", format)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatHours(h *float64) string {
	if h == nil {
		return ""
	}
	return strconv.FormatFloat(*h, 'f', 2, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func renderTable(ui *output.UI, res *stats.Result) error {
	ui.Heading("PR Review Times")
	if len(res.PullRequests) == 0 {
		ui.Info("No pull requests matched.")
	} else {
		table := ui.Table([]string{"PR", "Title", "State", "Created", "First Review", "Hours"})
		for _, m := range res.PullRequests {
			table.Append([]string{
				fmt.Sprintf("#%d", m.Number),
				m.Title,
				output.StatusColor(m.State),
				formatTime(&m.CreatedAt),
				orDash(formatTime(m.FirstReviewAt)),
				output.LatencyColor(m.TimeToFirstReviewHours),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	fmt.Fprintln(ui.Out)
	ui.Heading("Reviewer Statistics")
	if len(res.Reviewers) == 0 {
		ui.Info("No submitted reviews.")
		return nil
	}
	table := ui.Table([]string{"Reviewer", "Average", "Fastest", "Slowest", "Reviews"})
	for _, r := range res.Reviewers {
		table.Append([]string{
			r.Reviewer,
			output.LatencyColor(&r.AverageHours),
			output.LatencyColor(&r.FastestHours),
			output.LatencyColor(&r.SlowestHours),
			strconv.Itoa(r.Count),
		})
	}
	return table.Render()
}

func renderCSV(ui *output.UI, res *stats.Result) error {
	w := csv.NewWriter(ui.Out)
	w.Write([]string{"PR", "Title", "State", "Created", "FirstReview", "FirstReviewer", "Hours", "Reviews", "Pending"})
	for _, m := range res.PullRequests {
		w.Write([]string{
			strconv.Itoa(m.Number), m.Title, m.State, formatTime(&m.CreatedAt),
			formatTime(m.FirstReviewAt), m.FirstReviewer, formatHours(m.TimeToFirstReviewHours),
			strconv.Itoa(m.ReviewCount), strconv.Itoa(m.PendingCount),
		})
	}
	w.Write([]string{})
	w.Write([]string{"Reviewer", "Average", "Fastest", "Slowest", "Reviews"})
	for _, r := range res.Reviewers {
		w.Write([]string{
			r.Reviewer, formatHours(&r.AverageHours), formatHours(&r.FastestHours),
			formatHours(&r.SlowestHours), strconv.Itoa(r.Count),
		})
	}
	w.Flush()
	return w.Error()
}

func renderMarkdown(ui *output.UI, res *stats.Result) {
	fmt.Fprintln(ui.Out, "# PR Review Times")
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, "| PR | Title | Created | First Review | Hours |")
	fmt.Fprintln(ui.Out, "|----|-------|---------|--------------|-------|")
	for _, m := range res.PullRequests {
		fmt.Fprintf(ui.Out, "| #%d | %s | %s | %s | %s |\n", m.Number, m.Title,
			formatTime(&m.CreatedAt), orDash(formatTime(m.FirstReviewAt)), orDash(formatHours(m.TimeToFirstReviewHours)))
	}

	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, "# Reviewer Statistics")
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, "| Reviewer | Average | Fastest | Slowest | Reviews |")
	fmt.Fprintln(ui.Out, "|----------|---------|---------|---------|---------|")
	for _, r := range res.Reviewers {
		fmt.Fprintf(ui.Out, "| %s | %.2f | %.2f | %.2f | %d |\n", r.Reviewer, r.AverageHours, r.FastestHours, r.SlowestHours, r.Count)
	}
}
