// Package report renders runs and cross-run history for humans: a Markdown
// report suitable for review, and terminal tables for the status commands.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ingestlab/ingest-harness/internal/schema"
)

var (
	passMark = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	skipMark = color.New(color.FgYellow).Sprint("⊘")
)

// Symbol returns the one-character status marker used across all renderers.
func Symbol(status schema.Status) string {
	switch status {
	case schema.StatusPassed:
		return passMark
	case schema.StatusSkipped, schema.StatusCancelled:
		return skipMark
	default:
		return failMark
	}
}

// plainSymbol is the uncolored variant used in the Markdown report, which
// is written to disk and read outside a terminal.
func plainSymbol(status schema.Status) string {
	switch status {
	case schema.StatusPassed:
		return "✓"
	case schema.StatusSkipped, schema.StatusCancelled:
		return "⊘"
	default:
		return "✗"
	}
}

// RenderMarkdown builds the integration report for one sealed run: run
// metadata, a per-spec summary line, a failed-tests section with
// expected/actual/reasoning per failed check, and a validation-details
// appendix carrying the reasoning strings of passing checks so reviewers
// can see what was examined.
func RenderMarkdown(run *schema.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Integration Report — %s\n\n", run.ID)
	fmt.Fprintf(&b, "- Started: %s\n", run.StartedAt.Format(time.RFC3339))
	if !run.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "- Completed: %s\n", run.CompletedAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "- Wall clock: %s\n", run.CompletedAt.Sub(run.StartedAt).Round(time.Second))
	}
	if sel := describeSelection(run.Selection); sel != "" {
		fmt.Fprintf(&b, "- Selection: %s\n", sel)
	}
	s := run.Summary
	fmt.Fprintf(&b, "- Totals: %d run, %d passed, %d failed, %d skipped\n", s.Total, s.Passed, s.Failed, s.Skipped)
	if s.SemanticRequired > 0 {
		fmt.Fprintf(&b, "- Semantic judging: %d required, %d completed\n", s.SemanticRequired, s.SemanticCompleted)
	}
	b.WriteString("\n## Results\n\n")

	for _, res := range run.OrderedResults() {
		fmt.Fprintf(&b, "- %s `%s` (%s)", plainSymbol(res.Status), res.TestID, res.Duration.Round(time.Millisecond))
		if res.Status != schema.StatusPassed && res.Status != schema.StatusFailed {
			fmt.Fprintf(&b, " — %s", res.Status)
			if res.Reason != "" {
				fmt.Fprintf(&b, ": %s", res.Reason)
			}
		}
		b.WriteString("\n")
	}

	if failed := failedResults(run); len(failed) > 0 {
		b.WriteString("\n## Failed tests\n")
		for _, res := range failed {
			fmt.Fprintf(&b, "\n### %s (%s)\n\n", res.TestID, res.Status)
			if res.Reason != "" {
				fmt.Fprintf(&b, "%s\n\n", res.Reason)
			}
			for _, c := range res.Checks {
				if c.Passed {
					continue
				}
				fmt.Fprintf(&b, "- **%s**\n", c.Name)
				if c.Expected != "" {
					fmt.Fprintf(&b, "  - expected: `%s`\n", c.Expected)
				}
				if c.Actual != "" {
					fmt.Fprintf(&b, "  - actual: `%s`\n", c.Actual)
				}
				fmt.Fprintf(&b, "  - %s\n", c.Reasoning)
			}
		}
	}

	if passed := passedResults(run); len(passed) > 0 {
		b.WriteString("\n## Validation details (passed tests)\n")
		for _, res := range passed {
			fmt.Fprintf(&b, "\n### %s\n\n", res.TestID)
			for _, c := range res.Checks {
				fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Reasoning)
			}
			if res.Semantic != nil {
				fmt.Fprintf(&b, "- semantic: confidence %d — %s\n", res.Semantic.Confidence, res.Semantic.Reasoning)
			}
		}
	}

	b.WriteString("\nVault artifacts created by this run are not cleaned up automatically; " +
		"grep the vault for the `[TEST-` filename prefix to find them.\n")
	return b.String()
}

func describeSelection(sel schema.Selection) string {
	var parts []string
	if sel.Suite != "" {
		parts = append(parts, "suite="+sel.Suite)
	}
	if sel.ID != "" {
		parts = append(parts, "id="+sel.ID)
	}
	if sel.Group != "" {
		parts = append(parts, "group="+sel.Group)
	}
	if sel.Filter != "" {
		parts = append(parts, "filter="+sel.Filter)
	}
	return strings.Join(parts, " ")
}

func failedResults(run *schema.Run) []schema.TestResult {
	var out []schema.TestResult
	for _, res := range run.OrderedResults() {
		switch res.Status {
		case schema.StatusFailed, schema.StatusTimeout, schema.StatusError:
			out = append(out, res)
		}
	}
	return out
}

func passedResults(run *schema.Run) []schema.TestResult {
	var out []schema.TestResult
	for _, res := range run.OrderedResults() {
		if res.Status == schema.StatusPassed {
			out = append(out, res)
		}
	}
	return out
}

// RenderRunTable renders one run as a terminal table for `test status`.
func RenderRunTable(run *schema.Run) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(run.ID)
	t.AppendHeader(table.Row{"", "Test", "Status", "Duration", "Detail"})
	for _, res := range run.OrderedResults() {
		detail := res.Reason
		if detail == "" && res.Semantic != nil {
			detail = fmt.Sprintf("semantic confidence %d", res.Semantic.Confidence)
		}
		t.AppendRow(table.Row{
			Symbol(res.Status), res.TestID, string(res.Status),
			res.Duration.Round(time.Millisecond).String(), detail,
		})
	}
	s := run.Summary
	t.AppendFooter(table.Row{"", fmt.Sprintf("total %d", s.Total),
		fmt.Sprintf("%d✓ %d✗ %d⊘", s.Passed, s.Failed, s.Skipped), "", ""})
	return t.Render()
}

// RenderRunsTable renders the run index for `test runs`, newest first.
func RenderRunsTable(runs []*schema.Run) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Total", "Passed", "Failed", "Skipped"})
	for _, run := range runs {
		s := run.Summary
		t.AppendRow(table.Row{run.ID, run.StartedAt.Format("2006-01-02 15:04"), s.Total, s.Passed, s.Failed, s.Skipped})
	}
	return t.Render()
}

// RenderHistoryTable renders the aggregate history grouped by the category
// segment of each test id, for `test history` without an explicit test.
func RenderHistoryTable(h *schema.History) string {
	byCategory := map[string][]*schema.TestHistory{}
	for _, th := range h.Tests {
		c := categoryOf(th.TestID)
		byCategory[c] = append(byCategory[c], th)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Test", "Runs", "Pass rate", "Avg duration", "Trend"})
	for _, c := range categories {
		tests := byCategory[c]
		sort.Slice(tests, func(i, j int) bool { return tests[i].TestID < tests[j].TestID })
		for _, th := range tests {
			t.AppendRow(historyRow(th))
		}
		t.AppendSeparator()
	}
	return t.Render()
}

// RenderTestHistory renders one test's rolling series for `test history <id>`.
func RenderTestHistory(th *schema.TestHistory) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s — %s, pass rate %.0f%%", th.TestID, th.Trend, th.PassRate*100))
	t.AppendHeader(table.Row{"", "Run", "When", "Status", "Duration"})
	for i := len(th.Entries) - 1; i >= 0; i-- {
		e := th.Entries[i]
		t.AppendRow(table.Row{
			Symbol(e.Status), e.RunID, e.Timestamp.Format("2006-01-02 15:04"),
			string(e.Status), e.Duration.Round(time.Millisecond).String(),
		})
	}
	return t.Render()
}

func historyRow(th *schema.TestHistory) table.Row {
	trend := string(th.Trend)
	switch th.Trend {
	case schema.TrendImproving:
		trend = color.GreenString(trend)
	case schema.TrendDegrading:
		trend = color.RedString(trend)
	case schema.TrendFlaky:
		trend = color.YellowString(trend)
	}
	return table.Row{
		th.TestID, len(th.Entries),
		fmt.Sprintf("%.0f%%", th.PassRate*100),
		th.AvgDuration.Round(time.Millisecond).String(),
		trend,
	}
}

func categoryOf(testID string) string {
	parts := strings.Split(testID, "-")
	if len(parts) < 2 {
		return "other"
	}
	return strings.ToLower(parts[1])
}
