package acceptor

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/qa-infra/scenario-acceptor/history"
	"github.com/qa-infra/scenario-acceptor/runner"
	"github.com/qa-infra/scenario-acceptor/types"
)

// printSummary renders the run results and the flakiness report as
// console tables.
func (a *Acceptor) printSummary(result *runner.RunResult, scores []history.FlakinessScore) {
	printResultsTable(result)
	if len(scores) > 0 {
		printFlakinessTable(scores)
	}
}

func printResultsTable(result *runner.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Scenario Acceptance Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Units", "Passed", "Failed", "Errored", "Timeout", "Cancelled", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Units", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Errored", Align: text.AlignRight},
		{Name: "Timeout", Align: text.AlignRight},
		{Name: "Cancelled", Align: text.AlignRight},
	})

	// Stable ordering for the table; completion order is meaningless
	groupIDs := make([]string, 0, len(result.Groups))
	for id := range result.Groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Strings(groupIDs)

	for _, id := range groupIDs {
		group := result.Groups[id]
		t.AppendRow(table.Row{
			"Group",
			group.ID,
			formatDuration(group.Duration),
			group.Stats.Total,
			group.Stats.Passed,
			group.Stats.Failed,
			group.Stats.Errored,
			group.Stats.TimedOut,
			group.Stats.Cancelled,
			statusString(group.Status),
		})

		for i, res := range group.Results {
			prefix := "├─"
			if i == len(group.Results)-1 {
				prefix = "└─"
			}
			t.AppendRow(table.Row{
				"",
				fmt.Sprintf("%s %s", prefix, res.UnitID),
				formatDuration(res.Duration),
				1,
				boolToInt(res.Status == types.StatusPassed),
				boolToInt(res.Status == types.StatusFailed),
				boolToInt(res.Status == types.StatusError),
				boolToInt(res.Status == types.StatusTimeout),
				boolToInt(res.Status == types.StatusCancelled),
				statusString(res.Status),
			})
		}
	}

	t.AppendFooter(table.Row{
		"Run", result.RunID,
		formatDuration(result.Duration),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Stats.Errored,
		result.Stats.TimedOut,
		result.Stats.Cancelled,
		statusString(result.Status),
	})
	t.Render()
}

func printFlakinessTable(scores []history.FlakinessScore) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Stability Report")

	t.AppendHeader(table.Row{"Unit", "Instability", "Samples", "Classification"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Unit", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Instability", Align: text.AlignRight},
		{Name: "Samples", Align: text.AlignRight},
	})

	for _, score := range scores {
		t.AppendRow(table.Row{
			score.TestID,
			fmt.Sprintf("%.2f", score.InstabilityRatio),
			score.SampleSize,
			string(score.Classification),
		})
	}
	t.Render()
}

func statusString(status types.Status) string {
	switch status {
	case types.StatusPassed:
		return "✓ pass"
	case types.StatusFailed:
		return "✗ fail"
	case types.StatusError:
		return "! error"
	case types.StatusTimeout:
		return "⏱ timeout"
	case types.StatusCancelled:
		return "- cancelled"
	default:
		return string(status)
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
