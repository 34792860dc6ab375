package benchmark

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Render writes a comparison table for res followed by a coloured verdict line.
func Render(w io.Writer, res Result) error {
	title := fmt.Sprintf("%s benchmark: %d requests", res.Mode, res.RequestCount)
	if res.PoolSize > 0 {
		title += fmt.Sprintf(", pool size %d", res.PoolSize)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("", "strategy", "total ms", "avg ms", "p50 ms", "p95 ms", "p99 ms", "max ms").
		Row(append([]string{"A", res.StrategyA, fmt.Sprint(res.TotalTimeMsA), fmt.Sprint(res.AvgTimeMsA)}, latencyCells(res.LatencyA)...)...).
		Row(append([]string{"B", res.StrategyB, fmt.Sprint(res.TotalTimeMsB), fmt.Sprint(res.AvgTimeMsB)}, latencyCells(res.LatencyB)...)...)

	if _, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render(title), t.String()); err != nil {
		return err
	}

	verdict := color.New(color.FgGreen)
	if res.ImprovementPercent < 0 {
		verdict = color.New(color.FgRed)
	}
	_, err := verdict.Fprintf(w, "Improvement of %s over %s: %.2f%%\n", res.StrategyB, res.StrategyA, res.ImprovementPercent)
	return err
}

func latencyCells(l LatencyStats) []string {
	return []string{
		fmt.Sprintf("%.1f", l.P50Ms),
		fmt.Sprintf("%.1f", l.P95Ms),
		fmt.Sprintf("%.1f", l.P99Ms),
		fmt.Sprintf("%.1f", l.MaxMs),
	}
}
