package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"crossmarket/core/analysis"
)

const tableWidth = 96

// WriteTable prints up to limit rows as a boxed terminal table followed by the run summary.
// limit <= 0 prints every row.
func WriteTable(w io.Writer, doc Document, limit int) {
	rows := doc.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	rule := func(left, right string) {
		fmt.Fprint(w, left)
		for i := 0; i < tableWidth-2; i++ {
			fmt.Fprint(w, "─")
		}
		fmt.Fprintln(w, right)
	}

	rule("┌", "┐")
	fmt.Fprintf(w, "│ %-92s │\n", "CROSS-MARKET OPPORTUNITIES")
	rule("├", "┤")
	fmt.Fprintf(w, "│ %-12s %-24s %-8s %-11s %9s %7s %7s %7s │\n",
		"ITEM", "TITLE", "ROUTE", "CHANNEL", "PROFIT", "ROI%", "SCORE", "ACTION")
	for _, r := range rows {
		profit, _ := r.Profit.Float64()
		fmt.Fprintf(w, "│ %-12s %-24s %-8s %-11s %9.2f %7.1f %7.1f %7s │\n",
			truncate(r.ItemID, 12),
			truncate(r.Title, 24),
			r.Route,
			r.Channel,
			profit,
			r.ROIPct,
			r.Score,
			shortAction(r.Action))
	}
	if len(rows) < len(doc.Rows) {
		fmt.Fprintf(w, "│ %-92s │\n", fmt.Sprintf("... %d more", len(doc.Rows)-len(rows)))
	}
	rule("├", "┤")
	writeSummary(w, doc.Summary)
	rule("└", "┘")

	c := doc.Counters
	fmt.Fprintf(w, "\nScanned %d items (%d multi-market), %d routes evaluated", c.ItemsScanned, c.MultiMarketItems, c.RoutesEvaluated)
	if c.FailedChunks > 0 || c.RouteFaults > 0 {
		fmt.Fprintf(w, ", %d failed chunks, %d route faults", c.FailedChunks, c.RouteFaults)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Snapshot %s, run %s", doc.SnapshotID, doc.RunID)
	if doc.FromCache {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
}

func writeSummary(w io.Writer, s analysis.Summary) {
	line := func(label, value string) {
		fmt.Fprintf(w, "│ %-40s %51s │\n", label, value)
	}
	line("PROFITABLE ITEMS", fmt.Sprintf("%d / %d (%.1f%%)", s.ProfitableItems, s.TotalItems, s.ProfitableRate))
	line("AVERAGE SCORE", fmt.Sprintf("%.1f", s.AvgScore))
	line("AVERAGE ROI", fmt.Sprintf("%.1f%%", s.AvgROI))
	line("AVERAGE MARGIN", fmt.Sprintf("%.1f%%", s.AvgMargin))
	if s.BestRoute != "" {
		line("MOST FREQUENT ROUTE", s.BestRoute)
	}
}

func shortAction(a Action) string {
	if a == ActionBuyNow {
		return "BUY"
	}
	return string(a)
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
