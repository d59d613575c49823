package scoring

import (
	"fmt"
	"strings"

	"crossmarket/core/types"
)

// band maps a score to one of four labels, highest first
func band(score float64, labels [4]string) string {
	switch {
	case score >= 80:
		return labels[0]
	case score >= 60:
		return labels[1]
	case score >= 40:
		return labels[2]
	default:
		return labels[3]
	}
}

var (
	profitBands      = [4]string{"excellent, very high ROI", "good, solid ROI", "moderate, acceptable ROI", "low, insufficient ROI"}
	velocityBands    = [4]string{"very liquid, fast sales", "liquid, regular sales", "moderate liquidity", "illiquid, slow sales"}
	competitionBands = [4]string{"low competition", "moderate competition", "high competition", "very high competition, hard to enter"}
	overallBands     = [4]string{"excellent opportunity", "good opportunity", "moderate opportunity", "weak opportunity"}
)

// Explain renders a human-readable breakdown of a route's scores
func Explain(s types.Scores) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opportunity score: %.1f/100\n", s.Opportunity)
	fmt.Fprintf(&b, "  Profit:      %5.1f (%s)\n", s.Profit, band(s.Profit, profitBands))
	fmt.Fprintf(&b, "  Velocity:    %5.1f (%s)\n", s.Velocity, band(s.Velocity, velocityBands))
	fmt.Fprintf(&b, "  Competition: %5.1f (%s)\n", s.Competition, band(s.Competition, competitionBands))
	fmt.Fprintf(&b, "Verdict: %s", band(s.Opportunity, overallBands))
	return b.String()
}
