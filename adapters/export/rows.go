// Package export renders ranked opportunities as CSV, JSON or a terminal table
// and delivers them to a file, stdout or S3.
package export

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"crossmarket/core/analysis"
	"crossmarket/core/scoring"
	"crossmarket/core/types"
)

// Action is the suggested next step for an opportunity
type Action string

const (
	ActionBuyNow  Action = "BUY NOW"
	ActionMonitor Action = "MONITOR"
	ActionSkip    Action = "SKIP"
)

// BreakEvenNever marks a row whose unit profit cannot recover fixed costs
const BreakEvenNever = "NEVER"

// FixedCosts is the per-product overhead recovered by the break-even estimate
var FixedCosts = decimal.NewFromInt(50)

// Row is one export line
type Row struct {
	ItemID            string          `json:"item_id"`
	Title             string          `json:"title,omitempty"`
	Route             string          `json:"route"`
	Channel           types.Channel   `json:"channel"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	NetCost           decimal.Decimal `json:"net_cost"`
	TargetPrice       decimal.Decimal `json:"target_price"`
	Fees              decimal.Decimal `json:"fees"`
	Profit            decimal.Decimal `json:"profit"`
	MarginPct         float64         `json:"margin_pct"`
	ROIPct            float64         `json:"roi_pct"`
	Score             float64         `json:"score"`
	Velocity          float64         `json:"velocity"`
	Competition       float64         `json:"competition"`
	Action            Action          `json:"action"`
	Quantity          int             `json:"quantity"`
	Budget            decimal.Decimal `json:"budget"`
	ExpectedProfit30d decimal.Decimal `json:"expected_profit_30d"`
	BreakEvenUnits    string          `json:"break_even_units"`
	Sustainability    analysis.Level  `json:"sustainability"`
	Explanation       string          `json:"explanation"`
}

// NewRow derives the export line of an opportunity
func NewRow(o *types.Opportunity) Row {
	m := o.Metrics
	best := m.Best()
	qty := SuggestedQuantity(m.ROIPct)
	units := MonthlyUnits(o.Scores.Velocity)

	return Row{
		ItemID:            o.ItemID,
		Title:             o.Title,
		Route:             o.Label,
		Channel:           m.BestChannel,
		PurchasePrice:     m.PurchasePrice,
		NetCost:           m.Costs.NetCost,
		TargetPrice:       m.TargetPrice,
		Fees:              best.Fees.Total,
		Profit:            m.Profit,
		MarginPct:         m.MarginPct,
		ROIPct:            m.ROIPct,
		Score:             o.Scores.Opportunity,
		Velocity:          o.Scores.Velocity,
		Competition:       o.Scores.Competition,
		Action:            DecideAction(m.ROIPct, o.Scores.Opportunity),
		Quantity:          qty,
		Budget:            m.Costs.NetCost.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		ExpectedProfit30d: m.Profit.Mul(decimal.NewFromInt(int64(units))).Round(2),
		BreakEvenUnits:    BreakEvenUnits(m.Profit),
		Sustainability:    analysis.AssessSustainability(o).Level,
		Explanation:       scoring.Explain(o.Scores),
	}
}

// Rows converts opportunities in their ranked order
func Rows(opps []*types.Opportunity) []Row {
	rows := make([]Row, 0, len(opps))
	for _, o := range opps {
		rows = append(rows, NewRow(o))
	}
	return rows
}

// DecideAction maps ROI and score onto an action
func DecideAction(roiPct, score float64) Action {
	switch {
	case roiPct > 30 && score > 70:
		return ActionBuyNow
	case roiPct > 15 && score > 50:
		return ActionMonitor
	default:
		return ActionSkip
	}
}

// SuggestedQuantity is the test-buy size for an ROI band
func SuggestedQuantity(roiPct float64) int {
	switch {
	case roiPct > 30:
		return 10
	case roiPct > 15:
		return 5
	default:
		return 2
	}
}

// MonthlyUnits estimates monthly sales from the velocity score
func MonthlyUnits(velocity float64) int {
	switch {
	case velocity >= 70:
		return 20
	case velocity >= 50:
		return 10
	default:
		return 5
	}
}

// BreakEvenUnits is the number of units whose profit covers FixedCosts, at least 1
func BreakEvenUnits(profit decimal.Decimal) string {
	if !profit.IsPositive() {
		return BreakEvenNever
	}
	f, _ := FixedCosts.Div(profit).Float64()
	n := math.RoundToEven(f)
	if n < 1 {
		n = 1
	}
	return strconv.FormatInt(int64(n), 10)
}

// Totals aggregates an export
type Totals struct {
	Count             int             `json:"count"`
	BuyNow            int             `json:"buy_now"`
	Monitor           int             `json:"monitor"`
	Skip              int             `json:"skip"`
	Budget            decimal.Decimal `json:"budget"`
	ExpectedProfit30d decimal.Decimal `json:"expected_profit_30d"`
	AvgROI            float64         `json:"avg_roi"`
	ReturnPct         float64         `json:"return_pct"`
}

// Totalize sums budgets and expected profit and counts actions
func Totalize(rows []Row) Totals {
	t := Totals{Count: len(rows), Budget: decimal.Zero, ExpectedProfit30d: decimal.Zero}
	for _, r := range rows {
		switch r.Action {
		case ActionBuyNow:
			t.BuyNow++
		case ActionMonitor:
			t.Monitor++
		default:
			t.Skip++
		}
		t.Budget = t.Budget.Add(r.Budget)
		t.ExpectedProfit30d = t.ExpectedProfit30d.Add(r.ExpectedProfit30d)
		t.AvgROI += r.ROIPct
	}
	if len(rows) > 0 {
		t.AvgROI /= float64(len(rows))
	}
	if t.Budget.IsPositive() {
		t.ReturnPct, _ = t.ExpectedProfit30d.Div(t.Budget).Mul(decimal.NewFromInt(100)).Float64()
	}
	return t
}
