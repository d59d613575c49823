// Package ingest loads the normalized listing table from CSV files and SQL databases.
package ingest

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"crossmarket/core/types"
	"crossmarket/internal/errors"
	"crossmarket/internal/logging"
)

// Source produces a listing snapshot
type Source interface {
	// Name identifies the source in logs
	Name() string

	// Load reads every row and returns an immutable snapshot
	Load(ctx context.Context) (*types.Snapshot, Report, error)
}

// Report describes what a load kept and dropped
type Report struct {
	Rows           int            `json:"rows"`
	Loaded         int            `json:"loaded"`
	UnknownMarkets map[string]int `json:"unknown_markets,omitempty"`
	MissingItemID  int            `json:"missing_item_id"`
}

func (r *Report) skipMarket(code string) {
	if r.UnknownMarkets == nil {
		r.UnknownMarkets = make(map[string]int)
	}
	r.UnknownMarkets[code]++
}

// Skipped returns the number of dropped rows.
// Rows without an item ID are kept; grouping counts them.
func (r Report) Skipped() int {
	n := 0
	for _, c := range r.UnknownMarkets {
		n += c
	}
	return n
}

// Canonical column names
const (
	ColItemID = "item_id"
	ColTitle  = "title"
	ColMarket = "market"
)

type setter func(l *types.Listing, v float64)

var numericColumns = map[string]setter{
	"buy_box_price":         func(l *types.Listing, v float64) { l.BuyBoxPrice = v },
	"amazon_price":          func(l *types.Listing, v float64) { l.AmazonPrice = v },
	"new_fba_price":         func(l *types.Listing, v float64) { l.NewFBAPrice = v },
	"new_fbm_price":         func(l *types.Listing, v float64) { l.NewFBMPrice = v },
	"buy_box_avg_30":        func(l *types.Listing, v float64) { l.BuyBoxAvg30 = v },
	"buy_box_avg_90":        func(l *types.Listing, v float64) { l.BuyBoxAvg90 = v },
	"buy_box_avg_365":       func(l *types.Listing, v float64) { l.BuyBoxAvg365 = v },
	"buy_box_stddev_30":     func(l *types.Listing, v float64) { l.BuyBoxStdDev30 = v },
	"buy_box_stddev_90":     func(l *types.Listing, v float64) { l.BuyBoxStdDev90 = v },
	"buy_box_stddev_365":    func(l *types.Listing, v float64) { l.BuyBoxStdDev365 = v },
	"sales_rank_avg_30":     func(l *types.Listing, v float64) { l.SalesRankAvg30 = v },
	"sales_rank":            func(l *types.Listing, v float64) { l.SalesRank = v },
	"rating":                func(l *types.Listing, v float64) { l.Rating = v },
	"review_count":          func(l *types.Listing, v float64) { l.ReviewCount = v },
	"bought_past_month":     func(l *types.Listing, v float64) { l.BoughtPastMonth = v },
	"dominant_seller_share": func(l *types.Listing, v float64) { l.DominantSellerShare = v },
	"seller_count":          func(l *types.Listing, v float64) { l.SellerCount = v },
	"out_of_stock_pct":      func(l *types.Listing, v float64) { l.OutOfStockPct = v },
	"commission_rate":       func(l *types.Listing, v float64) { l.CommissionRate = v },
	"fulfillment_fee":       func(l *types.Listing, v float64) { l.FulfillmentFee = v },
	"weight_kg":             func(l *types.Listing, v float64) { l.WeightKg = v },
}

var priceColumns = []string{"buy_box_price", "amazon_price", "new_fba_price", "new_fbm_price"}

// aliases maps export-tool headers onto canonical names
var aliases = map[string]string{
	"asin":                          ColItemID,
	"locale":                        ColMarket,
	"buy box 🚚: current":            "buy_box_price",
	"buy box: current":              "buy_box_price",
	"buybox_current":                "buy_box_price",
	"amazon: current":               "amazon_price",
	"new, 3rd party fba: current":   "new_fba_price",
	"new, 3rd party fbm: current":   "new_fbm_price",
	"buy box 🚚: 30 days avg.":       "buy_box_avg_30",
	"buy box 🚚: 90 days avg.":       "buy_box_avg_90",
	"buy box 🚚: 365 days avg.":      "buy_box_avg_365",
	"sales rank: current":           "sales_rank",
	"salesrank_comp":                "sales_rank",
	"sales rank: 30 days avg.":      "sales_rank_avg_30",
	"reviews: rating":               "rating",
	"reviews: rating count":         "review_count",
	"bought in past month":          "bought_past_month",
	"buy box: % amazon 90 days":     "dominant_seller_share",
	"total offer count":             "seller_count",
	"buy box 🚚: 90 days oos":        "out_of_stock_pct",
	"referral fee %":                "commission_rate",
	"fba pick&pack fee":             "fulfillment_fee",
	"package: weight (kg)":          "weight_kg",
}

// canonical normalizes a header cell
func canonical(header string) string {
	h := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	if a, ok := aliases[h]; ok {
		return a
	}
	return strings.ReplaceAll(h, " ", "_")
}

// schema is the column layout resolved from a header row
type schema struct {
	itemID  int
	title   int
	market  int
	numeric map[int]setter
}

// resolveSchema maps header positions onto listing fields.
// A missing identity column or the absence of every price column is structural.
func resolveSchema(header []string) (*schema, error) {
	s := &schema{itemID: -1, title: -1, market: -1, numeric: make(map[int]setter)}
	seen := make(map[string]bool)
	for i, h := range header {
		name := canonical(h)
		if seen[name] {
			continue
		}
		seen[name] = true
		switch name {
		case ColItemID:
			s.itemID = i
		case ColTitle:
			s.title = i
		case ColMarket:
			s.market = i
		default:
			if set, ok := numericColumns[name]; ok {
				s.numeric[i] = set
			}
		}
	}

	var missing []string
	if s.itemID < 0 {
		missing = append(missing, ColItemID)
	}
	if s.market < 0 {
		missing = append(missing, ColMarket)
	}
	hasPrice := false
	for _, p := range priceColumns {
		if seen[p] {
			hasPrice = true
			break
		}
	}
	if !hasPrice {
		missing = append(missing, "one of "+strings.Join(priceColumns, "|"))
	}
	if len(missing) > 0 {
		return nil, errors.Structural("missing required columns").
			WithContext("missing", strings.Join(missing, ", "))
	}
	return s, nil
}

// collector turns raw records into listings and keeps the report
type collector struct {
	schema   *schema
	source   string
	logger   *zap.Logger
	report   Report
	listings []types.Listing
}

func newCollector(source string, logger *zap.Logger) *collector {
	return &collector{source: source, logger: logging.OrNop(logger)}
}

// header switches the column layout; each file or query brings its own
func (c *collector) header(columns []string) error {
	s, err := resolveSchema(columns)
	if err != nil {
		return err
	}
	c.schema = s
	return nil
}

func (c *collector) add(record []string) {
	c.report.Rows++
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	code := cell(c.schema.market)
	market, ok := types.ParseMarket(code)
	if !ok {
		c.report.skipMarket(strings.ToLower(code))
		c.logger.Warn("skipping row with unknown market",
			zap.String("source", c.source),
			zap.Int("row", c.report.Rows),
			zap.String("market", code))
		return
	}
	id := cell(c.schema.itemID)
	if id == "" {
		c.report.MissingItemID++
	}

	l := types.Listing{ItemID: id, Title: cell(c.schema.title), Market: market}
	for i, set := range c.schema.numeric {
		set(&l, ParseNumber(cell(i)))
	}
	c.listings = append(c.listings, l)
}

func (c *collector) finish() (*types.Snapshot, Report) {
	c.report.Loaded = len(c.listings)
	snap := types.NewSnapshot(c.listings)
	c.logger.Info("listings loaded",
		zap.String("source", c.source),
		zap.String("snapshot", snap.ID()),
		zap.Int("rows", c.report.Rows),
		zap.Int("loaded", c.report.Loaded),
		zap.Int("skipped", c.report.Skipped()))
	return snap, c.report
}

// ParseNumber reads a price or count cell. Currency markers and blanks are
// tolerated; either comma or dot may be the decimal separator. Anything
// unparseable is returned as 0, which listings treat as unknown.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("€", "", "EUR", "", "%", "", " ", "", "\u00a0", "").Replace(s)
	switch strings.ToLower(s) {
	case "", "none", "null", "nan", "-":
		return 0
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
