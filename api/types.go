// Package api - API types for the scan server
// These types define the contract of the HTTP endpoints.
package api

import (
	"time"

	"crossmarket/adapters/export"
	"crossmarket/core/analysis"
	"crossmarket/core/engine"
	"crossmarket/core/types"
)

// ScanRequest is the input to POST /scan. Unset fields keep the server defaults.
type ScanRequest struct {
	Strategy  *string             `json:"strategy,omitempty"`
	Scenario  *string             `json:"scenario,omitempty"`
	Discount  *float64            `json:"discount,omitempty"`
	MinROI    *float64            `json:"min_roi,omitempty"`
	MinMargin *float64            `json:"min_margin,omitempty"`
	Mode      *string             `json:"mode,omitempty"`
	Weights   *types.ScoreWeights `json:"weights,omitempty"`

	// Reload re-reads the listing source before scanning
	Reload bool `json:"reload,omitempty"`
}

// Apply overlays the request on base
func (r ScanRequest) Apply(base types.Params) types.Params {
	p := base
	if r.Strategy != nil {
		p.Strategy = types.Strategy(*r.Strategy)
	}
	if r.Scenario != nil {
		p.Scenario = types.Scenario(*r.Scenario)
	}
	if r.Discount != nil {
		p.Discount = *r.Discount
	}
	if r.MinROI != nil {
		p.MinROI = *r.MinROI
	}
	if r.MinMargin != nil {
		p.MinMargin = *r.MinMargin
	}
	if r.Mode != nil {
		if m, ok := types.ParseFulfillmentMode(*r.Mode); ok {
			p.Mode = m
		} else {
			p.Mode = types.FulfillmentMode(*r.Mode)
		}
	}
	if r.Weights != nil {
		p.Weights = *r.Weights
	}
	return p
}

// ScanResponse is the output of POST /scan and GET /summary
type ScanResponse struct {
	RunID      string           `json:"run_id"`
	SnapshotID string           `json:"snapshot_id"`
	FromCache  bool             `json:"from_cache"`
	Params     types.Params     `json:"params"`
	Counters   engine.Counters  `json:"counters"`
	Summary    analysis.Summary `json:"summary"`
	Totals     export.Totals    `json:"totals"`
	DurationMs int64            `json:"duration_ms"`
	StartedAt  time.Time        `json:"started_at"`
}

// OpportunitiesResponse is the output of GET /opportunities
type OpportunitiesResponse struct {
	RunID string       `json:"run_id"`
	Total int          `json:"total"`
	Count int          `json:"count"`
	Rows  []export.Row `json:"rows"`
}

// ErrorBody is the error envelope of every failed request
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}
