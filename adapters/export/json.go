package export

import (
	"encoding/json"
	"io"
	"time"

	"crossmarket/core/analysis"
	"crossmarket/core/engine"
	"crossmarket/core/types"
	"crossmarket/internal/errors"
)

// Document is the JSON export of a run
type Document struct {
	RunID       string           `json:"run_id"`
	SnapshotID  string           `json:"snapshot_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	FromCache   bool             `json:"from_cache"`
	Params      types.Params     `json:"params"`
	Counters    engine.Counters  `json:"counters"`
	Summary     analysis.Summary `json:"summary"`
	Totals      Totals           `json:"totals"`
	Rows        []Row            `json:"rows"`
}

// NewDocument assembles the export of res
func NewDocument(res *engine.RunResult, now time.Time) Document {
	rows := Rows(res.Opportunities)
	return Document{
		RunID:       res.RunID,
		SnapshotID:  res.SnapshotID,
		GeneratedAt: now.UTC(),
		FromCache:   res.FromCache,
		Params:      res.Params,
		Counters:    res.Counters,
		Summary:     analysis.Summarize(res.Opportunities, res.Counters.ItemsScanned),
		Totals:      Totalize(rows),
		Rows:        rows,
	}
}

// WriteJSON writes doc as indented JSON
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Export("failed to encode JSON", err)
	}
	return nil
}
