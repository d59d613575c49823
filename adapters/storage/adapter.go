// Package storage keeps a history of scan runs.
// Supports three backends: file, memory and SQL (sqlite or postgres).
package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crossmarket/adapters/export"
	"crossmarket/core/analysis"
	"crossmarket/core/engine"
	"crossmarket/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendNone     Backend = ""
	BackendFile     Backend = "file"
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Store is the run history interface
type Store interface {
	// Save stores a run
	Save(ctx context.Context, run *StoredRun) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id string) (*StoredRun, error)

	// List lists runs newest first; rows are omitted
	List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error)

	// Delete removes a run
	Delete(ctx context.Context, id string) error

	// Close closes the store
	Close() error
}

// StoredRun is a persisted scan run
type StoredRun struct {
	// ID is the run ID
	ID string `json:"id"`

	// SnapshotID identifies the listing table the run was computed from
	SnapshotID string `json:"snapshot_id"`

	// Params is the canonical parameter tuple
	Params string `json:"params"`

	ItemsScanned  int     `json:"items_scanned"`
	Opportunities int     `json:"opportunities"`
	AvgScore      float64 `json:"avg_score"`
	AvgROI        float64 `json:"avg_roi"`
	BestRoute     string  `json:"best_route,omitempty"`

	// Totals are the export totals of the run
	Totals export.Totals `json:"totals"`

	// CreatedAt timestamp
	CreatedAt time.Time `json:"created_at"`

	// Rows are the exported opportunities
	Rows []export.Row `json:"rows,omitempty"`
}

// NewRun builds the stored form of res
func NewRun(res *engine.RunResult) *StoredRun {
	rows := export.Rows(res.Opportunities)
	summary := analysis.Summarize(res.Opportunities, res.Counters.ItemsScanned)
	return &StoredRun{
		ID:            res.RunID,
		SnapshotID:    res.SnapshotID,
		Params:        res.Params.Canonical(),
		ItemsScanned:  res.Counters.ItemsScanned,
		Opportunities: len(rows),
		AvgScore:      summary.AvgScore,
		AvgROI:        summary.AvgROI,
		BestRoute:     summary.BestRoute,
		Totals:        export.Totalize(rows),
		CreatedAt:     res.StartedAt.UTC(),
		Rows:          rows,
	}
}

// header returns a copy without rows
func (r *StoredRun) header() *StoredRun {
	h := *r
	h.Rows = nil
	return &h
}

// ListFilter filters run listing
type ListFilter struct {
	SnapshotID string
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

func (f *ListFilter) matches(r *StoredRun) bool {
	if f == nil {
		return true
	}
	if f.SnapshotID != "" && r.SnapshotID != f.SnapshotID {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

// page sorts runs newest first (ties by ID) and applies offset and limit
func (f *ListFilter) page(runs []*StoredRun) []*StoredRun {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	if f == nil {
		return runs
	}
	if f.Offset > 0 {
		if f.Offset >= len(runs) {
			return []*StoredRun{}
		}
		runs = runs[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(runs) {
		runs = runs[:f.Limit]
	}
	return runs
}

// CompareResult is a comparison between two runs
type CompareResult struct {
	OldID         string   `json:"old_id"`
	NewID         string   `json:"new_id"`
	OldCount      int      `json:"old_count"`
	NewCount      int      `json:"new_count"`
	Added         []string `json:"added"`
	Removed       []string `json:"removed"`
	AvgScoreDelta float64  `json:"avg_score_delta"`

	ProfitDelta decimal.Decimal `json:"expected_profit_30d_delta"`
}

// Compare diffs two stored runs by item
func Compare(ctx context.Context, s Store, oldID, newID string) (*CompareResult, error) {
	oldRun, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newRun, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}

	before := itemSet(oldRun.Rows)
	after := itemSet(newRun.Rows)
	res := &CompareResult{
		OldID:         oldID,
		NewID:         newID,
		OldCount:      oldRun.Opportunities,
		NewCount:      newRun.Opportunities,
		Added:         []string{},
		Removed:       []string{},
		AvgScoreDelta: newRun.AvgScore - oldRun.AvgScore,
		ProfitDelta:   newRun.Totals.ExpectedProfit30d.Sub(oldRun.Totals.ExpectedProfit30d),
	}
	for id := range after {
		if !before[id] {
			res.Added = append(res.Added, id)
		}
	}
	for id := range before {
		if !after[id] {
			res.Removed = append(res.Removed, id)
		}
	}
	sort.Strings(res.Added)
	sort.Strings(res.Removed)
	return res, nil
}

func itemSet(rows []export.Row) map[string]bool {
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		set[r.ItemID] = true
	}
	return set
}

// Open creates a store for backend. location is a directory for file stores and a DSN for SQL stores.
func Open(ctx context.Context, backend Backend, location string) (Store, error) {
	switch Backend(strings.ToLower(string(backend))) {
	case BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(location)
	case BackendSQLite, BackendPostgres:
		return OpenSQLStore(ctx, string(backend), location)
	default:
		return nil, errors.Newf(errors.TypeConfig, "unknown history backend %q (file, memory, sqlite, postgres)", backend)
	}
}
