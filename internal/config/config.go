// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"crossmarket/adapters/export"
	"crossmarket/core/engine"
	"crossmarket/core/fees"
	"crossmarket/core/pricing"
	"crossmarket/core/types"
	"crossmarket/internal/errors"
	"crossmarket/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Scan contains the default run parameters
	Scan ScanConfig `json:"scan" yaml:"scan"`

	// Costs contains the per-unit cost provisions
	Costs CostsConfig `json:"costs" yaml:"costs"`

	// Fees is the channel fee table
	Fees fees.Schedule `json:"fees" yaml:"fees"`

	// Batch controls chunking and worker count
	Batch engine.Config `json:"batch" yaml:"batch"`

	// Cache contains result cache settings
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// MarketsFile is an optional HCL file overriding the market profiles
	MarketsFile string `json:"markets_file,omitempty" yaml:"markets_file,omitempty"`

	// Input describes where listings are read from
	Input InputConfig `json:"input" yaml:"input"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`

	// Export contains output settings
	Export ExportConfig `json:"export" yaml:"export"`

	// Server contains HTTP server settings
	Server ServerConfig `json:"server" yaml:"server"`

	// History persists completed runs
	History HistoryConfig `json:"history" yaml:"history"`
}

// ScanConfig holds the default run parameters
type ScanConfig struct {
	Strategy  string             `json:"strategy" yaml:"strategy"`
	Scenario  string             `json:"scenario" yaml:"scenario"`
	Discount  float64            `json:"discount" yaml:"discount"`
	MinROI    float64            `json:"min_roi" yaml:"min_roi"`
	MinMargin float64            `json:"min_margin" yaml:"min_margin"`
	Mode      string             `json:"mode" yaml:"mode"`
	Weights   types.ScoreWeights `json:"weights" yaml:"weights"`
}

// CostsConfig holds the cost provisions in plain numbers
type CostsConfig struct {
	InboundFreight float64 `json:"inbound_freight" yaml:"inbound_freight"`
	ReturnsPct     float64 `json:"returns_pct" yaml:"returns_pct"`
	StoragePct     float64 `json:"storage_pct" yaml:"storage_pct"`
	Misc           float64 `json:"misc" yaml:"misc"`
}

// CacheConfig contains cache-related settings
type CacheConfig struct {
	// Enabled enables run memoization
	Enabled bool `json:"enabled" yaml:"enabled"`

	// TTLSeconds expires entries; zero keeps them until invalidated
	TTLSeconds int `json:"ttl_seconds" yaml:"ttl_seconds"`

	// MaxEntries bounds the number of cached runs
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// InputConfig selects the listing source
type InputConfig struct {
	// Files are CSV exports; ignored when DSN is set
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`

	// Driver is sqlite or postgres
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`

	// DSN is the database connection string
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// Query selects the listing rows
	Query string `json:"query,omitempty" yaml:"query,omitempty"`
}

// ExportConfig contains output settings
type ExportConfig struct {
	// Format is table, csv or json
	Format string `json:"format" yaml:"format"`

	// Delimiter is the CSV field separator
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// Locale selects the CSV decimal separator
	Locale string `json:"locale" yaml:"locale"`

	// Output is a file path, "-" for stdout, or s3://bucket/key
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// TableLimit caps the rows printed by the table format
	TableLimit int `json:"table_limit" yaml:"table_limit"`

	// S3 configures uploads to s3:// outputs
	S3 export.S3Config `json:"s3" yaml:"s3"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr                string `json:"addr" yaml:"addr"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
}

// HistoryConfig selects the run history backend
type HistoryConfig struct {
	// Backend is empty (disabled), memory, file, sqlite or postgres
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Location is a directory for the file backend or a DSN for SQL backends
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Default returns a default configuration
func Default() *Config {
	p := types.DefaultParams()
	costs := types.DefaultProvisions()
	inbound, _ := costs.InboundFreight.Float64()
	misc, _ := costs.Misc.Float64()

	return &Config{
		Version: "1.0",
		Scan: ScanConfig{
			Strategy:  string(p.Strategy),
			Scenario:  string(p.Scenario),
			Discount:  p.Discount,
			MinROI:    p.MinROI,
			MinMargin: p.MinMargin,
			Mode:      string(p.Mode),
			Weights:   p.Weights,
		},
		Costs: CostsConfig{
			InboundFreight: inbound,
			ReturnsPct:     costs.ReturnsPct,
			StoragePct:     costs.StoragePct,
			Misc:           misc,
		},
		Fees:  fees.DefaultSchedule(),
		Batch: engine.DefaultConfig(),
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 0,
			MaxEntries: engine.DefaultCachePolicy().MaxEntries,
		},
		Input: InputConfig{
			Driver: "sqlite",
		},
		Logging: logging.DefaultConfig(),
		Export: ExportConfig{
			Format:     "table",
			Delimiter:  ";",
			Locale:     "it",
			TableLimit: 25,
			S3: export.S3Config{
				Region: "eu-south-1",
			},
		},
		Server: ServerConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 60,
		},
	}
}

// Load loads configuration from a JSON or YAML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Config("failed to read config", err).WithContext("path", path)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Config("failed to parse config", err).WithContext("path", path)
	}

	return config, nil
}

// Save saves configuration to a file, YAML or JSON by extension
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Config("failed to create config directory", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Config("failed to encode config", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Config("failed to write config", err).WithContext("path", path)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ScanParams builds the run parameters
func (c *Config) ScanParams() types.Params {
	mode, ok := types.ParseFulfillmentMode(c.Scan.Mode)
	if !ok {
		mode = types.FulfillmentMode(c.Scan.Mode)
	}
	return types.Params{
		Strategy:  types.Strategy(strings.ToLower(c.Scan.Strategy)),
		Scenario:  types.Scenario(strings.ToLower(c.Scan.Scenario)),
		Discount:  c.Scan.Discount,
		MinROI:    c.Scan.MinROI,
		MinMargin: c.Scan.MinMargin,
		Weights:   c.Scan.Weights,
		Mode:      mode,
		Costs: types.CostProvisions{
			InboundFreight: decimal.NewFromFloat(c.Costs.InboundFreight),
			ReturnsPct:     c.Costs.ReturnsPct,
			StoragePct:     c.Costs.StoragePct,
			Misc:           decimal.NewFromFloat(c.Costs.Misc),
		},
	}
}

// Validate checks the configuration as a whole
func (c *Config) Validate() error {
	if err := c.ScanParams().Validate(); err != nil {
		return errors.Config("invalid scan parameters", err)
	}
	if c.Batch.Workers < 1 {
		return errors.Newf(errors.TypeConfig, "batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Batch.ChunkSize < 1 {
		return errors.Newf(errors.TypeConfig, "batch.chunk_size must be at least 1, got %d", c.Batch.ChunkSize)
	}
	if c.Cache.TTLSeconds < 0 || c.Cache.MaxEntries < 0 {
		return errors.New(errors.TypeConfig, "cache ttl and size must not be negative")
	}
	if err := validateSchedule(c.Fees); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Config("invalid logging configuration", err)
	}
	if c.Input.DSN != "" {
		switch c.Input.Driver {
		case "sqlite", "postgres":
		default:
			return errors.Newf(errors.TypeConfig, "input.driver must be sqlite or postgres, got %q", c.Input.Driver)
		}
	}
	switch strings.ToLower(c.History.Backend) {
	case "", "none", "memory":
	case "file", "sqlite", "postgres":
		if c.History.Location == "" {
			return errors.Newf(errors.TypeConfig, "history.location is required for the %s backend", c.History.Backend)
		}
	default:
		return errors.Newf(errors.TypeConfig, "history.backend must be none, memory, file, sqlite or postgres, got %q", c.History.Backend)
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return errors.Config("invalid export format", err)
	}
	if _, err := export.ParseCSVOptions(c.Export.Delimiter, c.Export.Locale); err != nil {
		return err
	}
	return nil
}

func validateSchedule(s fees.Schedule) error {
	if s.CommissionRate < 0 || s.CommissionRate >= 1 {
		return errors.Newf(errors.TypeConfig, "fees.commission_rate must be in [0,1), got %v", s.CommissionRate)
	}
	if s.DirectPlatformRate < 0 || s.DirectPlatformRate >= 1 {
		return errors.Newf(errors.TypeConfig, "fees.direct_platform_rate must be in [0,1), got %v", s.DirectPlatformRate)
	}
	prev := 0.0
	for i, b := range s.Bands {
		if b.MaxKg <= prev {
			return errors.Newf(errors.TypeConfig, "fees.bands must ascend by max_kg (band %d)", i)
		}
		if b.Fee.IsNegative() {
			return errors.Newf(errors.TypeConfig, "fees.bands[%d].fee must not be negative", i)
		}
		prev = b.MaxKg
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"managed_fee", s.ManagedFee},
		{"heavy_fee", s.HeavyFee},
		{"international_surcharge", s.InternationalSurcharge},
		{"direct_cross_border", s.DirectCrossBorder},
	} {
		if f.value.IsNegative() {
			return errors.Newf(errors.TypeConfig, "fees.%s must not be negative", f.name)
		}
	}
	return nil
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}

// CachePolicy converts the cache section
func (c *Config) CachePolicy() engine.CachePolicy {
	return engine.CachePolicy{
		TTL:        time.Duration(c.Cache.TTLSeconds) * time.Second,
		MaxEntries: c.Cache.MaxEntries,
	}
}

// EngineOptions wires the engine from this configuration and the given profiles
func (c *Config) EngineOptions(profiles *pricing.Profiles, logger *zap.Logger) engine.Options {
	return engine.Options{
		Profiles:     profiles,
		Fees:         c.Fees,
		Batch:        c.Batch,
		CacheEnabled: c.Cache.Enabled,
		CachePolicy:  c.CachePolicy(),
		Logger:       logger,
	}
}

// CSVOptions converts the export section
func (c *Config) CSVOptions() (export.CSVOptions, error) {
	return export.ParseCSVOptions(c.Export.Delimiter, c.Export.Locale)
}
