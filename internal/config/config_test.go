package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"crossmarket/core/types"
	"crossmarket/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	p := c.ScanParams()
	want := types.DefaultParams()
	if p.Canonical() != want.Canonical() {
		t.Errorf("ScanParams = %s\nwant %s", p.Canonical(), want.Canonical())
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Batch.Workers != 4 || c.Export.Delimiter != ";" {
		t.Errorf("expected defaults, got %+v", c)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossmarket.yaml")
	data := `
scan:
  strategy: new_fba
  discount: 0.15
  mode: fbm
batch:
  workers: 8
fees:
  managed_fee: 3.40
cache:
  ttl_seconds: 600
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	p := c.ScanParams()
	if p.Strategy != types.StrategyNewFBA || p.Discount != 0.15 || p.Mode != types.FulfillmentSelf {
		t.Errorf("params = %+v", p)
	}
	if p.MinROI != 10 || p.Scenario != types.ScenarioMedium {
		t.Errorf("unset fields should keep defaults, got %+v", p)
	}
	if c.Batch.Workers != 8 || c.Batch.ChunkSize != 50 {
		t.Errorf("batch = %+v", c.Batch)
	}
	if got := c.Fees.ManagedFee.String(); got != "3.4" {
		t.Errorf("managed fee = %s, want 3.4", got)
	}
	if len(c.Fees.Bands) != 2 {
		t.Errorf("bands should keep defaults, got %d", len(c.Fees.Bands))
	}
	if c.CachePolicy().TTL != 10*time.Minute {
		t.Errorf("cache TTL = %s", c.CachePolicy().TTL)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			c := Default()
			c.Scan.MinROI = 22
			c.MarketsFile = "markets.hcl"
			if err := c.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Scan.MinROI != 22 || got.MarketsFile != "markets.hcl" {
				t.Errorf("round trip lost fields: %+v", got.Scan)
			}
			if !got.Fees.DirectCrossBorder.Equal(c.Fees.DirectCrossBorder) {
				t.Errorf("fees changed: %s vs %s", got.Fees.DirectCrossBorder, c.Fees.DirectCrossBorder)
			}
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"discount", func(c *Config) { c.Scan.Discount = 1.2 }},
		{"strategy", func(c *Config) { c.Scan.Strategy = "cheapest" }},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"chunk size", func(c *Config) { c.Batch.ChunkSize = -1 }},
		{"cache ttl", func(c *Config) { c.Cache.TTLSeconds = -5 }},
		{"commission", func(c *Config) { c.Fees.CommissionRate = 15 }},
		{"bands order", func(c *Config) { c.Fees.Bands[1].MaxKg = 0.5 }},
		{"driver", func(c *Config) { c.Input.DSN = "x"; c.Input.Driver = "mysql" }},
		{"format", func(c *Config) { c.Export.Format = "xml" }},
		{"delimiter", func(c *Config) { c.Export.Delimiter = "::" }},
		{"history backend", func(c *Config) { c.History.Backend = "redis" }},
		{"history location", func(c *Config) { c.History.Backend = "sqlite" }},
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !errors.IsType(err, errors.TypeConfig) {
				t.Errorf("expected CONFIG_ERROR, got %v", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CROSSMARKET_STRATEGY", "amazon")
	t.Setenv("CROSSMARKET_DISCOUNT", "0.3")
	t.Setenv("CROSSMARKET_WORKERS", "2")
	t.Setenv("CROSSMARKET_CACHE_ENABLED", "false")
	t.Setenv("CROSSMARKET_INPUT_FILES", "it.csv, de.csv,")
	t.Setenv("CROSSMARKET_DB_DSN", "")

	c := Default()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.Scan.Strategy != "amazon" || c.Scan.Discount != 0.3 || c.Batch.Workers != 2 || c.Cache.Enabled {
		t.Errorf("overrides not applied: %+v %+v", c.Scan, c.Batch)
	}
	if len(c.Input.Files) != 2 || c.Input.Files[1] != "de.csv" {
		t.Errorf("files = %v", c.Input.Files)
	}
	if c.Input.DSN != "" {
		t.Errorf("empty variables must not override, got %q", c.Input.DSN)
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("CROSSMARKET_MIN_ROI", "ten")
	if err := Default().ApplyEnv(); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CROSSMARKET_SCENARIO=long\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CROSSMARKET_SCENARIO", "")
	os.Unsetenv("CROSSMARKET_SCENARIO")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	c := Default()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.ScanParams().Scenario != types.ScenarioLong {
		t.Errorf("scenario = %s, want long", c.Scan.Scenario)
	}
}
