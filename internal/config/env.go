package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"crossmarket/internal/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "CROSSMARKET_"

// LoadDotEnv loads .env files into the process environment.
// Variables already set win; missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Config("failed to load .env", err)
	}
	return nil
}

// ApplyEnv overlays CROSSMARKET_* variables on the configuration
func (c *Config) ApplyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"STRATEGY", &c.Scan.Strategy},
		{"SCENARIO", &c.Scan.Scenario},
		{"MODE", &c.Scan.Mode},
		{"MARKETS_FILE", &c.MarketsFile},
		{"DB_DRIVER", &c.Input.Driver},
		{"DB_DSN", &c.Input.DSN},
		{"DB_QUERY", &c.Input.Query},
		{"LOG_LEVEL", &c.Logging.Level},
		{"LOG_FORMAT", &c.Logging.Format},
		{"LOG_OUTPUT", &c.Logging.Output},
		{"EXPORT_FORMAT", &c.Export.Format},
		{"EXPORT_DELIMITER", &c.Export.Delimiter},
		{"EXPORT_LOCALE", &c.Export.Locale},
		{"EXPORT_OUTPUT", &c.Export.Output},
		{"S3_REGION", &c.Export.S3.Region},
		{"S3_ENDPOINT", &c.Export.S3.Endpoint},
		{"ADDR", &c.Server.Addr},
		{"HISTORY_BACKEND", &c.History.Backend},
		{"HISTORY_LOCATION", &c.History.Location},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			*s.dst = v
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"DISCOUNT", &c.Scan.Discount},
		{"MIN_ROI", &c.Scan.MinROI},
		{"MIN_MARGIN", &c.Scan.MinMargin},
	}
	for _, f := range floats {
		v, ok := lookup(f.key)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError(f.key, v, err)
		}
		*f.dst = n
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"WORKERS", &c.Batch.Workers},
		{"CHUNK_SIZE", &c.Batch.ChunkSize},
		{"CACHE_TTL_SECONDS", &c.Cache.TTLSeconds},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(i.key, v, err)
		}
		*i.dst = n
	}

	if v, ok := lookup("CACHE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("CACHE_ENABLED", v, err)
		}
		c.Cache.Enabled = b
	}
	if v, ok := lookup("INPUT_FILES"); ok {
		c.Input.Files = splitList(v)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envError(key, value string, cause error) error {
	return errors.Config("invalid environment override", cause).
		WithContext("variable", EnvPrefix+key).
		WithContext("value", value)
}
