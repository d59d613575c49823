package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"json", func(c *Config) { c.Format = "json" }, false},
		{"debug", func(c *Config) { c.Level = "debug" }, false},
		{"unknown level", func(c *Config) { c.Level = "loud" }, true},
		{"unknown format", func(c *Config) { c.Format = "xml" }, true},
		{"negative rotation", func(c *Config) { c.MaxBackups = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossmarket.log")
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = path

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("run completed")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"run completed"`) {
		t.Errorf("log file content = %s", data)
	}
}

func TestInitializeKeepsLoggerOnError(t *testing.T) {
	before := Logger
	if err := Initialize(Config{Level: "nope"}); err == nil {
		t.Fatal("expected an invalid level to fail")
	}
	if Logger != before {
		t.Error("global logger replaced after a failed Initialize")
	}
	if OrNop(nil) == nil {
		t.Error("OrNop(nil) returned nil")
	}
}
