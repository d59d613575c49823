package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"crossmarket/adapters/export"
)

// resetFlags clears values left by a previous Execute on the shared command tree
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "crossmarket version "+Version) {
		t.Errorf("output = %q", out)
	}
}

func TestScanWritesJSON(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "listings.csv")
	data := "item_id,market,buy_box_price,sales_rank\nB001,it,40.00,1500\nB001,de,120.00,1500\nB002,es,20.00,900\n"
	if err := os.WriteFile(input, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "result.json")

	if _, err := execute(t, "scan", "--input", input, "--format", "json", "--out", out, "--workers", "2"); err != nil {
		t.Fatalf("scan: %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var doc export.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if doc.Counters.ItemsScanned != 2 || doc.Counters.MultiMarketItems != 1 {
		t.Errorf("counters = %+v", doc.Counters)
	}
	for _, row := range doc.Rows {
		if row.ItemID == "B002" {
			t.Error("single-market item must not be exported")
		}
	}
}

func TestScanRejectsBadDiscount(t *testing.T) {
	input := filepath.Join(t.TempDir(), "listings.csv")
	if err := os.WriteFile(input, []byte("item_id,market,buy_box_price\nB001,it,10\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "scan", "--input", input, "--discount", "1.5"); err == nil {
		t.Error("expected a discount outside [0,1) to fail")
	}
}

func TestMarketsPrintsHCL(t *testing.T) {
	out, err := execute(t, "markets")
	if err != nil {
		t.Fatalf("markets: %v", err)
	}
	for _, want := range []string{"home", `market "it"`, "tax_rate"} {
		if !strings.Contains(out, want) {
			t.Errorf("markets output missing %q:\n%s", want, out)
		}
	}
}

func TestScanRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "listings.csv")
	data := "item_id,market,buy_box_price,sales_rank\nB001,it,40.00,1500\nB001,de,120.00,1500\n"
	if err := os.WriteFile(input, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "result.json")
	history := filepath.Join(dir, "runs.db")

	if _, err := execute(t, "scan", "--input", input, "--format", "json", "--out", out, "--history", history); err != nil {
		t.Fatalf("scan: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var doc export.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	listing, err := execute(t, "history", "list", "--at", history)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(listing, doc.RunID) {
		t.Errorf("history list does not mention run %s:\n%s", doc.RunID, listing)
	}

	shown, err := execute(t, "history", "show", doc.RunID, "--at", history)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	if !strings.Contains(shown, `"snapshot_id": "`+doc.SnapshotID+`"`) {
		t.Errorf("history show output:\n%s", shown)
	}
}

func TestHistoryTarget(t *testing.T) {
	tests := []struct {
		in, backend string
	}{
		{"postgres://u:p@host/db", "postgres"},
		{"runs.db", "sqlite"},
		{"file:runs?mode=memory", "sqlite"},
		{"./history", "file"},
	}
	for _, tt := range tests {
		if backend, _ := historyTarget(tt.in); backend != tt.backend {
			t.Errorf("historyTarget(%q) = %s, want %s", tt.in, backend, tt.backend)
		}
	}
}

func TestConfigInitShowValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossmarket.yaml")
	if _, err := execute(t, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out, err := execute(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Errorf("validate output = %q", out)
	}

	shown, err := execute(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"scan:", "history:"} {
		if !strings.Contains(shown, want) {
			t.Errorf("config show missing %q:\n%s", want, shown)
		}
	}
}
