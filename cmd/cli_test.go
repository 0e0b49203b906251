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
)

const salesCSV = "product,Price,qty,note\napple,10,1,a\npear,,2,\napple,30,3,c\n"

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sc := range c.Commands() {
		resetFlags(sc)
	}
}

// runCmd executes the root command with args and returns stdout and stderr.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, args ...string) (string, string) {
	t.Helper()
	stdout, stderr, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\nstderr: %s", args, err, stderr)
	}
	return stdout, stderr
}

func writeSales(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(path, []byte(salesCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return dir, path
}

func TestCLI_CleanFillsAndWrites(t *testing.T) {
	dir, path := writeSales(t)
	out := filepath.Join(dir, "cleaned_data.csv")
	_, stderr := mustRun(t, "clean", path, "-o", out)
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "product,Price,qty,note\napple,10,1,a\npear,20,2,UNKNOWN\napple,30,3,c\n"
	if string(got) != want {
		t.Fatalf("cleaned = %q, want %q", got, want)
	}
	if !strings.Contains(stderr, "Price: 1 null values") || !strings.Contains(stderr, "Filled null values in 2 columns") {
		t.Fatalf("unexpected report: %s", stderr)
	}
}

func TestCLI_CleanWithoutFillToStdout(t *testing.T) {
	_, path := writeSales(t)
	stdout, _ := mustRun(t, "clean", path, "--fill=false", "-o", "-")
	if stdout != salesCSV {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestCLI_FilterRange(t *testing.T) {
	_, path := writeSales(t)
	stdout, stderr := mustRun(t, "filter", path, "--min", "15", "--max", "30")
	if stdout != "product,Price,qty,note\napple,30,3,c\n" {
		t.Fatalf("filtered = %q", stdout)
	}
	if !strings.Contains(stderr, "1 of 3 rows") {
		t.Fatalf("stderr = %q", stderr)
	}

	stdout, _ = mustRun(t, "filter", path, "--fill")
	if strings.Count(stdout, "\n") != 4 {
		t.Fatalf("default range with fill should keep every row: %q", stdout)
	}

	if _, _, err := runCmd(t, "filter", path, "--min", "30", "--max", "10"); err == nil {
		t.Fatalf("expected invalid range error")
	}
	if _, _, err := runCmd(t, "filter", path, "--column", "qty"); err == nil {
		t.Fatalf("expected non-price column error")
	}
}

func TestCLI_ChartSingleAndAll(t *testing.T) {
	dir, path := writeSales(t)
	out := filepath.Join(dir, "spread.svg")
	mustRun(t, "chart", path, "--kind", "spread", "-o", out, "--width", "640")
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("<svg")) {
		t.Fatalf("not an svg: %.40q", b)
	}

	chartDir := filepath.Join(dir, "charts")
	mustRun(t, "chart", path, "--dir", chartDir, "--fill")
	for _, k := range []string{"distribution", "spread", "product-average", "heatmap"} {
		if _, err := os.Stat(filepath.Join(chartDir, k+".svg")); err != nil {
			t.Fatalf("missing %s chart: %v", k, err)
		}
	}

	if _, _, err := runCmd(t, "chart", path, "--kind", "pie"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestCLI_InspectMarkdownAndJSON(t *testing.T) {
	dir, path := writeSales(t)
	stdout, _ := mustRun(t, "inspect", path)
	for _, want := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "Price"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("markdown missing %q:\n%s", want, stdout)
		}
	}

	stdout, _ = mustRun(t, "inspect", path, "--json")
	var ov overview
	if err := json.Unmarshal([]byte(stdout), &ov); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if ov.Rows != 3 || len(ov.PriceColumns) != 1 || ov.PriceColumns[0] != "Price" {
		t.Fatalf("overview = %+v", ov)
	}
	if len(ov.Nulls) != 2 {
		t.Fatalf("nulls = %+v", ov.Nulls)
	}

	second := filepath.Join(dir, "more.csv")
	if err := os.WriteFile(second, []byte("unit_price\n1\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	stdout, stderr := mustRun(t, "inspect", filepath.Join(dir, "*.csv"), "--json")
	var many []overview
	if err := json.Unmarshal([]byte(stdout), &many); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if len(many) != 2 || many[0].File != "more.csv" {
		t.Fatalf("batch = %+v", many)
	}
	if !strings.Contains(stderr, "[2/2]") {
		t.Fatalf("progress missing: %q", stderr)
	}

	if _, _, err := runCmd(t, "inspect", filepath.Join(dir, "*.nope")); err == nil {
		t.Fatalf("expected no match error")
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgPath := filepath.Join(home, "custom.yaml")

	mustRun(t, "--config", cfgPath, "config", "set", "chart_width", "1000")
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if _, _, err := runCmd(t, "--config", cfgPath, "config", "set", "chart_width", "wide"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, _, err := runCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}

	stdout, _ := mustRun(t, "config", "path")
	if strings.TrimSpace(stdout) != filepath.Join(home, ".csvscope", "config.yaml") {
		t.Fatalf("path = %q", stdout)
	}
	stdout, _ = mustRun(t, "config", "show")
	if !strings.Contains(stdout, "addr: :8080") || !strings.Contains(stdout, "fill_text: UNKNOWN") {
		t.Fatalf("show = %q", stdout)
	}
}

func TestTableFlagsOptions(t *testing.T) {
	f := tableFlags{delimiter: "tab", decimal: "comma", thousands: "space", maxRows: 10}
	opt, err := f.options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opt.Delimiter != '\t' || opt.DecimalSeparator != ',' || opt.ThousandsSeparator != ' ' || opt.MaxRows != 10 {
		t.Fatalf("opt = %+v", opt)
	}
	for _, bad := range []tableFlags{{delimiter: "|", maxRows: -1}, {decimal: "x", maxRows: -1}, {decimal: ",", thousands: ",", maxRows: -1}} {
		if _, err := bad.options(); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}
