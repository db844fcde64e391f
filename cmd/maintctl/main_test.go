package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	dir := t.TempDir()
	cfg := fmt.Sprintf(`database:
  driver: sqlite
  dsn: %s
  log_level: silent
log:
  level: error
alerts:
  state_file: %s
metrics:
  textfile: %s
`, filepath.Join(dir, "maintenance.db"), filepath.Join(dir, "alerts.gob"), filepath.Join(dir, "maintenance.prom"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path, dir
}

func cli(t *testing.T, cfgPath string, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(append([]string{"-config", cfgPath}, args...), &out)
	return code, out.String()
}

func TestCLI_Lifecycle(t *testing.T) {
	cfgPath, dir := writeConfig(t)

	code, out := cli(t, cfgPath, "migrate")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "schema up to date")

	code, out = cli(t, cfgPath, "equipment", "add", "-name", "HT-01", "-hours", "1000", "-auto=false", "-rate", "20")
	require.Equal(t, 0, code)
	assert.Equal(t, "equipment 1 created\n", out)

	code, out = cli(t, cfgPath, "component", "add", "-equipment", "1", "-name", "Engine", "-interval", "500", "-last", "600")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "next maintenance at 1100.0 h")

	code, _ = cli(t, cfgPath, "reading", "add", "-id", "1", "-hours", "1,010")
	require.Equal(t, 0, code)

	code, _ = cli(t, cfgPath, "reading", "add", "-id", "1", "-hours", "900")
	assert.Equal(t, 1, code, "a meter running backward is rejected")
	prom, err := os.ReadFile(filepath.Join(dir, "maintenance.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "maint_readings_rejected_total 1")

	code, out = cli(t, cfgPath, "schedule")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "UPCOMING")
	assert.Contains(t, out, "Engine")

	code, out = cli(t, cfgPath, "status", "-id", "1", "-json")
	require.Equal(t, 0, code)
	var report struct {
		Unit struct {
			HourMeter float64 `json:"hourMeter"`
		} `json:"unit"`
		Components []struct {
			Status  string `json:"status"`
			DueDate string `json:"dueDate"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1010.0, report.Unit.HourMeter)
	require.Len(t, report.Components, 1)
	assert.Equal(t, "DueSoon", report.Components[0].Status)
	assert.NotEqual(t, "N/A", report.Components[0].DueDate)

	code, out = cli(t, cfgPath, "service", "component", "-id", "1", "-notes", "engine swap")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "next maintenance at 1510.0 h")

	xlsx := filepath.Join(dir, "schedule.xlsx")
	code, _ = cli(t, cfgPath, "export", "-report", "history", "-o", xlsx)
	require.Equal(t, 0, code)
	assert.FileExists(t, xlsx)

	code, out = cli(t, cfgPath, "alerts", "-dry-run")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "0 alerts dispatched")

	code, out = cli(t, cfgPath, "reconcile")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "1 units checked, 0 rewritten")
}

func TestCLI_Import(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	require.Equal(t, 0, first(cli(t, cfgPath, "migrate")))
	require.Equal(t, 0, first(cli(t, cfgPath, "equipment", "add", "-name", "EX-02")))

	csvPath := filepath.Join(dir, "readings.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("equipment,date,hours\nEX-02,2024-03-01,100\nex-02,2024-03-06,200 h\nEX-99,2024-03-06,5\n"), 0o600))

	code, out := cli(t, cfgPath, "import-readings", "-file", csvPath)
	assert.Equal(t, 1, code, "the unknown unit fails the import")
	assert.Contains(t, out, "2 readings imported, 1 rejected")

	code, out = cli(t, cfgPath, "equipment", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "20.0 (auto)")
}

func TestCLI_Usage(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	assert.Equal(t, 2, first(cli(t, cfgPath)))
	assert.Equal(t, 2, first(cli(t, cfgPath, "launch")))
	assert.Equal(t, 1, first(cli(t, cfgPath, "equipment", "fly")))
}

func first(code int, _ string) int {
	return code
}
