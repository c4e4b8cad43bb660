package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staffing-engine/generic"
	"github.com/warp/staffing-engine/overtime"
	"github.com/warp/staffing-engine/store/sqlite"
)

const document = `{
	"people": [
		{"id": "alice", "name": "Alice", "overtime_mode": "all",
		 "cost_rates": [{"amount": 50, "effective_date": "2024-01-01"}]}
	],
	"projects": [
		{"id": "acme", "name": "Acme", "overtime_inclusive": true,
		 "tasks": [{"id": "build", "sell_rates": [{"amount": 100, "effective_date": "2024-01-01"}],
		            "assignments": [{"person_id": "alice"}]}]}
	],
	"time_entries": [
		{"id": "t1", "person_id": "alice", "project_id": "acme", "date": "2025-11-03", "hours": 10},
		{"id": "t2", "person_id": "alice", "project_id": "acme", "date": "2025-11-04", "hours": 10}
	]
}`

// setup points the commands at a fresh database file.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STAFFING_DB_PATH", filepath.Join(dir, "engine.db"))
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", ""))
	err := cmd.Execute()
	return out.String(), err
}

func TestImportThenOvertime(t *testing.T) {
	dir := setup(t)

	out, err := run(t, "import", "--file", filepath.Join(dir, "doc.json"))
	require.NoError(t, err)
	var stats sqlite.ImportStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.People)
	assert.Equal(t, 2, stats.TimeEntries)

	out, err = run(t, "overtime", "--start", "2025-11-03", "--end", "2025-11-04")
	require.NoError(t, err)
	var report overtime.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Entries, 1)
	assert.Equal(t, generic.EntityID("alice"), report.Entries[0].PersonID)
	assert.Equal(t, "4", report.Entries[0].OvertimeHours.String())
}

func TestOvertimeSubmitOnce(t *testing.T) {
	dir := setup(t)
	_, err := run(t, "import", "-f", filepath.Join(dir, "doc.json"))
	require.NoError(t, err)

	_, err = run(t, "overtime", "--start", "2025-11-03", "--end", "2025-11-04", "--submit", "--actor", "payroll")
	require.NoError(t, err)

	_, err = run(t, "overtime", "--start", "2025-11-03", "--end", "2025-11-04", "--submit")
	require.Error(t, err)
	assert.True(t, generic.IsConflict(err))
}

func TestForecastCommand(t *testing.T) {
	dir := setup(t)
	_, err := run(t, "import", "-f", filepath.Join(dir, "doc.json"))
	require.NoError(t, err)

	out, err := run(t, "forecast", "--month", "2025-11")
	require.NoError(t, err)
	var result struct {
		Month string `json:"month"`
		Rows  []struct {
			PersonID string `json:"personId"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "2025-11", result.Month)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "alice", result.Rows[0].PersonID)

	_, err = run(t, "forecast", "--month", "November")
	assert.Error(t, err)
}

func TestImportRequiresFile(t *testing.T) {
	setup(t)
	_, err := run(t, "import")
	assert.Error(t, err)
}
