package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenarios/pkg/docstore/sqlitestore"
	"github.com/roach88/scenarios/pkg/document"
)

const activeCustomerScenario = "../../testdata/scenarios/active_customer_with_order.yaml"

// sqliteArgs points the command at a SQLite database file.
func sqliteArgs(dbPath string) []string {
	return []string{"--db-driver", "sqlite", "--db-url", dbPath, "--templates-path", testTemplatesDir}
}

// readCollection opens the database file and returns the documents of one
// collection.
func readCollection(t *testing.T, dbPath, collection string) []document.Document {
	t.Helper()

	ctx := context.Background()
	st, err := sqlitestore.Open(dbPath)
	require.NoError(t, err)
	defer st.Close(ctx)

	docs, err := st.Find(ctx, collection, nil)
	require.NoError(t, err)
	return docs
}

func TestSeedCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")

	args := append([]string{"seed", activeCustomerScenario}, sqliteArgs(dbPath)...)
	stdout, _, err := executeRoot(t, args...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ active_customer_with_order (scenario_id scn-001)")
	assert.Contains(t, stdout, "  customers: 1 document(s)")
	assert.Contains(t, stdout, "  orders: 2 document(s)")

	orders := readCollection(t, dbPath, "orders")
	require.Len(t, orders, 2)
	for _, order := range orders {
		assert.Equal(t, "scn-001", order["scenario_id"])
		assert.Equal(t, "EUR", order["currency"])
	}
}

func TestSeedCommandKeepsExistingDocuments(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	args := append([]string{"seed", activeCustomerScenario}, sqliteArgs(dbPath)...)

	_, _, err := executeRoot(t, args...)
	require.NoError(t, err)

	// The second run finds two active customers.
	stdout, _, err := executeRoot(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ active_customer_with_order")
	assert.Contains(t, stdout, "Assertion failed: document_count on customers")
	assert.Len(t, readCollection(t, dbPath, "customers"), 2)

	// --reset cleans the registered collections first.
	_, _, err = executeRoot(t, append(args, "--reset")...)
	require.NoError(t, err)
	assert.Len(t, readCollection(t, dbPath, "customers"), 1)
}

func TestSeedCommandGeneratesScenarioID(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "seed.db")
	scenarioFile := filepath.Join(dir, "tagged.yaml")
	require.NoError(t, os.WriteFile(scenarioFile, []byte(`name: tagged
description: "uses the configured templates"
marker: true
seed:
  - collection: customers
    documents:
      - { name: "Grace" }
assertions:
  - type: document_exists
    collection: customers
    where: { scenario_id: $scenario }
    expect: { name: Grace, status: inactive }
`), 0644))

	args := append([]string{"seed", scenarioFile, "--format", "json"}, sqliteArgs(dbPath)...)
	stdout, _, err := executeRoot(t, args...)
	require.NoError(t, err)

	var result SeedResult
	resp := decodeData(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "tagged", result.Scenario)
	assert.True(t, result.Pass)
	require.Len(t, result.Inserted["customers"], 1)

	id, ok := result.ScenarioID.(string)
	require.True(t, ok, "scenario id %v", result.ScenarioID)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	customers := readCollection(t, dbPath, "customers")
	require.Len(t, customers, 1)
	assert.Equal(t, id, customers[0]["scenario_id"])
}

func TestSeedCommandJSONAssertionFailure(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	args := append([]string{"seed", activeCustomerScenario, "--format", "json"}, sqliteArgs(dbPath)...)

	_, _, err := executeRoot(t, args...)
	require.NoError(t, err)

	stdout, _, err := executeRoot(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result SeedResult
	resp := decodeData(t, stdout, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeFailed, resp.Error.Code)
	assert.False(t, result.Pass)
	assert.NotEmpty(t, result.Errors)
}

func TestSeedCommandErrors(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "seed.db")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{
			name:     "missing scenario file",
			args:     append([]string{"seed", filepath.Join(dir, "missing.yaml")}, sqliteArgs(dbPath)...),
			wantCode: ExitCommandError,
			wantOut:  "Error [E005]: failed to load scenario",
		},
		{
			name:     "unknown driver",
			args:     []string{"seed", activeCustomerScenario, "--db-driver", "redis"},
			wantCode: ExitCommandError,
			wantOut:  "Error [E004]: failed to open store",
		},
		{
			name:     "missing args",
			args:     []string{"seed"},
			wantCode: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeRoot(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			if tt.wantOut != "" {
				assert.Contains(t, stdout, tt.wantOut)
			}
		})
	}
}
