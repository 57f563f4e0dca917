package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	out, err := env.run(t, "session", "next", id)
	var blocked *domain.GateBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, 3, exitCode(err))
	assert.Contains(t, out, "Validation failed:")
	assert.Contains(t, out, "legalName: is required")
	assert.Contains(t, out, "entityType: is required")

	out, err = env.run(t, "session", "set", id, "legalName=Acme", "entityType=LLC")
	require.NoError(t, err)
	assert.Contains(t, out, "legalName = Acme")

	out, err = env.run(t, "session", "next", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Step:     Owners [2/3]")

	_, err = env.run(t, "session", "next", id)
	require.Error(t, err)

	_, err = env.run(t, "session", "set", id, "owners[0].name=Ada")
	require.NoError(t, err)

	out, err = env.run(t, "session", "validate", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation passed.")

	out, err = env.run(t, "session", "next", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Step:     Review [3/3]")

	out, err = env.run(t, "session", "back", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Step:     Owners [2/3]")

	out, err = env.run(t, "session", "jump", id, "review")
	require.NoError(t, err)
	assert.Contains(t, out, "Review")

	out, err = env.run(t, "session", "next", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Progress: completed")

	_, err = env.run(t, "session", "back", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WIZARD_COMPLETED")

	out, err = env.run(t, "session", "show", id, "--json")
	require.NoError(t, err)
	var payload sessionJSON
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, domain.PhaseCompleted, payload.Phase)
	assert.Equal(t, []string{"company", "owners", "review"}, payload.Steps)
	assert.Equal(t, domain.StatusValid, payload.Status["owners"])
	assert.Equal(t, "Acme", payload.FormData["legalName"])
}

func TestSessionJumpRejectsUnvisitedSteps(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	_, err := env.run(t, "session", "jump", id, "review")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_JUMP")

	_, err = env.run(t, "session", "back", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_PREVIOUS_STEP")
}

func TestSessionStartOptions(t *testing.T) {
	env := newTestEnv(t)

	id := env.startSession(t, "--set", "entityType=LLC", "--set", "legalName=Acme", "--initial-step", "review")

	out, err := env.run(t, "session", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Step:     Review [3/3]")
	assert.Contains(t, out, "entityType = LLC")

	_, err = env.run(t, "session", "start", env.flowPath, "--initial-step", "nope")
	require.Error(t, err)
}

func TestSessionListAndDelete(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions stored yet.")

	first := env.startSession(t)
	second := env.startSession(t)

	out, err = env.run(t, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, first)
	assert.Contains(t, out, second)

	out, err = env.run(t, "session", "list", "--json")
	require.NoError(t, err)
	var listed []sessionListJSON
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "Test onboarding", listed[0].Flow)
	assert.Equal(t, "company", listed[0].StepID)

	out, err = env.run(t, "session", "delete", first)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted session "+first)

	_, err = env.run(t, "session", "show", first)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")

	_, err = env.run(t, "session", "delete", first)
	require.Error(t, err)
}

func TestSessionSQLiteStore(t *testing.T) {
	env := newTestEnv(t)
	dbPath := filepath.Join(env.dir, "data", "sessions.db")

	out, err := executeCommand("--store", "sqlite", "--store-path", dbPath, "session", "start", env.flowPath, "--json")
	require.NoError(t, err)
	var payload sessionJSON
	require.NoError(t, json.Unmarshal([]byte(out), &payload))

	out, err = executeCommand("--store", "sqlite", "--store-path", dbPath, "session", "set", payload.ID, "legalName=Acme", "entityType=Corp")
	require.NoError(t, err)
	assert.Contains(t, out, "entityType = Corp")

	out, err = executeCommand("--store", "sqlite", "--store-path", dbPath, "session", "next", payload.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Step:     Review [2/2]")

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
}

func TestSessionDefaultStoreLivesUnderHome(t *testing.T) {
	env := newTestEnv(t)

	_, err := executeCommand("session", "start", env.flowPath)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(env.dir, ".stepwise", "sessions.json"))
	require.NoError(t, err)
}

func TestUnknownStoreKind(t *testing.T) {
	newTestEnv(t)

	_, err := executeCommand("--store", "redis", "session", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store kind")
}

func TestJourneyLogRecordsEvents(t *testing.T) {
	env := newTestEnv(t)
	logPath := filepath.Join(env.dir, "journey", "events.jsonl")

	id := env.startSession(t, "--set", "legalName=Acme", "--set", "entityType=Corp")
	_, err := env.run(t, "--journey-log", logPath, "session", "next", id)
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry struct {
			Event string                 `json:"event"`
			Data  map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		names = append(names, entry.Event)
		assert.Equal(t, id, entry.Data["session_id"])
	}
	assert.Contains(t, names, "wizard.step_entered")
	assert.Contains(t, names, "session.saved")
}
