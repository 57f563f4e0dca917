package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testFlow = `version: "1.0"
name: "Test onboarding"
schemas:
  rules:
    company:
      fields:
        legalName: "required,min=2"
        entityType: "required,oneof=LLC Corp"
    owners:
      fields:
        owners: "required,min=1"
        owners[*].name: "required"
steps:
  - id: company
    title: Company
    schema: company
  - id: owners
    title: Owners
    schema: owners
    visible_when:
      entityType: [LLC]
  - id: review
    title: Review
`

type testEnv struct {
	dir       string
	flowPath  string
	storePath string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	flowPath := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(flowPath, []byte(testFlow), 0o644))

	return testEnv{
		dir:       dir,
		flowPath:  flowPath,
		storePath: filepath.Join(dir, "sessions.json"),
	}
}

// run executes the root command with the environment's store and returns
// stdout.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommand(append([]string{"--store-path", e.storePath}, args...)...)
}

func executeCommand(args ...string) (string, error) {
	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), err
}

func (e testEnv) startSession(t *testing.T, extra ...string) string {
	t.Helper()

	args := append([]string{"session", "start", e.flowPath, "--json"}, extra...)
	out, err := e.run(t, args...)
	require.NoError(t, err)

	var payload sessionJSON
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.NotEmpty(t, payload.ID)
	return payload.ID
}
