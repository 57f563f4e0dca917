package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stepwise/internal/tui"
)

func stubTerminal(t *testing.T, interactive bool, program func(context.Context, *cobra.Command, tui.Model) (tui.Model, error)) {
	t.Helper()

	originalInteractive := isInteractive
	originalProgram := runProgram
	t.Cleanup(func() {
		isInteractive = originalInteractive
		runProgram = originalProgram
	})

	isInteractive = func() bool { return interactive }
	if program != nil {
		runProgram = program
	}
}

func TestRunRequiresTerminal(t *testing.T) {
	env := newTestEnv(t)
	stubTerminal(t, false, nil)

	_, err := env.run(t, "run", env.flowPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a terminal")
}

func TestRunRequiresFlowOrResume(t *testing.T) {
	env := newTestEnv(t)
	stubTerminal(t, true, nil)

	_, err := env.run(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--resume")
}

func TestRunSavesProgressWhenCancelled(t *testing.T) {
	env := newTestEnv(t)
	stubTerminal(t, true, func(_ context.Context, _ *cobra.Command, model tui.Model) (tui.Model, error) {
		updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		return updated.(tui.Model), nil
	})

	out, err := env.run(t, "run", env.flowPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wizard cancelled. Resume with: stepwise run --resume ")

	listed, err := env.run(t, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, listed, "Test onboarding")
}

func TestRunResumesAndCompletes(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t, "--set", "legalName=Acme", "--set", "entityType=Corp")

	stubTerminal(t, true, func(_ context.Context, _ *cobra.Command, model tui.Model) (tui.Model, error) {
		var current tea.Model = model
		for i := 0; i < 2; i++ {
			current, _ = current.Update(tea.KeyMsg{Type: tea.KeyEnter})
		}
		return current.(tui.Model), nil
	})

	out, err := env.run(t, "run", "--resume", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Wizard completed. Session "+id+" saved.")
}
