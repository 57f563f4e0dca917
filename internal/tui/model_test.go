package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	wizardapp "github.com/alexisbeaulieu97/stepwise/internal/application/wizard"
	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/infrastructure/schema"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

type requiredSchema struct {
	fields   []string
	required []string
}

func (s requiredSchema) Fields() []string { return s.fields }

func (s requiredSchema) Validate(data domain.FormData) domain.ValidationResult {
	result := domain.Passed()
	for _, path := range s.required {
		if !data.HasValue(path) {
			result.AddError(path, "is required")
		}
	}
	return result
}

type mapProvider map[domain.SchemaRef]ports.Schema

func (p mapProvider) Schema(ref domain.SchemaRef) (ports.Schema, error) {
	schema, ok := p[ref]
	if !ok {
		return nil, errors.New("no such schema")
	}
	return schema, nil
}

// controllerWizard adapts a bare controller to the Wizard interface.
type controllerWizard struct {
	*wizardapp.Controller
}

func (w controllerWizard) Fields(step domain.StepDefinition) ([]string, error) {
	return w.Gate().Fields(step)
}

func (w controllerWizard) Update(ctx context.Context, patch map[string]any) error {
	return w.UpdateFormData(ctx, patch)
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	reg, err := domain.NewFrozenRegistry(
		domain.StepDefinition{ID: "business", Title: "Business details", Order: 1, SchemaRef: "business"},
		domain.StepDefinition{ID: "owners", Order: 2, SchemaRef: "owners", Applicable: domain.FieldIn("entityType", "LLC")},
		domain.StepDefinition{ID: "review", Title: "Review", Order: 3},
	)
	require.NoError(t, err)
	ctrl, err := wizardapp.NewController(context.Background(), wizardapp.Options{
		Registry: reg,
		Schemas: mapProvider{
			"business": requiredSchema{fields: []string{"legalName", "entityType"}, required: []string{"legalName"}},
			"owners":   requiredSchema{fields: []string{"owners[*].name"}, required: []string{"owners[*].name"}},
		},
	})
	require.NoError(t, err)
	return NewModel(context.Background(), "Onboarding", controllerWizard{ctrl})
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func press(t *testing.T, m Model, key tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: key})
	return updated.(Model), cmd
}

func TestNewModelInitialisesState(t *testing.T) {
	m := newTestModel(t)

	require.Equal(t, "business", m.step.ID)
	require.Len(t, m.fields, 2)
	require.Equal(t, "legalName", m.fields[0].path)
	require.Equal(t, "Legal Name", m.fields[0].label)
	require.True(t, m.fields[0].input.Focused())
	require.False(t, m.IsFinished())
	require.NotNil(t, m.Init())
}

func TestUpdateMovesFocus(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, tea.KeyTab)
	require.Equal(t, 1, m.focus)
	require.True(t, m.fields[1].input.Focused())
	require.False(t, m.fields[0].input.Focused())

	m, _ = press(t, m, tea.KeyTab)
	require.Equal(t, 0, m.focus)

	m, _ = press(t, m, tea.KeyShiftTab)
	require.Equal(t, 1, m.focus)
}

func TestSubmitBlockedShowsFieldErrors(t *testing.T) {
	m := newTestModel(t)

	m, cmd := press(t, m, tea.KeyEnter)
	require.Nil(t, cmd)
	require.Equal(t, "business", m.step.ID)
	require.Equal(t, []string{"is required"}, m.fieldErrors["legalName"])
	require.Contains(t, m.View(), "is required")
}

func TestSubmitAdvancesAndCompletes(t *testing.T) {
	m := newTestModel(t)

	m = typeText(t, m, "Acme")
	require.Equal(t, "Acme", m.fields[0].input.Value())

	m, _ = press(t, m, tea.KeyEnter)
	require.Equal(t, "review", m.step.ID)
	require.Empty(t, m.fieldErrors)
	require.Equal(t, "Acme", m.state.FormData["legalName"])
	require.Contains(t, m.View(), "Nothing to fill in")

	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	require.True(t, m.IsFinished())
	require.False(t, m.Cancelled())
	require.Contains(t, m.View(), "Onboarding completed")
}

func TestBackNavigation(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, tea.KeyEsc)
	require.Equal(t, "Already at the first step", m.message)

	m = typeText(t, m, "Acme")
	m, _ = press(t, m, tea.KeyEnter)
	require.Equal(t, "review", m.step.ID)

	m, _ = press(t, m, tea.KeyEsc)
	require.Equal(t, "business", m.step.ID)
	require.Equal(t, "Acme", m.fields[0].input.Value())
}

func TestClearingAFieldDeletesIt(t *testing.T) {
	m := newTestModel(t)
	m = typeText(t, m, "A")
	m, _ = press(t, m, tea.KeyEnter)
	m, _ = press(t, m, tea.KeyEsc)
	require.Equal(t, "business", m.step.ID)

	m, _ = press(t, m, tea.KeyBackspace)
	require.Equal(t, map[string]any{"legalName": nil}, m.patch())
}

const sharesDocument = `openapi: 3.0.3
info:
  title: Shares
  version: "1.0"
paths: {}
components:
  schemas:
    Shares:
      type: object
      required: [agreed, share]
      properties:
        agreed:
          type: boolean
        share:
          type: integer
          maximum: 100
`

func TestTypedInputsPassOpenAPISchemas(t *testing.T) {
	ctx := context.Background()
	schemas, err := schema.LoadOpenAPIData(ctx, "shares.yaml", []byte(sharesDocument))
	require.NoError(t, err)
	reg, err := domain.NewFrozenRegistry(
		domain.StepDefinition{ID: "shares", Order: 1, SchemaRef: "openapi:Shares"},
		domain.StepDefinition{ID: "review", Order: 2},
	)
	require.NoError(t, err)
	ctrl, err := wizardapp.NewController(ctx, wizardapp.Options{
		Registry: reg,
		Schemas:  mapProvider{"openapi:Shares": schemas["openapi:Shares"]},
	})
	require.NoError(t, err)
	m := NewModel(ctx, "Shares", controllerWizard{ctrl})
	require.Equal(t, "agreed", m.fields[0].path)
	require.Equal(t, "share", m.fields[1].path)

	m = typeText(t, m, "true")
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "lots")
	m, _ = press(t, m, tea.KeyEnter)
	require.Equal(t, "shares", m.step.ID)
	require.Equal(t, []string{"value must be an integer"}, m.fieldErrors["share"])
	require.NotContains(t, m.fieldErrors, "agreed")

	for range "lots" {
		m, _ = press(t, m, tea.KeyBackspace)
	}
	m = typeText(t, m, "25")
	m, _ = press(t, m, tea.KeyEnter)
	require.Equal(t, "review", m.step.ID)
	require.Empty(t, m.fieldErrors)
}

func TestUpdateHandlesTeaMessages(t *testing.T) {
	m := newTestModel(t)

	m, cmd := press(t, m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	require.True(t, m.Cancelled())
	require.True(t, m.IsFinished())

	m = newTestModel(t)
	updated, cmd := m.Update(tea.QuitMsg{})
	require.Nil(t, cmd)
	require.True(t, updated.(Model).IsFinished())
}

func TestViewRendersLayout(t *testing.T) {
	m := newTestModel(t)

	view := m.View()
	require.Contains(t, view, "Stepwise • Onboarding")
	require.Contains(t, view, "Business details")
	require.Contains(t, view, "Legal Name")
	require.Contains(t, view, "Step 1/2")
	require.Contains(t, view, "Review")
}

func TestStatusIcon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   domain.StepStatus
		expected string
	}{
		{"valid shows checkmark", domain.StatusValid, "✓"},
		{"invalid shows cross", domain.StatusInvalid, "✗"},
		{"skipped shows circle-slash", domain.StatusSkipped, "⊘"},
		{"untouched shows ellipsis", domain.StatusUntouched, "…"},
		{"empty shows ellipsis", "", "…"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Contains(t, StatusIcon(tt.status), tt.expected)
		})
	}
}

func TestFieldLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"legalName":           "Legal Name",
		"owners[0].firstName": "Owners 1 / First Name",
		"tax_id":              "Tax Id",
		"EINNumber":           "EIN Number",
		"address.postal-code": "Address / Postal Code",
	}
	for path, want := range tests {
		require.Equal(t, want, FieldLabel(path), path)
	}
}
