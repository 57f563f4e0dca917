package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

// Wizard is the slice of a session the TUI drives.
type Wizard interface {
	CurrentStep() domain.StepDefinition
	State() domain.State
	Applicable(ctx context.Context) (domain.ApplicableSteps, error)
	Progress(ctx context.Context) (domain.Progress, error)
	Fields(step domain.StepDefinition) ([]string, error)
	Update(ctx context.Context, patch map[string]any) error
	Next(ctx context.Context) (domain.ValidationResult, error)
	Previous(ctx context.Context) error
}

// field is one editable input bound to a concrete form data path.
type field struct {
	path    string
	label   string
	initial string
	input   textinput.Model
}

// Model contains the Bubbletea state for the wizard TUI.
type Model struct {
	ctx    context.Context
	wizard Wizard
	title  string

	step     domain.StepDefinition
	steps    domain.ApplicableSteps
	state    domain.State
	progress domain.Progress

	fields      []field
	focus       int
	fieldErrors map[string][]string
	message     string

	finished  bool
	cancelled bool
}

// NewModel constructs a TUI model positioned on the wizard's current step.
func NewModel(ctx context.Context, title string, w Wizard) Model {
	m := Model{
		ctx:    ctx,
		wizard: w,
		title:  title,
	}
	m.reload()
	return m
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// IsFinished reports whether the wizard completed or was cancelled.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user quit before completion.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// reload refreshes the cached view state from the wizard and rebuilds the
// inputs for the current step.
func (m *Model) reload() {
	m.step = m.wizard.CurrentStep()
	m.state = m.wizard.State()
	m.finished = m.state.Phase == domain.PhaseCompleted

	steps, err := m.wizard.Applicable(m.ctx)
	if err != nil {
		m.message = err.Error()
	}
	m.steps = steps

	progress, err := m.wizard.Progress(m.ctx)
	if err == nil {
		m.progress = progress
	}

	paths, err := m.wizard.Fields(m.step)
	if err != nil {
		m.message = err.Error()
	}

	m.fields = make([]field, 0, len(paths))
	for _, pattern := range paths {
		path := editablePath(pattern)
		input := textinput.New()
		input.Prompt = "› "
		input.Placeholder = path
		initial := ""
		if value, ok := m.state.FormData.Lookup(path); ok && value != nil {
			initial = fmt.Sprint(value)
		}
		input.SetValue(initial)
		m.fields = append(m.fields, field{
			path:    path,
			label:   FieldLabel(path),
			initial: initial,
			input:   input,
		})
	}
	m.focus = 0
	m.applyFocus()
}

func (m *Model) applyFocus() {
	for i := range m.fields {
		if i == m.focus {
			m.fields[i].input.Focus()
			continue
		}
		m.fields[i].input.Blur()
	}
}

// patch collects the inputs whose value changed. Cleared inputs delete the
// stored value.
func (m Model) patch() map[string]any {
	patch := make(map[string]any)
	for _, f := range m.fields {
		value := f.input.Value()
		if value == f.initial {
			continue
		}
		if strings.TrimSpace(value) == "" {
			patch[f.path] = nil
			continue
		}
		patch[f.path] = value
	}
	return patch
}

// editablePath points list wildcards at the first element so a single input
// can edit them.
func editablePath(pattern string) string {
	return strings.ReplaceAll(pattern, "[*]", "[0]")
}
