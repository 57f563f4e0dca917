package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			m.moveFocus(1)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.moveFocus(-1)
			return m, nil
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyEsc, tea.KeyCtrlB:
			return m.back()
		}
		if m.focus < len(m.fields) {
			var cmd tea.Cmd
			m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
			return m, cmd
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}

func (m *Model) moveFocus(delta int) {
	if len(m.fields) == 0 {
		return
	}
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	m.applyFocus()
}

// submit saves the edited inputs and advances. A blocked gate keeps the
// inputs and shows the field errors.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.finished {
		return m, tea.Quit
	}

	if patch := m.patch(); len(patch) > 0 {
		if err := m.wizard.Update(m.ctx, patch); err != nil {
			m.message = err.Error()
			return m, nil
		}
		for i := range m.fields {
			m.fields[i].initial = m.fields[i].input.Value()
		}
	}

	_, err := m.wizard.Next(m.ctx)
	var blocked *domain.GateBlockedError
	switch {
	case errors.As(err, &blocked):
		m.fieldErrors = blocked.Result.FieldErrors
		m.message = "Fix the highlighted fields to continue"
		m.state = m.wizard.State()
		return m, nil
	case err != nil:
		m.message = err.Error()
		return m, nil
	}

	m.fieldErrors = nil
	m.message = ""
	m.reload()
	if m.finished {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) back() (tea.Model, tea.Cmd) {
	if m.finished {
		return m, nil
	}
	if err := m.wizard.Previous(m.ctx); err != nil {
		if domain.IsCode(err, domain.ErrCodeNoPreviousStep) {
			m.message = "Already at the first step"
		} else {
			m.message = err.Error()
		}
		return m, nil
	}
	m.fieldErrors = nil
	m.message = ""
	m.reload()
	return m, nil
}
