package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

// Progress renders the wizard's position and the share of validated steps.
type Progress struct {
	bar  progress.Model
	data domain.Progress
}

// NewProgress creates a progress component for the given summary.
func NewProgress(data domain.Progress) Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return Progress{bar: bar, data: data}
}

// View renders "Step n/m" followed by the bar.
func (p Progress) View() string {
	text := fmt.Sprintf("Step %d/%d", p.data.Position, p.data.Total)
	if p.data.Completed {
		text = fmt.Sprintf("Done %d/%d", p.data.Total, p.data.Total)
	}
	label := lipgloss.NewStyle().Bold(true).Render(text)
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", p.bar.ViewAs(p.data.Fraction()))
}
