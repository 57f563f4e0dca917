package components

import (
	"fmt"
	"strings"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

// SummaryData aggregates what the summary shows.
type SummaryData struct {
	Flow      string
	Total     int
	Counts    map[domain.StepStatus]int
	Finished  bool
	Cancelled bool
	Message   string
}

// Summary renders a textual wizard summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if msg := strings.TrimSpace(s.data.Message); msg != "" {
		lines = append(lines, msg)
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Wizard cancelled; progress is saved")
	case s.data.Finished:
		lines = append(lines, fmt.Sprintf("%s completed", s.data.Flow))
	}

	if s.data.Finished && s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Steps: %d valid, %d invalid, %d untouched of %d",
			s.data.Counts[domain.StatusValid],
			s.data.Counts[domain.StatusInvalid],
			s.data.Counts[domain.StatusUntouched],
			s.data.Total,
		))
	}

	return strings.Join(lines, "\n")
}
