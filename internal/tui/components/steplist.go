package components

import (
	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

// StepEntry represents a single applicable step for rendering.
type StepEntry struct {
	ID      string
	Label   string
	Status  domain.StepStatus
	Current bool
	Visited bool
}

// StepList renders the applicable steps with their recorded status.
type StepList struct {
	entries []StepEntry
}

// NewStepList constructs a step list component.
func NewStepList(steps domain.ApplicableSteps, state domain.State) StepList {
	entries := make([]StepEntry, 0, len(steps))
	for _, step := range steps {
		entries = append(entries, StepEntry{
			ID:      step.ID,
			Label:   step.Label(),
			Status:  state.StatusOf(step.ID),
			Current: step.ID == state.CurrentStepID && state.Phase != domain.PhaseCompleted,
			Visited: state.HasVisited(step.ID),
		})
	}
	return StepList{entries: entries}
}

// Entries returns the ordered step entries.
func (s StepList) Entries() []StepEntry {
	clone := make([]StepEntry, len(s.entries))
	copy(clone, s.entries)
	return clone
}
