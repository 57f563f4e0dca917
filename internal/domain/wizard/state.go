package wizard

import (
	"fmt"
	"sort"
	"time"
)

// StepStatus tracks the validation outcome recorded for a step.
type StepStatus string

const (
	StatusUntouched StepStatus = "untouched"
	StatusValid     StepStatus = "valid"
	StatusInvalid   StepStatus = "invalid"
	StatusSkipped   StepStatus = "skipped"
)

// Valid reports whether s is a known status.
func (s StepStatus) Valid() bool {
	switch s {
	case StatusUntouched, StatusValid, StatusInvalid, StatusSkipped:
		return true
	}
	return false
}

// Phase is the controller's coarse state.
type Phase string

const (
	// PhaseAtStep is the normal state: the current step is applicable.
	PhaseAtStep Phase = "at_step"
	// PhaseRecomputing means form data changed in a way that may alter the
	// applicable list; it is resolved before the next navigation.
	PhaseRecomputing Phase = "recomputing"
	// PhaseCompleted is terminal.
	PhaseCompleted Phase = "completed"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseAtStep, PhaseRecomputing, PhaseCompleted:
		return true
	}
	return false
}

// State is the mutable wizard state for one onboarding session.
type State struct {
	FormData      FormData
	CurrentStepID string
	Visited       map[string]struct{}
	StepStatus    map[string]StepStatus
	Phase         Phase
}

// NewState returns an empty state positioned nowhere.
func NewState() State {
	return State{
		FormData:   FormData{},
		Visited:    make(map[string]struct{}),
		StepStatus: make(map[string]StepStatus),
		Phase:      PhaseAtStep,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{
		FormData:      s.FormData.Clone(),
		CurrentStepID: s.CurrentStepID,
		Visited:       make(map[string]struct{}, len(s.Visited)),
		StepStatus:    make(map[string]StepStatus, len(s.StepStatus)),
		Phase:         s.Phase,
	}
	for id := range s.Visited {
		out.Visited[id] = struct{}{}
	}
	for id, status := range s.StepStatus {
		out.StepStatus[id] = status
	}
	return out
}

// HasVisited reports whether id was ever the current step.
func (s State) HasVisited(id string) bool {
	_, ok := s.Visited[id]
	return ok
}

// VisitedIDs returns the visited step ids sorted.
func (s State) VisitedIDs() []string {
	ids := make([]string, 0, len(s.Visited))
	for id := range s.Visited {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StatusOf returns the recorded status, defaulting to untouched.
func (s State) StatusOf(id string) StepStatus {
	if status, ok := s.StepStatus[id]; ok {
		return status
	}
	return StatusUntouched
}

// SnapshotVersion is the snapshot format produced by this package.
const SnapshotVersion = 1

// Snapshot is the plain, serialisable form of State.
type Snapshot struct {
	Version       int                   `json:"version"`
	CurrentStepID string                `json:"current_step_id"`
	FormData      map[string]any        `json:"form_data"`
	Visited       []string              `json:"visited_step_ids"`
	StepStatus    map[string]StepStatus `json:"step_status"`
	Phase         Phase                 `json:"phase"`
	SavedAt       time.Time             `json:"saved_at"`
}

// Snapshot converts the state into its persisted form.
func (s State) Snapshot(savedAt time.Time) Snapshot {
	clone := s.Clone()
	return Snapshot{
		Version:       SnapshotVersion,
		CurrentStepID: clone.CurrentStepID,
		FormData:      map[string]any(clone.FormData),
		Visited:       clone.VisitedIDs(),
		StepStatus:    clone.StepStatus,
		Phase:         clone.Phase,
		SavedAt:       savedAt.UTC(),
	}
}

// Check verifies the snapshot against reg. Every referenced step id must be
// registered and the version and phase must be supported.
func (s Snapshot) Check(reg *Registry) error {
	if s.Version != SnapshotVersion {
		return incompatible(fmt.Sprintf("unsupported snapshot version %d", s.Version), map[string]interface{}{
			"version":  s.Version,
			"expected": SnapshotVersion,
		})
	}
	if !s.Phase.Valid() {
		return incompatible(fmt.Sprintf("unknown phase %q", s.Phase), nil)
	}
	if _, ok := reg.Lookup(s.CurrentStepID); !ok {
		return incompatible("snapshot references an unknown current step", map[string]interface{}{"step_id": s.CurrentStepID})
	}
	for _, id := range s.Visited {
		if _, ok := reg.Lookup(id); !ok {
			return incompatible("snapshot references an unknown visited step", map[string]interface{}{"step_id": id})
		}
	}
	for id, status := range s.StepStatus {
		if _, ok := reg.Lookup(id); !ok {
			return incompatible("snapshot references an unknown step status", map[string]interface{}{"step_id": id})
		}
		if !status.Valid() {
			return incompatible(fmt.Sprintf("unknown step status %q", status), map[string]interface{}{"step_id": id})
		}
	}
	return nil
}

// State rebuilds the in-memory state. Call Check first.
func (s Snapshot) State() State {
	state := NewState()
	state.FormData = FormData(s.FormData).Clone()
	state.CurrentStepID = s.CurrentStepID
	state.Phase = s.Phase
	for _, id := range s.Visited {
		state.Visited[id] = struct{}{}
	}
	for id, status := range s.StepStatus {
		state.StepStatus[id] = status
	}
	return state
}

func incompatible(message string, ctx map[string]interface{}) *DomainError {
	return NewError(ErrCodeIncompatible, message, nil, ctx)
}

// Progress summarises where the wizard stands within its applicable steps.
type Progress struct {
	Total     int                `json:"total"`
	Position  int                `json:"position"`
	Completed bool               `json:"completed"`
	Counts    map[StepStatus]int `json:"counts"`
}

// ComputeProgress derives a progress summary. Position is 1-based and is 0
// when the current step is not in steps.
func ComputeProgress(state State, steps ApplicableSteps) Progress {
	progress := Progress{
		Total:     len(steps),
		Position:  steps.IndexOf(state.CurrentStepID) + 1,
		Completed: state.Phase == PhaseCompleted,
		Counts:    make(map[StepStatus]int),
	}
	for _, step := range steps {
		progress.Counts[state.StatusOf(step.ID)]++
	}
	return progress
}

// Fraction returns the share of applicable steps already validated.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	if p.Completed {
		return 1
	}
	return float64(p.Counts[StatusValid]) / float64(p.Total)
}
