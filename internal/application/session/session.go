package session

import (
	"context"
	"errors"
	"time"

	wizardapp "github.com/alexisbeaulieu97/stepwise/internal/application/wizard"
	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// Session is one persisted wizard run. Every successful mutation is saved to
// the store before returning.
type Session struct {
	id         string
	flowPath   string
	flow       *ports.Flow
	controller *wizardapp.Controller
	service    *Service
	createdAt  time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// FlowPath returns the path of the flow file the session was started from.
func (s *Session) FlowPath() string { return s.flowPath }

// Flow returns the loaded flow.
func (s *Session) Flow() *ports.Flow { return s.flow }

// Controller exposes the wizard controller driving the session.
func (s *Session) Controller() *wizardapp.Controller { return s.controller }

// State returns a copy of the wizard state.
func (s *Session) State() domain.State { return s.controller.State() }

// CurrentStep returns the definition of the current step.
func (s *Session) CurrentStep() domain.StepDefinition { return s.controller.CurrentStep() }

// Progress summarises the session's position.
func (s *Session) Progress(ctx context.Context) (domain.Progress, error) {
	return s.controller.Progress(ctx)
}

// Applicable returns the steps that currently apply, in order.
func (s *Session) Applicable(ctx context.Context) (domain.ApplicableSteps, error) {
	return s.controller.Applicable(ctx)
}

// Fields lists the field paths owned by step's schema.
func (s *Session) Fields(step domain.StepDefinition) ([]string, error) {
	return s.controller.Gate().Fields(step)
}

// Next validates the current step and advances. A blocked gate leaves the
// stored snapshot untouched.
func (s *Session) Next(ctx context.Context) (domain.ValidationResult, error) {
	var result domain.ValidationResult
	err := s.mutate(ctx, func() error {
		var err error
		result, err = s.controller.Next(ctx)
		return err
	})
	return result, err
}

// Previous moves back one applicable step.
func (s *Session) Previous(ctx context.Context) error {
	return s.mutate(ctx, func() error {
		return s.controller.Previous(ctx)
	})
}

// JumpTo moves to a visited step or the immediate next one.
func (s *Session) JumpTo(ctx context.Context, stepID string) error {
	return s.mutate(ctx, func() error {
		return s.controller.JumpTo(ctx, stepID)
	})
}

// Update merges patch into the form data.
func (s *Session) Update(ctx context.Context, patch map[string]any) error {
	return s.mutate(ctx, func() error {
		return s.controller.UpdateFormData(ctx, patch)
	})
}

// Validate runs the gate for the current step and stores the outcome.
func (s *Session) Validate(ctx context.Context) (domain.ValidationResult, error) {
	var result domain.ValidationResult
	err := s.mutate(ctx, func() error {
		var err error
		result, err = s.controller.ValidateCurrent(ctx)
		return err
	})
	return result, err
}

// mutate runs apply and saves the result. When the save fails the controller
// is rolled back to the snapshot taken before apply, so the in-memory wizard
// always matches the stored one.
func (s *Session) mutate(ctx context.Context, apply func() error) error {
	before := s.controller.Serialize()
	if err := apply(); err != nil {
		return err
	}
	saveErr := s.Save(ctx)
	if saveErr == nil {
		return nil
	}
	if _, err := s.controller.Restore(ctx, before); err != nil {
		s.service.logError(ctx, "failed to roll back session after save error", "session_id", s.id, "error", err)
	}
	return saveErr
}

// Save persists the current snapshot and publishes session.saved.
func (s *Session) Save(ctx context.Context) error {
	svc := s.service
	snapshot := s.controller.Serialize()
	record := ports.SessionRecord{
		ID:        s.id,
		FlowName:  s.flow.Name,
		FlowPath:  s.flowPath,
		Snapshot:  snapshot,
		CreatedAt: s.createdAt,
		UpdatedAt: svc.now().UTC(),
	}
	if err := svc.store.Save(ctx, record); err != nil {
		svc.logError(ctx, "failed to save session", "session_id", s.id, "error", err)
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return domain.NewError(domain.ErrCodeInternal, "failed to save session", err, map[string]interface{}{"session_id": s.id})
	}

	publishEvent(ctx, svc.publisher, svc.logger, ports.EventSessionSaved, map[string]interface{}{
		"session_id": s.id,
		"flow":       s.flow.Name,
		"step_id":    snapshot.CurrentStepID,
		"phase":      string(snapshot.Phase),
	})
	return nil
}
