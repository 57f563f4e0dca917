package wizard

import (
	"context"
	"fmt"
	"time"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// Options configures a Controller.
type Options struct {
	Registry *domain.Registry
	Schemas  ports.SchemaProvider
	Sink     ports.JourneySink
	Logger   ports.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// InitialStep starts the wizard at this step when it is applicable. The
	// applicable steps before it are marked visited.
	InitialStep string
	// Attributes are copied into every journey event payload.
	Attributes map[string]interface{}
}

// Controller drives one wizard session. It is not safe for concurrent use:
// calls are expected to be serialised by the caller's event loop.
type Controller struct {
	registry *domain.Registry
	gate     *Gate
	sink     ports.JourneySink
	logger   ports.Logger
	now      func() time.Time
	attrs    map[string]interface{}

	state      domain.State
	applicable domain.ApplicableSteps
	dirty      bool
	fields     map[string][]string

	emitting     bool
	observers    map[int]func(domain.State)
	nextObserver int
}

// NewController validates the flow and positions the wizard on its first
// applicable step, or on opts.InitialStep.
func NewController(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, domain.NewError(domain.ErrCodeEmptyStepGraph, "registry has no steps", nil, nil)
	}
	opts.Registry.Freeze()

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	logger = logger.With("component", "controller", "layer", "application")

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		registry:  opts.Registry,
		gate:      NewGate(opts.Schemas, logger),
		sink:      opts.Sink,
		logger:    logger,
		now:       now,
		attrs:     copyAttributes(opts.Attributes),
		state:     domain.NewState(),
		fields:    make(map[string][]string),
		observers: make(map[int]func(domain.State)),
	}

	for _, step := range c.registry.All() {
		fields, err := c.gate.Fields(step)
		if err != nil {
			return nil, err
		}
		c.fields[step.ID] = fields
	}

	steps, err := domain.ComputeApplicable(c.registry, c.state.FormData)
	if err != nil {
		return nil, err
	}

	start := steps[0]
	if opts.InitialStep != "" {
		if _, ok := c.registry.Lookup(opts.InitialStep); !ok {
			return nil, domain.NewError(domain.ErrCodeInvalidStep, "initial step is not registered", nil, map[string]interface{}{
				"step_id": opts.InitialStep,
			})
		}
		if idx := steps.IndexOf(opts.InitialStep); idx >= 0 {
			start = steps[idx]
			for _, earlier := range steps[:idx] {
				c.state.Visited[earlier.ID] = struct{}{}
			}
		} else {
			logger.Warn(ctx, "initial step not applicable, starting at first step", "step_id", opts.InitialStep, "first_step_id", start.ID)
		}
	}

	c.state.CurrentStepID = start.ID
	c.state.Visited[start.ID] = struct{}{}
	c.commitSteps(steps)

	logger.Debug(ctx, "wizard initialised", "step_id", start.ID, "applicable", len(steps), "registered", c.registry.Len())
	return c, nil
}

// Next validates the current step and advances. When validation fails the
// returned error is a *GateBlockedError carrying the result and nothing
// changes.
func (c *Controller) Next(ctx context.Context) (domain.ValidationResult, error) {
	if err := c.enter("next"); err != nil {
		return domain.ValidationResult{}, err
	}
	if c.state.Phase == domain.PhaseCompleted {
		return domain.ValidationResult{}, completedError("next")
	}

	current := c.currentStep()
	result, err := c.gate.Validate(ctx, current, c.state.FormData)
	if err != nil {
		return result, err
	}
	if !result.Valid {
		c.logger.Info(ctx, "navigation blocked by validation", "step_id", current.ID, "fields", result.ErrorPaths())
		return result, &domain.GateBlockedError{StepID: current.ID, Result: result}
	}

	steps, err := c.computeSteps()
	if err != nil {
		c.logger.Error(ctx, "recompute failed", "step_id", current.ID, "error", err)
		return result, err
	}

	var (
		target domain.StepDefinition
		found  bool
	)
	if idx := steps.IndexOf(current.ID); idx >= 0 {
		if idx+1 < len(steps) {
			target, found = steps[idx+1], true
		}
	} else {
		target, found = domain.NextAfter(c.registry, steps, current.ID)
	}

	c.state.StepStatus[current.ID] = domain.StatusValid
	c.commitSteps(steps)

	if !found {
		c.state.Phase = domain.PhaseCompleted
		c.logger.Info(ctx, "wizard completed", "last_step_id", current.ID)
		c.emitCompleted(ctx, current.ID)
		c.notify(ctx)
		return result, nil
	}

	c.moveTo(target.ID)
	c.logger.Info(ctx, "advanced", "from", current.ID, "to", target.ID)
	c.emitStepEntered(ctx, target.ID, current.ID)
	c.notify(ctx)
	return result, nil
}

// Previous moves to the preceding applicable step. It never validates.
func (c *Controller) Previous(ctx context.Context) error {
	if err := c.enter("previous"); err != nil {
		return err
	}
	if c.state.Phase == domain.PhaseCompleted {
		return completedError("previous")
	}

	steps, err := c.computeSteps()
	if err != nil {
		return err
	}

	current := c.state.CurrentStepID
	var (
		target domain.StepDefinition
		found  bool
	)
	switch idx := steps.IndexOf(current); {
	case idx > 0:
		target, found = steps[idx-1], true
	case idx < 0:
		target, found = domain.PreviousBefore(c.registry, steps, current)
	}
	if !found {
		return domain.NewError(domain.ErrCodeNoPreviousStep, "already at the first step", nil, map[string]interface{}{
			"step_id": current,
		})
	}

	c.commitSteps(steps)
	c.moveTo(target.ID)
	c.logger.Debug(ctx, "moved back", "from", current, "to", target.ID)
	c.notify(ctx)
	return nil
}

// JumpTo moves to a visited step, or to the immediate next step when the
// current one validates.
func (c *Controller) JumpTo(ctx context.Context, stepID string) error {
	if err := c.enter("jump"); err != nil {
		return err
	}
	if c.state.Phase == domain.PhaseCompleted {
		return completedError("jump")
	}
	if _, ok := c.registry.Lookup(stepID); !ok {
		return invalidJump(stepID, "step is not registered")
	}

	steps, err := c.computeSteps()
	if err != nil {
		return err
	}
	if !steps.Contains(stepID) {
		return invalidJump(stepID, "step is not applicable")
	}

	current := c.currentStep()
	if stepID == current.ID {
		c.commitSteps(steps)
		return nil
	}

	markValid := false
	if !c.state.HasVisited(stepID) {
		next, ok := c.immediateNext(steps, current.ID)
		if !ok || next.ID != stepID {
			return invalidJump(stepID, "step has not been visited")
		}
		result, err := c.gate.Validate(ctx, current, c.state.FormData)
		if err != nil {
			return err
		}
		if !result.Valid {
			return invalidJump(stepID, "current step is not valid").WithContext(map[string]interface{}{
				"field_errors": result.ErrorPaths(),
			})
		}
		markValid = true
	}

	if markValid {
		c.state.StepStatus[current.ID] = domain.StatusValid
	}
	c.commitSteps(steps)
	c.moveTo(stepID)
	c.logger.Info(ctx, "jumped", "from", current.ID, "to", stepID)
	c.emitStepEntered(ctx, stepID, current.ID)
	c.notify(ctx)
	return nil
}

// UpdateFormData merges patch, keyed by field path, into the form data. A
// nil value deletes the path. Recomputing the applicable steps is deferred
// until the next navigation or read.
func (c *Controller) UpdateFormData(ctx context.Context, patch map[string]any) error {
	if err := c.enter("update"); err != nil {
		return err
	}
	if c.state.Phase == domain.PhaseCompleted {
		return completedError("update")
	}

	next := c.state.FormData.Clone()
	changed, err := next.Apply(patch)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}
	c.state.FormData = next

	for stepID, fields := range c.fields {
		if !ownsAny(fields, changed) {
			continue
		}
		if c.state.StatusOf(stepID) != domain.StatusSkipped {
			c.state.StepStatus[stepID] = domain.StatusUntouched
		}
	}

	if domain.DependsOn(c.registry, changed) {
		c.dirty = true
		c.state.Phase = domain.PhaseRecomputing
	}
	c.logger.Debug(ctx, "form data updated", "paths", changed, "recompute", c.dirty)
	c.notify(ctx)
	return nil
}

// ValidateCurrent runs the gate for the current step and records the outcome
// in the step status.
func (c *Controller) ValidateCurrent(ctx context.Context) (domain.ValidationResult, error) {
	if err := c.enter("validate"); err != nil {
		return domain.ValidationResult{}, err
	}
	current := c.currentStep()
	result, err := c.gate.Validate(ctx, current, c.state.FormData)
	if err != nil {
		return result, err
	}
	status := domain.StatusInvalid
	if result.Valid {
		status = domain.StatusValid
	}
	if c.state.StatusOf(current.ID) != status {
		c.state.StepStatus[current.ID] = status
		c.notify(ctx)
	}
	return result, nil
}

// State returns a deep copy of the current state.
func (c *Controller) State() domain.State {
	return c.state.Clone()
}

// CurrentStep returns the definition of the current step.
func (c *Controller) CurrentStep() domain.StepDefinition {
	return c.currentStep()
}

// Registry exposes the flow's registry.
func (c *Controller) Registry() *domain.Registry {
	return c.registry
}

// Gate exposes the controller's validation gate.
func (c *Controller) Gate() *Gate {
	return c.gate
}

// Applicable returns the applicable steps, recomputing them if an edit made
// the cached list stale. While observers or the sink are being notified the
// recomputed list is returned without being committed.
func (c *Controller) Applicable(ctx context.Context) (domain.ApplicableSteps, error) {
	steps, err := c.computeSteps()
	if err != nil {
		return nil, err
	}
	if c.dirty && !c.emitting {
		c.commitSteps(steps)
	}
	return append(domain.ApplicableSteps(nil), steps...), nil
}

// Progress summarises the wizard's position.
func (c *Controller) Progress(ctx context.Context) (domain.Progress, error) {
	steps, err := c.Applicable(ctx)
	if err != nil {
		return domain.Progress{}, err
	}
	return domain.ComputeProgress(c.state, steps), nil
}

// Serialize captures the state for persistence.
func (c *Controller) Serialize() domain.Snapshot {
	return c.state.Snapshot(c.now())
}

// Restore replaces the state with snapshot. Snapshots referencing unknown
// steps are rejected and the current state is kept.
func (c *Controller) Restore(ctx context.Context, snapshot domain.Snapshot) (domain.State, error) {
	if err := c.enter("restore"); err != nil {
		return domain.State{}, err
	}
	if err := snapshot.Check(c.registry); err != nil {
		c.logger.Warn(ctx, "snapshot rejected", "error", err)
		return domain.State{}, err
	}

	restored := snapshot.State()
	steps, err := domain.ComputeApplicable(c.registry, restored.FormData)
	if err != nil {
		return domain.State{}, err
	}

	c.state = restored
	if restored.Phase == domain.PhaseRecomputing {
		c.applicable = nil
		c.dirty = true
	} else {
		c.commitSteps(steps)
	}
	c.logger.Info(ctx, "state restored", "step_id", restored.CurrentStepID, "phase", string(c.state.Phase))
	c.notify(ctx)
	return c.state.Clone(), nil
}

// Subscribe registers an observer notified with a state copy after every
// committed change. Observers must not call mutating controller methods.
func (c *Controller) Subscribe(fn func(domain.State)) ports.Subscription {
	if fn == nil {
		return observerSubscription{}
	}
	c.nextObserver++
	id := c.nextObserver
	c.observers[id] = fn
	return observerSubscription{cancel: func() { delete(c.observers, id) }}
}

func (c *Controller) enter(op string) error {
	if c.emitting {
		return domain.NewError(domain.ErrCodeReentrant, fmt.Sprintf("%s called while the controller is notifying", op), nil, map[string]interface{}{
			"operation": op,
		})
	}
	return nil
}

func (c *Controller) currentStep() domain.StepDefinition {
	step, _ := c.registry.Lookup(c.state.CurrentStepID)
	return step
}

func (c *Controller) immediateNext(steps domain.ApplicableSteps, currentID string) (domain.StepDefinition, bool) {
	if idx := steps.IndexOf(currentID); idx >= 0 {
		if idx+1 < len(steps) {
			return steps[idx+1], true
		}
		return domain.StepDefinition{}, false
	}
	return domain.NextAfter(c.registry, steps, currentID)
}

func (c *Controller) computeSteps() (domain.ApplicableSteps, error) {
	if !c.dirty && c.applicable != nil {
		return c.applicable, nil
	}
	return domain.ComputeApplicable(c.registry, c.state.FormData)
}

// commitSteps installs steps as the applicable list and reconciles statuses:
// non-applicable steps become skipped, re-applicable ones untouched.
func (c *Controller) commitSteps(steps domain.ApplicableSteps) {
	c.applicable = steps
	c.dirty = false
	for _, step := range c.registry.All() {
		status, recorded := c.state.StepStatus[step.ID]
		switch {
		case !steps.Contains(step.ID):
			c.state.StepStatus[step.ID] = domain.StatusSkipped
		case !recorded || status == domain.StatusSkipped:
			c.state.StepStatus[step.ID] = domain.StatusUntouched
		}
	}
	if c.state.Phase == domain.PhaseCompleted {
		return
	}
	if steps.Contains(c.state.CurrentStepID) {
		c.state.Phase = domain.PhaseAtStep
	} else {
		c.state.Phase = domain.PhaseRecomputing
	}
}

func (c *Controller) moveTo(stepID string) {
	c.state.CurrentStepID = stepID
	c.state.Visited[stepID] = struct{}{}
	c.state.Phase = domain.PhaseAtStep
}

func ownsAny(fields, changed []string) bool {
	for _, field := range fields {
		for _, path := range changed {
			if domain.PathsOverlap(field, path) {
				return true
			}
		}
	}
	return false
}

func completedError(op string) error {
	return domain.NewError(domain.ErrCodeCompleted, "wizard is already completed", nil, map[string]interface{}{
		"operation": op,
	})
}

func invalidJump(stepID, reason string) *domain.DomainError {
	return domain.NewError(domain.ErrCodeInvalidJump, reason, nil, map[string]interface{}{
		"step_id": stepID,
	})
}

func copyAttributes(attrs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

type observerSubscription struct {
	cancel func()
}

func (s observerSubscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}
