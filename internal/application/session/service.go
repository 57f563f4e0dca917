package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	wizardapp "github.com/alexisbeaulieu97/stepwise/internal/application/wizard"
	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// Options wires a Service to its ports.
type Options struct {
	Loader    ports.FlowLoader
	Store     ports.SnapshotStore
	Sink      ports.JourneySink
	Publisher ports.EventPublisher
	Logger    ports.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// NewID defaults to random UUIDs.
	NewID func() string
}

// Service starts, resumes and persists wizard sessions.
type Service struct {
	loader    ports.FlowLoader
	store     ports.SnapshotStore
	sink      ports.JourneySink
	publisher ports.EventPublisher
	logger    ports.Logger
	now       func() time.Time
	newID     func() string
}

// NewService constructs a Service. Loader and Store are required.
func NewService(opts Options) (*Service, error) {
	if opts.Loader == nil || opts.Store == nil {
		return nil, domain.NewError(domain.ErrCodeInternal, "session service needs a flow loader and a store", nil, nil)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{
		loader:    opts.Loader,
		store:     opts.Store,
		sink:      opts.Sink,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       now,
		newID:     newID,
	}, nil
}

// Start loads the flow at flowPath and opens a new session on it. A non-empty
// initialStep overrides the flow's own initial_step.
func (s *Service) Start(ctx context.Context, flowPath, initialStep string) (*Session, error) {
	flow, err := s.loader.Load(ctx, flowPath)
	if err != nil {
		s.logError(ctx, "failed to load flow", "flow_path", flowPath, "error", err)
		return nil, err
	}
	if initialStep == "" {
		initialStep = flow.InitialStep
	}

	id := s.newID()
	controller, err := s.controller(ctx, id, flow, initialStep)
	if err != nil {
		s.logError(ctx, "failed to start session", "flow_path", flowPath, "error", err)
		return nil, err
	}

	session := &Session{
		id:         id,
		flowPath:   flowPath,
		flow:       flow,
		controller: controller,
		service:    s,
		createdAt:  s.now().UTC(),
	}
	if err := session.Save(ctx); err != nil {
		return nil, err
	}

	s.logInfo(ctx, "session started", "session_id", id, "flow", flow.Name, "step_id", controller.CurrentStep().ID)
	return session, nil
}

// Resume reopens a stored session. The flow is reloaded from the recorded
// path, so a flow edited in incompatible ways is rejected by the snapshot
// check.
func (s *Service) Resume(ctx context.Context, id string) (*Session, error) {
	record, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	flow, err := s.loader.Load(ctx, record.FlowPath)
	if err != nil {
		s.logError(ctx, "failed to load flow for session", "session_id", id, "flow_path", record.FlowPath, "error", err)
		return nil, err
	}

	controller, err := s.controller(ctx, id, flow, "")
	if err != nil {
		return nil, err
	}
	if _, err := controller.Restore(ctx, record.Snapshot); err != nil {
		s.logError(ctx, "failed to restore session", "session_id", id, "error", err)
		return nil, err
	}

	s.logInfo(ctx, "session resumed", "session_id", id, "step_id", controller.CurrentStep().ID)
	return &Session{
		id:         id,
		flowPath:   record.FlowPath,
		flow:       flow,
		controller: controller,
		service:    s,
		createdAt:  record.CreatedAt,
	}, nil
}

// List returns the stored sessions, most recently updated first.
func (s *Service) List(ctx context.Context) ([]ports.SessionRecord, error) {
	return s.store.List(ctx)
}

// Delete removes a stored session.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logInfo(ctx, "session deleted", "session_id", id)
	return nil
}

func (s *Service) controller(ctx context.Context, id string, flow *ports.Flow, initialStep string) (*wizardapp.Controller, error) {
	logger := s.logger
	if logger != nil {
		logger = logger.With("session_id", id)
	}
	return wizardapp.NewController(ctx, wizardapp.Options{
		Registry:    flow.Registry,
		Schemas:     flow.Schemas,
		Sink:        s.sink,
		Logger:      logger,
		Now:         s.now,
		InitialStep: initialStep,
		Attributes: map[string]interface{}{
			"session_id": id,
			"flow":       flow.Name,
		},
	})
}

func (s *Service) logInfo(ctx context.Context, msg string, fields ...interface{}) {
	if s.logger != nil {
		s.logger.Info(ctx, msg, fields...)
	}
}

func (s *Service) logError(ctx context.Context, msg string, fields ...interface{}) {
	if s.logger != nil {
		s.logger.Error(ctx, msg, fields...)
	}
}
