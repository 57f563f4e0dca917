package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// requiredSchema reports "is required" for every empty required path.
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

type sinkEvent struct {
	name    string
	payload map[string]interface{}
}

type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent
	onEmit func(name string)
}

func (s *recordingSink) Emit(_ context.Context, name string, payload map[string]interface{}) {
	s.mu.Lock()
	s.events = append(s.events, sinkEvent{name: name, payload: payload})
	s.mu.Unlock()
	if s.onEmit != nil {
		s.onEmit(name)
	}
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, event := range s.events {
		out[i] = event.name
	}
	return out
}

func (s *recordingSink) last() sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

// onboardingFlow is the A/B/C flow: B only applies to LLCs.
func onboardingFlow(t *testing.T) (*domain.Registry, mapProvider) {
	t.Helper()
	reg, err := domain.NewFrozenRegistry(
		domain.StepDefinition{ID: "A", Title: "Business", Order: 1, SchemaRef: "business"},
		domain.StepDefinition{ID: "B", Title: "Owners", Order: 2, SchemaRef: "owners", Applicable: domain.FieldIn("entityType", "LLC")},
		domain.StepDefinition{ID: "C", Title: "Review", Order: 3},
	)
	require.NoError(t, err)
	provider := mapProvider{
		"business": requiredSchema{fields: []string{"entityType", "legalName"}, required: []string{"legalName"}},
		"owners":   requiredSchema{fields: []string{"owners[*].name"}, required: []string{"owners[*].name"}},
	}
	return reg, provider
}

func newController(t *testing.T, reg *domain.Registry, provider ports.SchemaProvider, sink ports.JourneySink) *Controller {
	t.Helper()
	ctrl, err := NewController(context.Background(), Options{
		Registry: reg,
		Schemas:  provider,
		Sink:     sink,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return ctrl
}

func applicableIDs(t *testing.T, ctrl *Controller) []string {
	t.Helper()
	steps, err := ctrl.Applicable(context.Background())
	require.NoError(t, err)
	return steps.IDs()
}
