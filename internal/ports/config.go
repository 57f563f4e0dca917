package ports

import (
	"context"

	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

// Flow is a fully built wizard flow: a frozen step registry plus the schema
// provider its steps reference.
type Flow struct {
	Name        string
	Version     string
	Description string
	InitialStep string
	Registry    *wizard.Registry
	Schemas     SchemaProvider
}

// FlowLoader builds flows from an external source such as a YAML file.
//
// Error mapping expectations:
//   - io/fs.ErrNotExist → wizard.ErrCodeNotFound
//   - YAML or schema parsing failures → pkg/errors ParseError / ValidationError
//   - registry failures → the wizard configuration codes (DUPLICATE_STEP_ID, ...)
type FlowLoader interface {
	// Load materialises a flow. Implementations respect ctx before expensive
	// work and never mutate global state.
	Load(ctx context.Context, path string) (*Flow, error)

	// Validate performs the same checks as Load without returning the flow.
	Validate(ctx context.Context, path string) error
}
