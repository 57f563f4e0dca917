package wizard

import (
	"context"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// Gate runs a step's schema against the form data. It holds no state between
// calls, so results are never cached.
type Gate struct {
	schemas ports.SchemaProvider
	logger  ports.Logger
}

// NewGate constructs a Gate resolving schemas through provider.
func NewGate(provider ports.SchemaProvider, logger ports.Logger) *Gate {
	return &Gate{schemas: provider, logger: logger}
}

// Schema resolves the step's schema. Steps without a schema ref return a nil
// schema and no error.
func (g *Gate) Schema(step domain.StepDefinition) (ports.Schema, error) {
	if step.SchemaRef == "" {
		return nil, nil
	}
	if g == nil || g.schemas == nil {
		return nil, unknownSchema(step, nil)
	}
	schema, err := g.schemas.Schema(step.SchemaRef)
	if err != nil {
		if domain.IsCode(err, domain.ErrCodeUnknownSchema) {
			return nil, err
		}
		return nil, unknownSchema(step, err)
	}
	if schema == nil {
		return nil, unknownSchema(step, nil)
	}
	return schema, nil
}

// Fields lists the field paths owned by the step's schema.
func (g *Gate) Fields(step domain.StepDefinition) ([]string, error) {
	schema, err := g.Schema(step)
	if err != nil || schema == nil {
		return nil, err
	}
	return append([]string(nil), schema.Fields()...), nil
}

// Validate checks step against data. An optional step whose fields are all
// empty passes without running its schema.
func (g *Gate) Validate(ctx context.Context, step domain.StepDefinition, data domain.FormData) (domain.ValidationResult, error) {
	schema, err := g.Schema(step)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if schema == nil {
		return domain.Passed(), nil
	}

	if step.Optional && !touched(schema.Fields(), data) {
		g.debug(ctx, "optional step untouched, skipping schema", "step_id", step.ID)
		return domain.Passed(), nil
	}

	result := schema.Validate(data)
	if len(result.FieldErrors) > 0 {
		result.Valid = false
	}
	g.debug(ctx, "step validated", "step_id", step.ID, "schema_ref", string(step.SchemaRef), "valid", result.Valid, "errors", len(result.FieldErrors))
	return result, nil
}

func (g *Gate) debug(ctx context.Context, msg string, fields ...interface{}) {
	if g == nil || g.logger == nil {
		return
	}
	g.logger.Debug(ctx, msg, fields...)
}

func touched(fields []string, data domain.FormData) bool {
	for _, field := range fields {
		if data.HasValue(field) {
			return true
		}
	}
	return false
}

func unknownSchema(step domain.StepDefinition, cause error) error {
	return domain.NewError(domain.ErrCodeUnknownSchema, "schema reference cannot be resolved", cause, map[string]interface{}{
		"step_id":    step.ID,
		"schema_ref": string(step.SchemaRef),
	})
}
