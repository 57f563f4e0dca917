package ports

import "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"

// Schema validates the form data owned by one step.
type Schema interface {
	// Fields lists the field paths the schema reads, wildcards included.
	Fields() []string
	// Validate checks data and reports failures keyed by field path. It must
	// be pure and ignore fields it does not know.
	Validate(data wizard.FormData) wizard.ValidationResult
}

// SchemaProvider resolves schema references. A reference that cannot be
// resolved yields an error carrying wizard.ErrCodeUnknownSchema.
type SchemaProvider interface {
	Schema(ref wizard.SchemaRef) (Schema, error)
}
