package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("flow.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "flow.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Equal(t, "parse error: flow.yaml:12: unexpected token", err.Error())

	noLine := NewParseError("flow.yaml", 0, underlying)
	require.Equal(t, "parse error: flow.yaml: unexpected token", noLine.Error())
}

func TestValidationErrorIncludesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("steps[1].schema", "references unknown schema", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "steps[1].schema", validationErr.Field)
	require.Equal(t, "validation error: steps[1].schema: references unknown schema", err.Error())
	require.Equal(t, "validation error: flow is nil", NewValidationError("", "flow is nil", nil).Error())
}

func TestSchemaErrorIncludesRef(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("undefined validation function 'zipcode'")
	err := NewSchemaError("business", "invalid rule for field postalCode", underlying)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, "business", schemaErr.Ref)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "[business]")
}

func TestNilReceivers(t *testing.T) {
	t.Parallel()

	var parseErr *ParseError
	var validationErr *ValidationError
	var schemaErr *SchemaError
	require.Empty(t, parseErr.Error())
	require.Empty(t, validationErr.Error())
	require.Empty(t, schemaErr.Error())
	require.Nil(t, parseErr.Unwrap())
	require.Nil(t, validationErr.Unwrap())
	require.Nil(t, schemaErr.Unwrap())
}
