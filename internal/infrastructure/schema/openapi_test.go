package schema

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	stepwiseerrors "github.com/alexisbeaulieu97/stepwise/pkg/errors"
)

const onboardingDocument = `openapi: 3.0.3
info:
  title: Onboarding
  version: "1.0"
paths: {}
components:
  schemas:
    Business:
      type: object
      required: [legalName]
      properties:
        legalName:
          type: string
          minLength: 2
        entityType:
          type: string
          enum: [LLC, Corp]
        ssn:
          type: string
          x-validate: ssn
    Owners:
      type: object
      required: [owners]
      properties:
        owners:
          type: array
          minItems: 1
          items:
            type: object
            required: [name]
            properties:
              name:
                type: string
              share:
                type: integer
                maximum: 100
    Consent:
      type: object
      required: [agreed]
      properties:
        agreed:
          type: boolean
        share:
          type: integer
        rate:
          type: number
        note:
          type: string
`

func loadOnboarding(t *testing.T) map[string]*OpenAPISchema {
	t.Helper()

	schemas, err := LoadOpenAPIData(context.Background(), "onboarding.yaml", []byte(onboardingDocument))
	require.NoError(t, err)
	return schemas
}

func TestLoadOpenAPIComponents(t *testing.T) {
	t.Parallel()

	schemas := loadOnboarding(t)
	require.Contains(t, schemas, "openapi:Business")
	require.Contains(t, schemas, "openapi:Owners")

	if diff := cmp.Diff([]string{"entityType", "legalName", "ssn"}, schemas["openapi:Business"].Fields()); diff != "" {
		t.Fatalf("business fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"owners", "owners[*].name", "owners[*].share"}, schemas["openapi:Owners"].Fields()); diff != "" {
		t.Fatalf("owners fields mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "openapi:Owners", schemas["openapi:Owners"].Ref())
}

func TestOpenAPISchemaValidate(t *testing.T) {
	t.Parallel()

	schemas := loadOnboarding(t)
	business := schemas["openapi:Business"]
	owners := schemas["openapi:Owners"]

	t.Run("missing required property", func(t *testing.T) {
		result := business.Validate(wizard.FormData{"owners": []any{}})
		require.False(t, result.Valid)
		assert.Equal(t, map[string][]string{"legalName": {"is required"}}, result.FieldErrors)
	})

	t.Run("blank strings count as missing", func(t *testing.T) {
		result := business.Validate(wizard.FormData{"legalName": "   "})
		assert.Equal(t, []string{"legalName"}, result.ErrorPaths())
	})

	t.Run("valid data ignores unrelated fields", func(t *testing.T) {
		result := business.Validate(wizard.FormData{"legalName": "Acme", "entityType": "LLC", "other": 42})
		assert.True(t, result.Valid)
		assert.Empty(t, result.FieldErrors)
	})

	t.Run("constraint failures", func(t *testing.T) {
		result := business.Validate(wizard.FormData{"legalName": "A", "entityType": "Sole"})
		require.False(t, result.Valid)
		assert.Equal(t, []string{"entityType", "legalName"}, result.ErrorPaths())
		assert.Contains(t, result.FieldErrors["legalName"][0], "minimum string length")
	})

	t.Run("extension tags run after the schema", func(t *testing.T) {
		result := business.Validate(wizard.FormData{"legalName": "Acme", "ssn": "078051120"})
		assert.Equal(t, map[string][]string{"ssn": {"must be a valid social security number"}}, result.FieldErrors)
	})

	t.Run("nested list errors use field paths", func(t *testing.T) {
		result := owners.Validate(wizard.FormData{
			"owners": []any{map[string]any{"name": "Ada"}, map[string]any{}},
		})
		assert.Equal(t, map[string][]string{"owners[1].name": {"is required"}}, result.FieldErrors)
	})
}

func TestOpenAPISchemaCoercesTextInput(t *testing.T) {
	t.Parallel()

	schemas := loadOnboarding(t)
	consent := schemas["openapi:Consent"]
	owners := schemas["openapi:Owners"]

	tests := []struct {
		name string
		data wizard.FormData
		want map[string][]string
	}{
		{
			name: "typed text passes",
			data: wizard.FormData{"agreed": "true", "share": " 25 ", "rate": "0.5", "note": "42"},
		},
		{
			name: "native values pass",
			data: wizard.FormData{"agreed": false, "share": 25, "rate": 1},
		},
		{
			name: "unparseable text keeps the type error",
			data: wizard.FormData{"agreed": "maybe", "share": "lots"},
			want: map[string][]string{
				"agreed": {"value must be a boolean"},
				"share":  {"value must be an integer"},
			},
		},
		{
			name: "fractional text is not an integer",
			data: wizard.FormData{"agreed": "1", "share": "2.5"},
			want: map[string][]string{"share": {"value must be an integer"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			result := consent.Validate(tt.data)
			if tt.want == nil {
				assert.True(t, result.Valid, "%v", result.FieldErrors)
				return
			}
			require.False(t, result.Valid)
			assert.Equal(t, tt.want, result.FieldErrors)
		})
	}

	t.Run("nested list items", func(t *testing.T) {
		result := owners.Validate(wizard.FormData{
			"owners": []any{map[string]any{"name": "Ada", "share": "60"}, map[string]any{"name": "Bob", "share": "140"}},
		})
		require.False(t, result.Valid)
		assert.Equal(t, []string{"owners[1].share"}, result.ErrorPaths())
	})

	t.Run("form data is not modified", func(t *testing.T) {
		data := wizard.FormData{"agreed": "yes", "share": "7"}
		consent.Validate(data)
		assert.Equal(t, "7", data["share"])
	})
}

func TestLoadOpenAPIInvalidDocument(t *testing.T) {
	t.Parallel()

	_, err := LoadOpenAPIData(context.Background(), "broken.yaml", []byte("openapi: 3.0.3\npaths: {}\n"))
	var schemaErr *stepwiseerrors.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "broken.yaml", schemaErr.Ref)
}

func TestPointerToPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$", pointerToPath(nil))
	assert.Equal(t, "owners[2].name", pointerToPath([]string{"owners", "2", "name"}))
	assert.Equal(t, "address.zip", pointerToPath([]string{"address", "zip"}))
}
