package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStepDefinitionValidate(t *testing.T) {
	tests := []struct {
		name     string
		step     StepDefinition
		wantCode ErrorCode
	}{
		{name: "valid", step: StepDefinition{ID: "business_details", Applicable: FieldIn("entityType", "LLC")}},
		{name: "missing id", step: StepDefinition{}, wantCode: ErrCodeInvalidStep},
		{name: "bad id", step: StepDefinition{ID: "owner step"}, wantCode: ErrCodeInvalidStep},
		{
			name:     "bad predicate dependency",
			step:     StepDefinition{ID: "owners", Applicable: NewPredicate(func(FormData) (bool, error) { return true, nil }, "a..b")},
			wantCode: ErrCodeInvalidStep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tt.wantCode, CodeOf(err))
		})
	}
}

func TestStepDefinitionLabel(t *testing.T) {
	require.Equal(t, "Business details", StepDefinition{ID: "business", Title: "Business details"}.Label())
	require.Equal(t, "business", StepDefinition{ID: "business", Title: "  "}.Label())
}

func TestPredicateEvaluate(t *testing.T) {
	var zero Predicate
	ok, err := zero.Evaluate(nil)
	require.NoError(t, err)
	require.True(t, ok)

	failing := NewPredicate(func(FormData) (bool, error) { return false, errors.New("bad input") })
	_, err = failing.Evaluate(FormData{})
	require.EqualError(t, err, "bad input")

	panicking := OpaquePredicate(func(data FormData) (bool, error) {
		panic("nil map")
	})
	ok, err = panicking.Evaluate(FormData{})
	require.False(t, ok)
	require.ErrorContains(t, err, "predicate panicked")
}

func TestFieldIn(t *testing.T) {
	llc := FieldIn("entityType", "LLC", "PARTNERSHIP")

	ok, err := llc.Evaluate(FormData{})
	require.NoError(t, err)
	require.False(t, ok)

	ok, _ = llc.Evaluate(FormData{"entityType": "LLC"})
	require.True(t, ok)

	ok, _ = llc.Evaluate(FormData{"entityType": "SOLE_PROP"})
	require.False(t, ok)

	numeric := FieldIn("employees", 3)
	ok, _ = numeric.Evaluate(FormData{"employees": float64(3)})
	require.True(t, ok, "JSON numbers compare equal to integer literals")

	ok, _ = numeric.Evaluate(FormData{"employees": []any{3}})
	require.False(t, ok)

	require.Equal(t, []string{"entityType"}, llc.Deps)
}

func TestAnyPresent(t *testing.T) {
	pred := AnyPresent("documents[*].id", "requests")

	ok, err := pred.Evaluate(FormData{"documents": []any{}})
	require.NoError(t, err)
	require.False(t, ok)

	ok, _ = pred.Evaluate(FormData{"documents": []any{map[string]any{"id": "doc-1"}}})
	require.True(t, ok)

	ok, _ = pred.Evaluate(FormData{"requests": "passport"})
	require.True(t, ok)
}

func TestPredicateReadsAny(t *testing.T) {
	require.False(t, Always().ReadsAny([]string{"anything"}))
	require.False(t, Predicate{}.ReadsAny([]string{"anything"}))

	llc := FieldIn("entityType", "LLC")
	require.True(t, llc.ReadsAny([]string{"entityType"}))
	require.False(t, llc.ReadsAny([]string{"legalName"}))

	docs := AnyPresent("documents[*].id")
	require.True(t, docs.ReadsAny([]string{"documents[2].id"}))
	require.True(t, docs.ReadsAny([]string{"documents"}))

	opaque := OpaquePredicate(func(FormData) (bool, error) { return true, nil })
	require.True(t, opaque.ReadsAny([]string{"legalName"}))
	require.False(t, opaque.ReadsAny(nil))
}

func TestAllOf(t *testing.T) {
	combined := AllOf(FieldIn("entityType", "LLC"), AnyPresent("owners"))
	require.Equal(t, []string{"entityType", "owners"}, combined.Deps)

	ok, err := combined.Evaluate(FormData{"entityType": "LLC"})
	require.NoError(t, err)
	require.False(t, ok)

	ok, _ = combined.Evaluate(FormData{"entityType": "LLC", "owners": []any{"Ada"}})
	require.True(t, ok)

	opaque := AllOf(FieldIn("entityType", "LLC"), OpaquePredicate(func(FormData) (bool, error) { return true, nil }))
	require.Nil(t, opaque.Deps)

	require.NotNil(t, AllOf().Deps)
	require.Nil(t, AllOf().Fn)
}
