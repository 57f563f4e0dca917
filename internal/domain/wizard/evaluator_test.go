package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func scenarioRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewFrozenRegistry(
		StepDefinition{ID: "A", Order: 1},
		StepDefinition{ID: "B", Order: 2, Applicable: FieldIn("entityType", "LLC")},
		StepDefinition{ID: "C", Order: 3},
	)
	require.NoError(t, err)
	return reg
}

func TestComputeApplicableFiltersByPredicate(t *testing.T) {
	reg := scenarioRegistry(t)

	steps, err := ComputeApplicable(reg, FormData{})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C"}, steps.IDs())

	steps, err = ComputeApplicable(reg, FormData{"entityType": "LLC"})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, steps.IDs())
}

func TestComputeApplicableIsDeterministicAndSorted(t *testing.T) {
	reg, err := NewFrozenRegistry(
		StepDefinition{ID: "z", Order: 5},
		StepDefinition{ID: "y", Order: 1, Applicable: AnyPresent("owners")},
		StepDefinition{ID: "x", Order: 1},
		StepDefinition{ID: "w", Order: 3, Applicable: FieldIn("entityType", "LLC", "CORP")},
	)
	require.NoError(t, err)

	inputs := []FormData{
		{},
		{"owners": []any{"Ada"}},
		{"entityType": "CORP"},
		{"entityType": "LLC", "owners": []any{"Ada"}},
	}
	for _, data := range inputs {
		first, err := ComputeApplicable(reg, data)
		require.NoError(t, err)
		second, err := ComputeApplicable(reg, data)
		require.NoError(t, err)
		require.Equal(t, first.IDs(), second.IDs())
		require.NotEmpty(t, first)

		last := -1
		for _, step := range first {
			pos := reg.Position(step.ID)
			require.Greater(t, pos, last, "applicable list must follow registry order")
			last = pos
		}
	}
}

func TestComputeApplicablePredicateFailure(t *testing.T) {
	reg, err := NewFrozenRegistry(
		StepDefinition{ID: "A", Order: 1},
		StepDefinition{ID: "B", Order: 2, Applicable: OpaquePredicate(func(FormData) (bool, error) {
			return false, errors.New("lookup table missing")
		})},
	)
	require.NoError(t, err)

	_, err = ComputeApplicable(reg, FormData{})
	require.True(t, errors.Is(err, ErrPredicate))
	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr))
	require.Equal(t, "B", domainErr.Context["step_id"])
	require.True(t, IsConfigurationError(err))
}

func TestComputeApplicablePredicatePanic(t *testing.T) {
	reg, err := NewFrozenRegistry(StepDefinition{ID: "A", Applicable: OpaquePredicate(func(data FormData) (bool, error) {
		return data["owners"].([]any)[0] != nil, nil
	})})
	require.NoError(t, err)

	_, err = ComputeApplicable(reg, FormData{})
	require.Equal(t, ErrCodePredicate, CodeOf(err))
}

func TestComputeApplicableEmptyGraph(t *testing.T) {
	reg, err := NewFrozenRegistry(StepDefinition{ID: "B", Applicable: FieldIn("entityType", "LLC")})
	require.NoError(t, err)

	_, err = ComputeApplicable(reg, FormData{})
	require.True(t, errors.Is(err, ErrEmptyStepGraph))

	_, err = ComputeApplicable(NewRegistry(), FormData{})
	require.True(t, errors.Is(err, ErrEmptyStepGraph))

	_, err = ComputeApplicable(nil, FormData{})
	require.True(t, errors.Is(err, ErrEmptyStepGraph))
}

func TestDependsOn(t *testing.T) {
	reg := scenarioRegistry(t)
	require.True(t, DependsOn(reg, []string{"entityType"}))
	require.False(t, DependsOn(reg, []string{"legalName"}))
	require.False(t, DependsOn(reg, nil))
	require.False(t, DependsOn(nil, []string{"entityType"}))
}

func TestNextAfterAndPreviousBefore(t *testing.T) {
	reg := scenarioRegistry(t)
	steps, err := ComputeApplicable(reg, FormData{})
	require.NoError(t, err)

	next, ok := NextAfter(reg, steps, "B")
	require.True(t, ok)
	require.Equal(t, "C", next.ID)

	prev, ok := PreviousBefore(reg, steps, "B")
	require.True(t, ok)
	require.Equal(t, "A", prev.ID)

	_, ok = NextAfter(reg, steps, "C")
	require.False(t, ok)
	_, ok = PreviousBefore(reg, steps, "A")
	require.False(t, ok)
	_, ok = NextAfter(reg, steps, "missing")
	require.False(t, ok)
}

func TestNextAfterSkipsStepsSharingTheOrder(t *testing.T) {
	reg, err := NewFrozenRegistry(
		StepDefinition{ID: "W", Order: 1},
		StepDefinition{ID: "X", Order: 2, Applicable: FieldIn("kind", "x")},
		StepDefinition{ID: "Y", Order: 2},
		StepDefinition{ID: "Z", Order: 3},
	)
	require.NoError(t, err)

	steps, err := ComputeApplicable(reg, FormData{})
	require.NoError(t, err)
	require.Equal(t, []string{"W", "Y", "Z"}, steps.IDs())

	next, ok := NextAfter(reg, steps, "X")
	require.True(t, ok)
	require.Equal(t, "Z", next.ID)

	prev, ok := PreviousBefore(reg, steps, "X")
	require.True(t, ok)
	require.Equal(t, "W", prev.ID)
}

func TestApplicableStepsHelpers(t *testing.T) {
	steps := ApplicableSteps{{ID: "A"}, {ID: "C"}}
	require.Equal(t, 1, steps.IndexOf("C"))
	require.Equal(t, -1, steps.IndexOf("B"))
	require.True(t, steps.Contains("A"))
	require.False(t, steps.Contains("B"))
}
