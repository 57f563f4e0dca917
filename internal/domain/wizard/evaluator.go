package wizard

// ApplicableSteps is the ordered list of steps whose predicate holds for the
// current form data. It is derived on demand and never persisted.
type ApplicableSteps []StepDefinition

// IDs returns the step identifiers in order.
func (a ApplicableSteps) IDs() []string {
	ids := make([]string, len(a))
	for i, step := range a {
		ids[i] = step.ID
	}
	return ids
}

// IndexOf returns the position of id, or -1.
func (a ApplicableSteps) IndexOf(id string) int {
	for i, step := range a {
		if step.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is applicable.
func (a ApplicableSteps) Contains(id string) bool {
	return a.IndexOf(id) >= 0
}

// ComputeApplicable evaluates every predicate in registry order and keeps the
// steps whose predicate returns true.
func ComputeApplicable(reg *Registry, data FormData) (ApplicableSteps, error) {
	if reg == nil {
		return nil, NewError(ErrCodeEmptyStepGraph, "registry is nil", nil, nil)
	}

	all := reg.All()
	out := make(ApplicableSteps, 0, len(all))
	for _, step := range all {
		ok, err := step.Applicable.Evaluate(data)
		if err != nil {
			return nil, newPredicateError(step.ID, err)
		}
		if ok {
			out = append(out, step)
		}
	}

	if len(out) == 0 {
		return nil, NewError(ErrCodeEmptyStepGraph, "no applicable steps for the current form data", nil, map[string]interface{}{
			"registered": len(all),
		})
	}
	return out, nil
}

// DependsOn reports whether any registered predicate reads one of paths.
func DependsOn(reg *Registry, paths []string) bool {
	if reg == nil || len(paths) == 0 {
		return false
	}
	for _, step := range reg.All() {
		if step.Applicable.ReadsAny(paths) {
			return true
		}
	}
	return false
}

// NextAfter returns the first applicable step whose Order is greater than
// the order of id. It is used when id itself is no longer applicable, so
// navigation continues forward instead of jumping back. Steps sharing id's
// order are never selected.
func NextAfter(reg *Registry, steps ApplicableSteps, id string) (StepDefinition, bool) {
	current, ok := reg.Lookup(id)
	if !ok {
		return StepDefinition{}, false
	}
	for _, step := range steps {
		if step.Order > current.Order {
			return step, true
		}
	}
	return StepDefinition{}, false
}

// PreviousBefore returns the last applicable step whose Order is lower than
// the order of id.
func PreviousBefore(reg *Registry, steps ApplicableSteps, id string) (StepDefinition, bool) {
	current, ok := reg.Lookup(id)
	if !ok {
		return StepDefinition{}, false
	}
	var found StepDefinition
	ok = false
	for _, step := range steps {
		if step.Order < current.Order {
			found = step
			ok = true
		}
	}
	return found, ok
}
