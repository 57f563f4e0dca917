package wizard

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var stepIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SchemaRef names a validation schema held by an external schema provider.
// An empty ref means the step has nothing to validate.
type SchemaRef string

// StepDefinition is the static description of one wizard step.
type StepDefinition struct {
	ID         string
	Title      string
	Order      int
	Applicable Predicate
	SchemaRef  SchemaRef
	Optional   bool
}

// Validate checks the definition's shape.
func (s StepDefinition) Validate() error {
	if s.ID == "" {
		return newInvalidStepError("step id is required", s.ID)
	}
	if !stepIDPattern.MatchString(s.ID) {
		return newInvalidStepError("step id must match ^[a-zA-Z0-9_-]+$", s.ID)
	}
	for _, dep := range s.Applicable.Deps {
		if err := ParsePath(dep); err != nil {
			return newInvalidStepError(fmt.Sprintf("predicate dependency %q is not a valid field path", dep), s.ID)
		}
	}
	return nil
}

// Label returns the title, falling back to the id.
func (s StepDefinition) Label() string {
	if strings.TrimSpace(s.Title) != "" {
		return s.Title
	}
	return s.ID
}

// PredicateFunc decides whether a step applies to the given form data. It
// must be pure: no side effects and the same answer for the same data.
type PredicateFunc func(FormData) (bool, error)

// Predicate couples a visibility function with the field paths it reads.
// Deps == nil means the dependencies are unknown and any edit may change the
// outcome; an empty, non-nil Deps means the predicate reads nothing. The zero
// value is always applicable.
type Predicate struct {
	Deps []string
	Fn   PredicateFunc
}

// Evaluate runs the predicate. Panics are converted into errors.
func (p Predicate) Evaluate(data FormData) (ok bool, err error) {
	if p.Fn == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return p.Fn(data)
}

// ReadsAny reports whether a change to any of paths may alter the outcome.
func (p Predicate) ReadsAny(paths []string) bool {
	if p.Fn == nil {
		return false
	}
	if p.Deps == nil {
		return len(paths) > 0
	}
	for _, dep := range p.Deps {
		for _, path := range paths {
			if PathsOverlap(dep, path) {
				return true
			}
		}
	}
	return false
}

// Always is applicable for every input.
func Always() Predicate {
	return Predicate{Deps: []string{}}
}

// NewPredicate wraps fn with an explicit dependency list.
func NewPredicate(fn PredicateFunc, deps ...string) Predicate {
	if deps == nil {
		deps = []string{}
	}
	return Predicate{Deps: deps, Fn: fn}
}

// OpaquePredicate wraps fn without declared dependencies; every edit will
// trigger a recompute.
func OpaquePredicate(fn PredicateFunc) Predicate {
	return Predicate{Fn: fn}
}

// FieldIn applies when the value at path equals one of allowed. A missing
// value never matches.
func FieldIn(path string, allowed ...any) Predicate {
	return NewPredicate(func(data FormData) (bool, error) {
		value, ok := data.Lookup(path)
		if !ok || value == nil {
			return false, nil
		}
		for _, candidate := range allowed {
			if looselyEqual(value, candidate) {
				return true, nil
			}
		}
		return false, nil
	}, path)
}

// AnyPresent applies when at least one of paths holds a non-empty value.
func AnyPresent(paths ...string) Predicate {
	deps := append([]string(nil), paths...)
	return NewPredicate(func(data FormData) (bool, error) {
		for _, path := range deps {
			if data.HasValue(path) {
				return true, nil
			}
		}
		return false, nil
	}, deps...)
}

// AllOf applies when every predicate applies. Dependencies are the union of
// the inputs; if any input has unknown dependencies so does the result.
func AllOf(preds ...Predicate) Predicate {
	active := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p.Fn != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return Always()
	}
	if len(active) == 1 {
		return active[0]
	}

	var deps []string
	known := true
	seen := make(map[string]struct{})
	for _, p := range active {
		if p.Deps == nil {
			known = false
			continue
		}
		for _, dep := range p.Deps {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			deps = append(deps, dep)
		}
	}
	sort.Strings(deps)

	fn := func(data FormData) (bool, error) {
		for _, p := range active {
			ok, err := p.Evaluate(data)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	if !known {
		return OpaquePredicate(fn)
	}
	return NewPredicate(fn, deps...)
}

// looselyEqual compares by printed form so JSON numbers match YAML ints.
func looselyEqual(value, candidate any) bool {
	return fmt.Sprint(value) == fmt.Sprint(candidate)
}
