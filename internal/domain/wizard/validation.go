package wizard

import "sort"

// ValidationResult is the outcome of running a step's schema against the
// current form data. Results are never cached; recompute on demand.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
}

// Passed returns a successful result with no field errors.
func Passed() ValidationResult {
	return ValidationResult{Valid: true}
}

// AddError records a message against a field path and marks the result invalid.
func (r *ValidationResult) AddError(path, message string) {
	if r.FieldErrors == nil {
		r.FieldErrors = make(map[string][]string)
	}
	r.FieldErrors[path] = append(r.FieldErrors[path], message)
	r.Valid = false
}

// Merge folds other into r.
func (r *ValidationResult) Merge(other ValidationResult) {
	for _, path := range other.ErrorPaths() {
		for _, msg := range other.FieldErrors[path] {
			r.AddError(path, msg)
		}
	}
	if !other.Valid {
		r.Valid = false
	}
}

// ErrorPaths returns the failing field paths in sorted order.
func (r ValidationResult) ErrorPaths() []string {
	paths := make([]string, 0, len(r.FieldErrors))
	for path := range r.FieldErrors {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
