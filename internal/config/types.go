package config

import (
	"sort"
	"strings"
)

// OpenAPIRefPrefix marks schema references resolved against the flow's
// OpenAPI document, e.g. "openapi:BusinessDetails".
const OpenAPIRefPrefix = "openapi:"

// Flow represents a wizard flow document.
type Flow struct {
	Version     string  `yaml:"version" validate:"required,semver"`
	Name        string  `yaml:"name" validate:"required,min=1,max=100"`
	Description string  `yaml:"description,omitempty"`
	InitialStep string  `yaml:"initial_step,omitempty" validate:"omitempty,step_id"`
	Schemas     Schemas `yaml:"schemas,omitempty"`
	Steps       []Step  `yaml:"steps" validate:"required,min=1,dive"`
}

// Schemas declares where step schemas come from.
type Schemas struct {
	// OpenAPI is a path, relative to the flow file, to an OpenAPI 3 document
	// whose components.schemas are addressable as "openapi:<Name>".
	OpenAPI string `yaml:"openapi,omitempty"`
	// Rules holds field-rule schemas keyed by name.
	Rules map[string]RuleSet `yaml:"rules,omitempty" validate:"omitempty,dive,keys,schema_name,endkeys"`
}

// RuleSet maps field paths to validator tags, e.g. legalName: "required,max=120".
type RuleSet struct {
	Fields   map[string]string `yaml:"fields" validate:"required,min=1,dive,keys,field_path,endkeys,required"`
	Messages map[string]string `yaml:"messages,omitempty"`
}

// Step describes one wizard step.
type Step struct {
	ID               string              `yaml:"id" validate:"required,step_id"`
	Title            string              `yaml:"title,omitempty" validate:"max=200"`
	Order            *int                `yaml:"order,omitempty"`
	Schema           string              `yaml:"schema,omitempty" validate:"omitempty,schema_ref"`
	Optional         bool                `yaml:"optional,omitempty"`
	VisibleWhen      map[string][]string `yaml:"visible_when,omitempty" validate:"omitempty,dive,keys,field_path,endkeys,min=1"`
	VisibleIfPresent []string            `yaml:"visible_if_present,omitempty" validate:"omitempty,dive,field_path"`
}

// EffectiveOrder returns the declared order, or the 1-based position in the
// document when none is declared.
func (s Step) EffectiveOrder(index int) int {
	if s.Order != nil {
		return *s.Order
	}
	return index + 1
}

// IsOpenAPIRef reports whether ref points into the OpenAPI document.
func IsOpenAPIRef(ref string) bool {
	return strings.HasPrefix(ref, OpenAPIRefPrefix)
}

// SortedRuleNames returns the rule set names in sorted order.
func (s Schemas) SortedRuleNames() []string {
	names := make([]string, 0, len(s.Rules))
	for name := range s.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StepMap builds a lookup table for steps by ID.
func StepMap(steps []Step) map[string]Step {
	out := make(map[string]Step, len(steps))
	for _, step := range steps {
		out[step.ID] = step
	}
	return out
}
