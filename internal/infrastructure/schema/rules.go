package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/stepwise/internal/config"
	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	stepwiseerrors "github.com/alexisbeaulieu97/stepwise/pkg/errors"
)

// RuleSchema validates form data with validator tags attached to field paths.
type RuleSchema struct {
	ref      string
	rules    []fieldRule
	messages map[string]string
	validate *validator.Validate
}

type fieldRule struct {
	path     string
	tag      string
	required bool
}

// CompileRules turns a rule set into a schema. Every path must parse and every
// tag must name a known validation.
func CompileRules(ref string, set config.RuleSet) (*RuleSchema, error) {
	v := config.GetValidator()

	paths := make([]string, 0, len(set.Fields))
	for path := range set.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	schema := &RuleSchema{
		ref:      ref,
		rules:    make([]fieldRule, 0, len(paths)),
		messages: make(map[string]string, len(set.Messages)),
		validate: v,
	}

	for _, path := range paths {
		if err := wizard.ParsePath(path); err != nil {
			return nil, stepwiseerrors.NewSchemaError(ref, fmt.Sprintf("invalid field path %q", path), err)
		}
		tag := strings.TrimSpace(set.Fields[path])
		if err := checkTag(v, tag); err != nil {
			return nil, stepwiseerrors.NewSchemaError(ref, fmt.Sprintf("field %q: %v", path, err), nil)
		}
		schema.rules = append(schema.rules, fieldRule{
			path:     path,
			tag:      tag,
			required: hasTag(tag, "required"),
		})
	}

	for path, msg := range set.Messages {
		if _, ok := set.Fields[path]; !ok {
			return nil, stepwiseerrors.NewSchemaError(ref, fmt.Sprintf("message for unknown field %q", path), nil)
		}
		schema.messages[path] = msg
	}

	return schema, nil
}

// Ref returns the name the schema was compiled under.
func (s *RuleSchema) Ref() string {
	return s.ref
}

// Fields lists the field paths the schema checks.
func (s *RuleSchema) Fields() []string {
	out := make([]string, len(s.rules))
	for i, rule := range s.rules {
		out[i] = rule.path
	}
	return out
}

// Validate runs every rule against data. Missing values fail only rules that
// carry the required tag; wildcard paths are checked for each list element.
func (s *RuleSchema) Validate(data wizard.FormData) wizard.ValidationResult {
	result := wizard.Passed()
	for _, rule := range s.rules {
		for _, path := range data.Expand(rule.path) {
			value, ok := data.Lookup(path)
			if !ok || value == nil {
				if rule.required {
					result.AddError(path, s.message(rule.path, "is required"))
				}
				continue
			}
			if err := s.check(value, rule.tag); err != nil {
				result.AddError(path, s.message(rule.path, describe(err)))
			}
		}
	}
	return result
}

// check runs a tag against one value. Some validations panic when handed a
// kind they do not support, such as oneof on a float.
func (s *RuleSchema) check(value any, tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("value of type %T cannot be checked with %q", value, tag)
		}
	}()
	return s.validate.Var(value, tag)
}

func (s *RuleSchema) message(path, fallback string) string {
	if msg, ok := s.messages[path]; ok && msg != "" {
		return msg
	}
	return fallback
}

// checkTag exercises the tag once so unknown validations surface at compile
// time. validator panics on tags it does not know.
func checkTag(v *validator.Validate, tag string) (err error) {
	if tag == "" {
		return fmt.Errorf("empty validation tag")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid validation tag %q: %v", tag, r)
		}
	}()
	_ = v.Var("", tag)
	return nil
}

func hasTag(tag, name string) bool {
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == name {
			return true
		}
	}
	return false
}

func describe(err error) string {
	ves, ok := err.(validator.ValidationErrors)
	if !ok || len(ves) == 0 {
		return err.Error()
	}
	fe := ves[0]
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("must be at most %s%s", fe.Param(), unit)
	case "len":
		return fmt.Sprintf("must be exactly %s%s", fe.Param(), unit)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	case "email":
		return "must be a valid email address"
	case "ssn":
		return "must be a valid social security number"
	case "org_id":
		return "may only contain letters, digits and dashes"
	case "numeric", "number":
		return "must be numeric"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
