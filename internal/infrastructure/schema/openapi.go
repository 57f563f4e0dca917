package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/stepwise/internal/config"
	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	stepwiseerrors "github.com/alexisbeaulieu97/stepwise/pkg/errors"
)

// ValidateExtension names the property extension holding extra validator
// tags, e.g. x-validate: ssn. They run after the OpenAPI checks pass.
const ValidateExtension = "x-validate"

// OpenAPISchema validates form data against one component schema of an
// OpenAPI 3 document.
type OpenAPISchema struct {
	ref      string
	schema   *openapi3.Schema
	fields   []string
	tags     map[string]string
	validate *validator.Validate
}

// LoadOpenAPIFile loads every component schema of the document at path.
func LoadOpenAPIFile(ctx context.Context, path string) (map[string]*OpenAPISchema, error) {
	loader := newLoader(ctx)
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, stepwiseerrors.NewSchemaError(path, "load openapi document", err)
	}
	return componentSchemas(ctx, path, doc)
}

// LoadOpenAPIData loads every component schema of an in-memory document.
// name is only used in error messages.
func LoadOpenAPIData(ctx context.Context, name string, data []byte) (map[string]*OpenAPISchema, error) {
	loader := newLoader(ctx)
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, stepwiseerrors.NewSchemaError(name, "load openapi document", err)
	}
	return componentSchemas(ctx, name, doc)
}

func newLoader(ctx context.Context) *openapi3.Loader {
	return &openapi3.Loader{Context: ctx}
}

func componentSchemas(ctx context.Context, name string, doc *openapi3.T) (map[string]*OpenAPISchema, error) {
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, stepwiseerrors.NewSchemaError(name, "validate openapi document", err)
	}

	out := make(map[string]*OpenAPISchema)
	if doc.Components == nil {
		return out, nil
	}

	v := config.GetValidator()
	for key, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		schemaRef := config.OpenAPIRefPrefix + key
		compiled := &OpenAPISchema{
			ref:      schemaRef,
			schema:   ref.Value,
			tags:     make(map[string]string),
			validate: v,
		}
		collectFields(ref.Value, "", compiled, 0)
		sort.Strings(compiled.fields)

		for path, tag := range compiled.tags {
			if err := checkTag(v, tag); err != nil {
				return nil, stepwiseerrors.NewSchemaError(schemaRef, fmt.Sprintf("field %q: %v", path, err), nil)
			}
		}
		out[schemaRef] = compiled
	}
	return out, nil
}

// maxSchemaDepth stops recursive component references from looping.
const maxSchemaDepth = 8

func collectFields(schema *openapi3.Schema, prefix string, target *OpenAPISchema, depth int) {
	if schema == nil || depth > maxSchemaDepth {
		return
	}
	for name, prop := range schema.Properties {
		if prop == nil || prop.Value == nil {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		value := prop.Value

		switch {
		case value.Type.Is(openapi3.TypeObject) && len(value.Properties) > 0:
			collectFields(value, path, target, depth+1)
			continue
		case value.Type.Is(openapi3.TypeArray) && value.Items != nil && value.Items.Value != nil && len(value.Items.Value.Properties) > 0:
			target.fields = append(target.fields, path)
			collectFields(value.Items.Value, path+"[*]", target, depth+1)
			continue
		}

		target.fields = append(target.fields, path)
		if tag, ok := value.Extensions[ValidateExtension].(string); ok && strings.TrimSpace(tag) != "" {
			target.tags[path] = strings.TrimSpace(tag)
		}
	}
}

// Ref returns the "openapi:<Name>" reference of the schema.
func (s *OpenAPISchema) Ref() string {
	return s.ref
}

// Fields lists the property paths declared by the schema.
func (s *OpenAPISchema) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Validate checks the schema's own properties and ignores the rest of the
// form data. Blank strings count as missing.
func (s *OpenAPISchema) Validate(data wizard.FormData) wizard.ValidationResult {
	result := wizard.Passed()

	value, err := normalize(project(s.schema, data))
	if err != nil {
		result.AddError(rootPath, err.Error())
		return result
	}

	if err := s.schema.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		collectErrors(err, &result)
	}

	paths := make([]string, 0, len(s.tags))
	for path := range s.tags {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, pattern := range paths {
		for _, path := range data.Expand(pattern) {
			if _, failed := result.FieldErrors[path]; failed {
				continue
			}
			fieldValue, ok := data.Lookup(path)
			if !ok || fieldValue == nil {
				continue
			}
			if err := s.check(fieldValue, s.tags[pattern]); err != nil {
				result.AddError(path, describe(err))
			}
		}
	}
	return result
}

func (s *OpenAPISchema) check(value any, tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("value of type %T cannot be checked with %q", value, tag)
		}
	}()
	return s.validate.Var(value, tag)
}

// rootPath keys errors that do not belong to a single field.
const rootPath = "$"

// project keeps the schema's own properties and converts text input to the
// declared scalar types.
func project(schema *openapi3.Schema, data wizard.FormData) map[string]any {
	out := make(map[string]any, len(schema.Properties))
	for name, prop := range schema.Properties {
		value, ok := data[name]
		if !ok {
			continue
		}
		if pruned, keep := prune(value); keep {
			if prop != nil {
				pruned = coerce(prop.Value, pruned)
			}
			out[name] = pruned
		}
	}
	return out
}

// coerce walks value alongside schema. Strings that do not parse as the
// declared type are left as they are so the schema reports the mismatch.
func coerce(schema *openapi3.Schema, value any) any {
	if schema == nil {
		return value
	}
	switch v := value.(type) {
	case string:
		return coerceString(schema, v)
	case map[string]any:
		for key, item := range v {
			if prop := schema.Properties[key]; prop != nil {
				v[key] = coerce(prop.Value, item)
			}
		}
		return v
	case []any:
		if schema.Items == nil {
			return v
		}
		for i, item := range v {
			v[i] = coerce(schema.Items.Value, item)
		}
		return v
	default:
		return value
	}
}

func coerceString(schema *openapi3.Schema, raw string) any {
	text := strings.TrimSpace(raw)
	switch {
	case schema.Type.Is(openapi3.TypeInteger):
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
	case schema.Type.Is(openapi3.TypeNumber):
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case schema.Type.Is(openapi3.TypeBoolean):
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	}
	return raw
}

func prune(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		return v, strings.TrimSpace(v) != ""
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if pruned, keep := prune(item); keep {
				out[key] = pruned
			}
		}
		return out, true
	case wizard.FormData:
		return prune(map[string]any(v))
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			pruned, keep := prune(item)
			if !keep {
				pruned = nil
			}
			out[i] = pruned
		}
		return out, true
	default:
		return v, true
	}
}

// normalize converts Go values into the shapes VisitJSON expects (float64
// numbers, []any lists).
func normalize(value map[string]any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("form data is not serialisable: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectErrors(err error, result *wizard.ValidationResult) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			collectErrors(inner, result)
		}
	case *openapi3.SchemaError:
		path := pointerToPath(e.JSONPointer())
		reason := e.Reason
		if e.SchemaField == "required" {
			reason = "is required"
		}
		result.AddError(path, reason)
	default:
		result.AddError(rootPath, err.Error())
	}
}

func pointerToPath(pointer []string) string {
	if len(pointer) == 0 {
		return rootPath
	}
	var b strings.Builder
	for i, segment := range pointer {
		if _, err := strconv.Atoi(segment); err == nil && i > 0 {
			b.WriteString("[")
			b.WriteString(segment)
			b.WriteString("]")
			continue
		}
		if i > 0 {
			b.WriteString(".")
		}
		b.WriteString(segment)
	}
	return b.String()
}
