package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	stepwiseerrors "github.com/alexisbeaulieu97/stepwise/pkg/errors"
)

// convertValidationError normalizes validator errors into stepwise validation errors.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return stepwiseerrors.NewValidationError(field, msg, err)
	}

	return stepwiseerrors.NewValidationError("flow", err.Error(), err)
}

// yamlishFieldName drops the root struct name from the namespace, leaving the
// YAML path (steps[0].id).
func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}
