package config

import (
	"fmt"

	stepwiseerrors "github.com/alexisbeaulieu97/stepwise/pkg/errors"
)

// ValidateFlow performs structural and cross-field validation on a flow.
func ValidateFlow(flow *Flow) error {
	if flow == nil {
		return stepwiseerrors.NewValidationError("flow", "flow is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(flow); err != nil {
		return convertValidationError(err)
	}

	stepIndex := make(map[string]int, len(flow.Steps))
	for i, step := range flow.Steps {
		if _, exists := stepIndex[step.ID]; exists {
			return stepwiseerrors.NewValidationError(fieldForStep(i, "id"), fmt.Sprintf("duplicate step id %q", step.ID), nil)
		}
		stepIndex[step.ID] = i

		if err := validateStepSchema(flow, step, i); err != nil {
			return err
		}
	}

	if flow.InitialStep != "" {
		if _, ok := stepIndex[flow.InitialStep]; !ok {
			return stepwiseerrors.NewValidationError("initial_step", fmt.Sprintf("references unknown step %q", flow.InitialStep), nil)
		}
	}

	return nil
}

func validateStepSchema(flow *Flow, step Step, index int) error {
	if step.Schema == "" {
		if step.Optional {
			return stepwiseerrors.NewValidationError(fieldForStep(index, "optional"), "optional steps need a schema", nil)
		}
		return nil
	}
	if IsOpenAPIRef(step.Schema) {
		if flow.Schemas.OpenAPI == "" {
			return stepwiseerrors.NewValidationError(fieldForStep(index, "schema"), fmt.Sprintf("%q needs schemas.openapi to be set", step.Schema), nil)
		}
		return nil
	}
	if _, ok := flow.Schemas.Rules[step.Schema]; !ok {
		return stepwiseerrors.NewValidationError(fieldForStep(index, "schema"), fmt.Sprintf("references unknown schema %q", step.Schema), nil)
	}
	return nil
}
