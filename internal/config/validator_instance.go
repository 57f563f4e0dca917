package config

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern     = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	stepIDPattern     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	schemaNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	orgIDPattern      = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	ssnPattern        = regexp.MustCompile(`^[0-8][0-9]{8}$`)

	// Numbers the SSA never issues or that are well-known placeholders.
	blockedSSNs = map[string]struct{}{
		"078051120": {}, "219099999": {}, "123456789": {}, "888888888": {},
		"777777777": {}, "555555555": {}, "444444444": {}, "333333333": {},
		"222222222": {}, "111111111": {}, "457555462": {}, "012345678": {},
		"987654321": {},
	}
)

// validatorInstance configures and returns the shared validator instance.
// The same instance validates flow documents and, through rule schemas,
// user-entered form data.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return stepIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("schema_name", func(fl validator.FieldLevel) bool {
			return schemaNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("schema_ref", func(fl validator.FieldLevel) bool {
			ref := strings.TrimPrefix(fl.Field().String(), OpenAPIRefPrefix)
			return schemaNamePattern.MatchString(ref)
		})

		_ = v.RegisterValidation("field_path", func(fl validator.FieldLevel) bool {
			return wizard.ParsePath(fl.Field().String()) == nil
		})

		_ = v.RegisterValidation("ssn", func(fl validator.FieldLevel) bool {
			return isValidSSN(fl.Field().String())
		})

		_ = v.RegisterValidation("org_id", func(fl validator.FieldLevel) bool {
			return orgIDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns a configured validator instance for use outside the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

func isValidSSN(value string) bool {
	if !ssnPattern.MatchString(value) {
		return false
	}
	if prefix := value[:3]; prefix == "000" || prefix == "666" {
		return false
	}
	_, blocked := blockedSSNs[value]
	return !blocked
}
