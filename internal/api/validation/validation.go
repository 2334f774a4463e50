// Package validation checks decoded request bodies against their `validate` struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/knowledgebase/vectorhub/internal/kberrors"
)

// validate is safe for concurrent use. Registrations happen in init only.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names so errors point at the request body, not the Go struct.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})
}

// ValidateStruct returns a *kberrors.ValidationError for the first failing field of s, or nil.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]

		return kberrors.NewValidationError(fe.Field(), formatFieldError(fe))
	}

	return kberrors.NewValidationError("", err.Error())
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "excludesall":
		return field + " contains a forbidden character"
	default:
		return field + " is invalid"
	}
}
