package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/maintenance-tracker/internal/validation"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// Validator checks request payload shape before it reaches the services.
type Validator struct {
	v *validator.Validate
}

// NewValidator reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate returns the first failing field, in declaration order.
func (dv *Validator) Validate(i any) error {
	err := dv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fieldError(ve[0])
	}
	return apperrors.NewInternalError(err)
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return validation.Required(fe.Field(), "")
	default:
		return apperrors.NewValidationError(fe.Field()+" failed validation ("+fe.Tag()+")",
			map[string]any{"field": fe.Field()})
	}
}
