package shared

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process-wide validator. Field names in errors come from
// the `label` struct tag so messages read like form labels.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if label := f.Tag.Get("label"); label != "" {
				return label
			}
			return f.Name
		})
	})
	return validate
}

// ValidateStruct runs tag validation and folds every failure into one ValidationError.
// Empty required fields are reported as missing; other failures as problems.
func ValidateStruct(v any) *ValidationError {
	verr := &ValidationError{}
	err := Validator().Struct(v)
	if err == nil {
		return verr
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("%v", err)
		return verr
	}
	for _, fe := range fieldErrs {
		label := fe.Field()
		switch fe.Tag() {
		case "required":
			verr.AddMissing(label)
		case "gt":
			verr.Add("%s must be greater than %s", label, fe.Param())
		case "gte":
			verr.Add("%s must not be negative", label)
		case "lte":
			verr.Add("%s must be at most %s", label, fe.Param())
		case "min":
			verr.Add("%s must be at least %s characters", label, fe.Param())
		case "max":
			verr.Add("%s must be at most %s characters", label, fe.Param())
		case "datetime":
			verr.Add("%s must be a date in %s form", label, fe.Param())
		case "oneof":
			verr.Add("%s must be one of %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
		default:
			verr.Add("%s is invalid", label)
		}
	}
	return verr
}
