// Package validate runs struct-tag validation on service inputs and turns the
// first failure into an apperror.ValidationFailed naming the JSON field.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
)

// validator.Validate caches struct metadata and is safe for concurrent use,
// so one instance serves the whole process.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	// Report `json:"eventDate"` instead of the Go field name EventDate.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	val.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.Category(fl.Field().String()).Valid()
	})

	// bcrypt only looks at the first 72 bytes; validator's max counts runes.
	val.RegisterValidation("maxbytes72", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= 72
	})

	return val
}

// Struct validates s. It returns nil, an *apperror.AppError for the first
// invalid field, or a plain error if s is not a struct.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}

	fe := verrs[0]
	return apperror.ValidationFailed(fe.Field(), message(fe))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	case "email":
		return "please provide a valid email"
	case "alphanum":
		return fmt.Sprintf("%s may only contain letters and digits", field)
	case "category":
		names := make([]string, len(model.Categories))
		for i, c := range model.Categories {
			names[i] = string(c)
		}
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(names, ", "))
	case "maxbytes72":
		return fmt.Sprintf("%s cannot exceed 72 bytes", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
