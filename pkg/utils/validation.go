package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "astraea-backend/pkg/errors"
)

var validate = validator.New()

// ValidateStruct checks a struct against its validate tags. Failures come
// back as a typed validation error carrying a per-field detail map, so
// HTTP handlers can render them without inspecting the message.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}

	details := make(map[string]interface{}, len(fieldErrors))
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		msg := fieldMessage(fe)
		details[strings.ToLower(fe.Field())] = msg
		messages = append(messages, msg)
	}

	return apperrors.NewValidationError(strings.Join(messages, "; ")).WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "uuid":
		return field + " must be a valid UUID"
	case "datetime":
		return field + " must match the format " + fe.Param()
	case "dive":
		return field + " contains invalid values"
	default:
		return field + " is invalid"
	}
}
