package validation

import (
	"fmt"
	"strings"
)

func DefaultMessage(field, tag string) string {
	field = strings.ToLower(field)

	switch tag {
	case "required":
		return fmt.Sprintf("%s must not be empty", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "min":
		return fmt.Sprintf("%s is below the minimum length or value", field)
	case "max":
		return fmt.Sprintf("%s exceeds the maximum length or value", field)
	case "len":
		return fmt.Sprintf("%s has the wrong length", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to the minimum", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than the minimum", field)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to the maximum", field)
	case "lt":
		return fmt.Sprintf("%s must be less than the maximum", field)
	case "eq":
		return fmt.Sprintf("%s must equal the required value", field)
	case "ne":
		return fmt.Sprintf("%s must not equal the forbidden value", field)
	case "eqfield":
		return fmt.Sprintf("%s must match its paired field", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "alphanum":
		return fmt.Sprintf("%s may only contain letters and digits", field)
	case "alpha":
		return fmt.Sprintf("%s may only contain letters", field)
	case "oneof":
		return fmt.Sprintf("%s is not one of the allowed values", field)
	case "boolean":
		return fmt.Sprintf("%s must be true or false", field)
	case "jwt":
		return fmt.Sprintf("%s must be a valid token", field)
	default:
		return fmt.Sprintf("%s is invalid: %s", field, tag)
	}
}
