package content

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-.]*$`)

// validatorInstance returns the shared validator with the content-specific
// rules registered.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("contentid", validateContentID)
		_ = v.RegisterValidation("price", validatePrice)
		validate = v
	})
	return validate
}

func validateContentID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" {
		return true
	}
	return idPattern.MatchString(id)
}

func validatePrice(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	d, err := decimal.NewFromString(s)
	return err == nil && !d.IsNegative()
}

// Check validates v against its validate struct tags, including the
// contentid and price rules, and flattens the failures into one error.
func Check(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "contentid":
		return fmt.Sprintf("%s %q must be lowercase letters, digits, '_', '-' or '.'", field, fe.Value())
	case "price":
		return fmt.Sprintf("%s %q must be a non-negative decimal", field, fe.Value())
	case "gte", "min":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", field, fe.Param())
	case "excluded_with":
		return fmt.Sprintf("%s must be empty when %s is set", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
