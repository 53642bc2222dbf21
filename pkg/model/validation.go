package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// NewValidator returns a validator aware of the scheduling tags ("clock", "weekday") and slot ordering rules
func NewValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(validate); err != nil {
		return nil, err
	}
	return validate, nil
}

func RegisterValidations(validate *validator.Validate) error {
	if err := validate.RegisterValidation("clock", func(field validator.FieldLevel) bool {
		_, err := ParseClock(field.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("cannot register clock validation: %w", err)
	}

	if err := validate.RegisterValidation("weekday", func(field validator.FieldLevel) bool {
		return Weekday(field.Field().String()).Valid()
	}); err != nil {
		return fmt.Errorf("cannot register weekday validation: %w", err)
	}

	validate.RegisterStructValidation(func(level validator.StructLevel) {
		slot := level.Current().Interface().(TimeSlot)
		if start, end := TimeToMinutes(slot.Start), TimeToMinutes(slot.End); start >= 0 && end >= 0 && end <= start {
			level.ReportError(slot.End, "End", "end", "afterstart", slot.Start)
		}
	}, TimeSlot{})

	validate.RegisterStructValidation(func(level validator.StructLevel) {
		window := level.Current().Interface().(TimeRange)
		if start, end := TimeToMinutes(window.Start), TimeToMinutes(window.End); start >= 0 && end >= 0 && end <= start {
			level.ReportError(window.End, "End", "end", "afterstart", window.Start)
		}
	}, TimeRange{})

	return nil
}

// DescribeValidationError flattens validator output into a single human-readable sentence
func DescribeValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	return "invalid request: " + strings.Join(lo.Map(validationErrors, func(fieldError validator.FieldError, _ int) string {
		if fieldError.Param() == "" {
			return fmt.Sprintf("%v failed on %q", fieldError.Namespace(), fieldError.Tag())
		}
		return fmt.Sprintf("%v failed on %q (%v)", fieldError.Namespace(), fieldError.Tag(), fieldError.Param())
	}), "; ")
}
