// Package validation wraps go-playground/validator with the event domain's
// custom tags and turns failures into a field -> message map.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ms-events/internal/apperrors"
	"ms-events/internal/models"
)

type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

func New() *Validator {
	return NewWithClock(time.Now)
}

// NewWithClock lets tests pin "today" for the notpast rule.
func NewWithClock(now func() time.Time) *Validator {
	v := &Validator{validate: validator.New(), now: now}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	_ = v.validate.RegisterValidation("isodate", isoDate)
	_ = v.validate.RegisterValidation("clock", clockTime)
	_ = v.validate.RegisterValidation("notpast", v.notPast)

	return v
}

// Struct validates s and returns an apperrors validation error on failure.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Internal("Validation could not be performed", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return apperrors.Validation(fields)
}

func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(models.DateLayout, fl.Field().String())
	return err == nil
}

func clockTime(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != len(models.TimeLayout) {
		return false
	}
	_, err := time.Parse(models.TimeLayout, s)
	return err == nil
}

// notPast accepts today and later, compared in the server's local calendar.
func (v *Validator) notPast(fl validator.FieldLevel) bool {
	d, err := time.ParseInLocation(models.DateLayout, fl.Field().String(), time.Local)
	if err != nil {
		return false
	}
	now := v.now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return !d.Before(today)
}

func message(fe validator.FieldError) string {
	label := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return "Email must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "isodate":
		return fmt.Sprintf("%s must be formatted as YYYY-MM-DD", label)
	case "clock":
		return fmt.Sprintf("%s must be formatted as HH:mm", label)
	case "notpast":
		return fmt.Sprintf("%s must be in the present or future", label)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
