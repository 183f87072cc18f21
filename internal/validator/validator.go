// Package validator holds the shared request validator and the custom rules
// used by the transport DTOs.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"financeflow/internal/core"
)

var Validate *validator.Validate

// ErrValidation wraps every error returned by Struct.
var ErrValidation = errors.New("validation failed")

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// "2024-12"
	_ = Validate.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(core.MonthLayout, fl.Field().String())
		return err == nil
	})

	// "2024-12-31"
	_ = Validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(core.DateLayout, fl.Field().String())
		return err == nil
	})

	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Struct validates v and flattens field errors into one readable error.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
