package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrValidation marks records rejected before they reach storage.
var ErrValidation = errors.New("validation failed")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the struct tags of a record and wraps any failure in
// ErrValidation with the offending field names.
func Validate(record any) error {
	err := recordValidator().Struct(record)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, ", "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
