package recognition

import (
	"fmt"

	"github.com/adamokeah/shamzam/internal/errors"
)

const component = "recognition"

// ErrEmptyFragment is wrapped by the validation error returned for an empty
// fragment.
var ErrEmptyFragment = errors.NewStd("audio fragment is empty")

func validationError(err error) error {
	return errors.New(err).
		Component(component).
		Category(errors.CategoryValidation).
		Build()
}

func authError(format string, args ...any) error {
	return errors.New(fmt.Errorf(format, args...)).
		Component(component).
		Category(errors.CategoryProviderAuth).
		Context("provider", providerName).
		Build()
}

func unavailableError(format string, args ...any) error {
	return errors.New(fmt.Errorf(format, args...)).
		Component(component).
		Category(errors.CategoryProviderUnavailable).
		Context("provider", providerName).
		Build()
}
