package catalog

import (
	"fmt"

	"github.com/adamokeah/shamzam/internal/errors"
)

// Sentinel errors for catalog operations. Returned errors wrap them, so
// callers can match with errors.Is as well as by category.
var (
	// ErrTrackNotFound indicates no track matched the id or key.
	ErrTrackNotFound = errors.NewStd("track not found")

	// ErrInvalidTrack indicates a title or artist failed validation.
	ErrInvalidTrack = errors.NewStd("invalid track")
)

const component = "catalog"

// storeError categorizes a database failure. Payload decoding failures keep
// their malformed-encoding category; everything else is a storage error.
func storeError(err error, operation string, kv ...any) error {
	category := errors.CategoryStorage
	if errors.IsMalformedEncoding(err) {
		category = errors.CategoryMalformedEncoding
	}

	builder := errors.New(fmt.Errorf("catalog %s: %w", operation, err)).
		Component(component).
		Category(category).
		Context("operation", operation)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			builder = builder.Context(key, kv[i+1])
		}
	}
	return builder.Build()
}

func validationError(field, message string) error {
	return errors.New(fmt.Errorf("%w: %s %s", ErrInvalidTrack, field, message)).
		Component(component).
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

func notFoundError(operation string, kv ...any) error {
	builder := errors.New(ErrTrackNotFound).
		Component(component).
		Category(errors.CategoryNotFound).
		Context("operation", operation)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			builder = builder.Context(key, kv[i+1])
		}
	}
	return builder.Build()
}
