package models

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound means no taxonomy document exists for the requested version.
	ErrConfigNotFound = errors.New("taxonomy config not found")
	// ErrConfigMalformed means a taxonomy document failed validation.
	ErrConfigMalformed = errors.New("taxonomy config malformed")
	// ErrEncoderUnavailable means the text encoder could not produce embeddings.
	ErrEncoderUnavailable = errors.New("encoder unavailable")
	// ErrShapeMismatch means query embeddings, index and taxonomy disagree on dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// WrapError keeps kind matchable with errors.Is and prefixes the operation name.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", operation, kind)
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// IsKind reports whether err is of the given kind.
func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrRunNotFound means no stored classification run has the requested ID.
var ErrRunNotFound = errors.New("run not found")
