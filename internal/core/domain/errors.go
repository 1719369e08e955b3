package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTemporary      = errors.New("temporary failure")
	ErrExtraction     = errors.New("text extraction failed")
	ErrClassification = errors.New("classification failed")
	ErrEmbedding      = errors.New("embedding failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Retryable reports whether an attempt that failed with err may succeed
// later. Anything not marked temporary is treated as permanent.
func Retryable(err error) bool {
	return errors.Is(err, ErrTemporary)
}
