package embedding

import (
	"errors"
	"fmt"
)

// Common errors returned by embedding providers.
var (
	// ErrModelUnavailable indicates the backend or its model could not be reached.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrDimensionMismatch indicates a vector of unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyResponse indicates the backend returned no vectors.
	ErrEmptyResponse = errors.New("empty embedding response")

	// ErrBatchLength indicates a batch call returned the wrong number of vectors.
	ErrBatchLength = errors.New("embedding batch length mismatch")
)

// EncodingError reports that a provider could not produce a vector.
type EncodingError struct {
	Model string
	Texts int // Number of texts in the failed call
	Err   error
}

func (e *EncodingError) Error() string {
	if e.Texts > 1 {
		return fmt.Sprintf("encoding %d texts with %s: %v", e.Texts, e.Model, e.Err)
	}
	return fmt.Sprintf("encoding text with %s: %v", e.Model, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// wrapEncoding wraps err in an EncodingError unless it already is one.
func wrapEncoding(model string, texts int, err error) error {
	if err == nil {
		return nil
	}
	var encErr *EncodingError
	if errors.As(err, &encErr) {
		return err
	}
	return &EncodingError{Model: model, Texts: texts, Err: err}
}

// IsEncodingError returns true if err (or anything it wraps) is an EncodingError.
func IsEncodingError(err error) bool {
	var encErr *EncodingError
	return errors.As(err, &encErr)
}

// IsUnavailable returns true if the error indicates the model could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}
