package errors

import "errors"

var (
	// ErrValidation covers bad or missing caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers unknown document identifiers.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedFormat covers uploads with an extension we cannot extract.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction covers supported uploads that yield no text.
	ErrExtraction = errors.New("text extraction failed")
	// ErrGeneration covers downstream model failures (timeout, quota,
	// malformed response). Retrieval returning nothing is NOT this error.
	ErrGeneration = errors.New("generation failed")
	// ErrStoreUnavailable covers an unreachable index/vector store.
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// Is re-exports errors.Is so callers matching sentinels need one import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
