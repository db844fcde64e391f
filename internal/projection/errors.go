package projection

import "errors"

var (
	// ErrMalformedInput is returned when records handed to a computation are inconsistent.
	ErrMalformedInput = errors.New("malformed input")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a reading or service entry that must not be persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
