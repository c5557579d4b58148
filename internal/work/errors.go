package work

import "errors"

// FailureKind tells why a calculation produced no result.
type FailureKind string

const (
	MissingCheckIn   FailureKind = "missing_check_in"
	InvalidTimeRange FailureKind = "invalid_time_range"
)

var (
	ErrMissingCheckIn   = errors.New("check-in time is required")
	ErrInvalidTimeRange = errors.New("worked time is negative")
)

// CalcError is returned by Calculate instead of a Result. It only concerns
// the input it was given; the next call with corrected input succeeds.
type CalcError struct {
	Kind FailureKind
}

func (e *CalcError) Error() string {
	return e.sentinel().Error()
}

func (e *CalcError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *CalcError) sentinel() error {
	if e.Kind == MissingCheckIn {
		return ErrMissingCheckIn
	}
	return ErrInvalidTimeRange
}

// KindOf extracts the failure kind from err, or "" when err is not a
// calculation failure.
func KindOf(err error) FailureKind {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
