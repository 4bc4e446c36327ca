/*
errors.go - Error types for the actuarial engine

PURPOSE:
  All engine errors in one place. Callers classify with errors.Is / errors.As
  and decide how to present them; the engine itself never logs or retries.

ERROR CATEGORIES:
  1. Invalid parameters - non-positive counts, costs or discount rate
  2. Degenerate baseline - sensitivity percent change is undefined
  3. Division by zero - solvency ratio against a zero liability

USAGE:
  proj, err := actuarial.Project(params)
  var invalid *actuarial.InvalidParameterError
  if errors.As(err, &invalid) {
      fmt.Println("bad field:", invalid.Field)
  }

SEE ALSO:
  - liability.go: Parameter validation
  - stress.go, montecarlo.go: Division guards
*/
package actuarial

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidParameter is wrapped by every InvalidParameterError.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDegenerateBaseline is returned when the sensitivity baseline liability
	// is exactly zero, so no percent change can be computed.
	ErrDegenerateBaseline = errors.New("degenerate baseline: liability is zero")

	// ErrDivisionByZero is returned when a solvency ratio would divide by a
	// zero liability.
	ErrDivisionByZero = errors.New("division by zero: liability is zero")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidParameterError names the offending field and value.
type InvalidParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalid(field string, value float64, reason string) error {
	return &InvalidParameterError{Field: field, Value: value, Reason: reason}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by caller input and
// cannot succeed on retry with the same arguments.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrDegenerateBaseline) ||
		errors.Is(err, ErrDivisionByZero)
}
