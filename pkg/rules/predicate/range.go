package predicate

import (
	"fmt"
	"math"

	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

// Range reports whether a numeric value lies in the closed interval
// [Low, High]. By default a value inside the interval is the violation;
// with Outside set, a value outside it is.
type Range struct {
	low, high float64
	outside   bool
}

// NewRange builds a range from two bounds in either order. Bounds must be
// numeric (see ToNumber) and not NaN.
func NewRange(from, to any, outside bool) (*Range, error) {
	a, err := ToNumber(from)
	if err != nil {
		return nil, fmt.Errorf("fromValue: %w", err)
	}
	b, err := ToNumber(to)
	if err != nil {
		return nil, fmt.Errorf("toValue: %w", err)
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return nil, fmt.Errorf("range bounds must not be NaN")
	}
	return &Range{
		low:     math.Min(a, b),
		high:    math.Max(a, b),
		outside: outside,
	}, nil
}

// Kind implements Predicate.
func (r *Range) Kind() Kind { return KindRange }

// Evaluate implements Predicate. A value that is not numeric yields a
// *errors.TypeMismatchError.
func (r *Range) Evaluate(value any) (bool, error) {
	n, err := ToNumber(value)
	if err != nil {
		return false, &rulesErrors.TypeMismatchError{
			ExpectedType: "number",
			Value:        value,
		}
	}
	inside := n >= r.low && n <= r.high
	return inside != r.outside, nil
}

// Bounds returns the normalized bounds, low <= high.
func (r *Range) Bounds() (low, high float64) { return r.low, r.high }

// Outside reports whether values outside the interval are violations.
func (r *Range) Outside() bool { return r.outside }

func (r *Range) String() string {
	if r.outside {
		return fmt.Sprintf("range violation outside [%g, %g]", r.low, r.high)
	}
	return fmt.Sprintf("range violation inside [%g, %g]", r.low, r.high)
}

func (r *Range) sealed() {}
