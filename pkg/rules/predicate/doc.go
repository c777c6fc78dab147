// Package predicate implements the two rule kinds: Pattern (regular
// expression search) and Range (closed numeric interval).
//
// A predicate returns true for a violation:
//
//   - Pattern: the expression is found anywhere in the value's text form.
//     Invert flips this, so a missing match is the violation.
//   - Range: the value lies inside [min, max] of the two bounds, both ends
//     inclusive. Outside flips this, so a value outside the interval is the
//     violation.
//
// Pattern values are matched in text form: a nil value (SQL NULL, JSON
// null) is the empty string, the same as an empty CSV cell, so a rule such
// as `^\s*$` flags missing values. Booleans render as True and False.
//
// Patterns use regexp2, which accepts the backtracking syntax rule authors
// expect (lookaround, backreferences, free-spacing mode). Range predicates
// return an *errors.TypeMismatchError for values that are not numeric.
package predicate
