package predicate

import (
	"fmt"
	"strings"
)

// Kind identifies a rule kind as written in a rule document.
type Kind string

const (
	KindPattern Kind = "regex"
	KindRange   Kind = "range"
)

// ParseKind maps a document "type" value onto a Kind. "pattern" is accepted
// as an alias of "regex".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regex", "pattern":
		return KindPattern, nil
	case "range":
		return KindRange, nil
	default:
		return "", fmt.Errorf("unknown rule type %q (supported: regex, range)", s)
	}
}

// Predicate tests one scalar value for a violation. The set of
// implementations is closed: *Pattern and *Range.
type Predicate interface {
	// Kind returns the rule kind this predicate implements.
	Kind() Kind

	// Evaluate returns true when value violates the rule.
	Evaluate(value any) (bool, error)

	// String describes the predicate for logs and "check" output.
	String() string

	sealed()
}

var (
	_ Predicate = (*Pattern)(nil)
	_ Predicate = (*Range)(nil)
)
