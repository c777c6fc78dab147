package errors

import (
	"fmt"
	"strings"
)

// ErrorType categorizes the type of error encountered while loading, compiling,
// or evaluating a rule set.
type ErrorType string

const (
	ErrorTypeSyntax        ErrorType = "syntax"        // Document is not valid JSON/YAML
	ErrorTypeConfiguration ErrorType = "configuration" // Malformed or inconsistent rule configuration
	ErrorTypeDataAccess    ErrorType = "data_access"   // Record source cannot be opened or iterated
	ErrorTypeTypeMismatch  ErrorType = "type_mismatch" // Range rule applied to a non-numeric value
	ErrorTypeIO            ErrorType = "io"            // File I/O error
)

// Location represents a position in a rule document.
type Location struct {
	File   string // Path to the rule document
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns "file:line:column".
func (l Location) String() string {
	if l.File == "" {
		if l.Line > 0 {
			return fmt.Sprintf("<input>:%d:%d", l.Line, l.Column)
		}
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid returns true if the location has line information.
func (l Location) IsValid() bool {
	return l.Line > 0
}

// Error is a rule error carrying enough context (rule, field, group,
// declaration index, source location) to find the offending entry.
type Error struct {
	Type       ErrorType
	Message    string
	Location   Location
	Section    string // "globalRules", "fields", "ruleGroups"
	Index      int    // Declaration index within Section, -1 when not applicable
	Field      string
	Rule       string
	Group      string
	Context    string // Surrounding source lines
	Suggestion string
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))
	if where := e.subject(); where != "" {
		sb.WriteString(" (")
		sb.WriteString(where)
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	sb.WriteString("\n")

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Location.String()))
	}

	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) subject() string {
	var parts []string
	if e.Section != "" && e.Index >= 0 {
		parts = append(parts, fmt.Sprintf("%s[%d]", e.Section, e.Index))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field %q", e.Field))
	}
	if e.Rule != "" {
		parts = append(parts, fmt.Sprintf("rule %q", e.Rule))
	}
	if e.Group != "" {
		parts = append(parts, fmt.Sprintf("group %q", e.Group))
	}
	return strings.Join(parts, ", ")
}

// ErrorList accumulates errors instead of failing on the first one.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, location Location) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Location: location,
		Index:    -1,
	})
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (el *ErrorList) Unwrap() []error {
	errs := make([]error, len(el.Errors))
	for i, e := range el.Errors {
		errs[i] = e
	}
	return errs
}

// ToError returns nil if the error list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

// NewConfigurationError creates a configuration error for a declaration.
func NewConfigurationError(message string, location Location) *Error {
	return &Error{
		Type:     ErrorTypeConfiguration,
		Message:  message,
		Location: location,
		Index:    -1,
	}
}

// NewDataAccessError wraps a record source failure.
func NewDataAccessError(source, op string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeDataAccess,
		Message: fmt.Sprintf("%s: %s failed", source, op),
		Index:   -1,
		Cause:   cause,
	}
}

// TypeMismatchError reports a value whose type a predicate cannot evaluate.
type TypeMismatchError struct {
	Field        string
	Rule         string
	ExpectedType string
	Value        any
}

// Error returns the error message.
func (e *TypeMismatchError) Error() string {
	loc := ""
	if e.Field != "" {
		loc = fmt.Sprintf(" for field %q", e.Field)
	}
	if e.Rule != "" {
		loc += fmt.Sprintf(" rule %q", e.Rule)
	}
	return fmt.Sprintf("type mismatch%s: expected %s, got %T (%v)", loc, e.ExpectedType, e.Value, e.Value)
}

// IsType reports whether err, or any error it wraps, is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		return e.Type == t || IsType(e.Cause, t)
	case *ErrorList:
		return e.HasErrorType(t)
	case *TypeMismatchError:
		return t == ErrorTypeTypeMismatch
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsType(inner, t) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsType(e.Unwrap(), t)
	}
	return false
}
