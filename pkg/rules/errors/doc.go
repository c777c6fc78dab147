// Package errors provides the error taxonomy shared by the rule document
// parser, the rule compiler, the evaluation engine and the record sources.
//
// # Error Types
//
// ErrorTypeSyntax: the document is not valid JSON or YAML
//
// ErrorTypeConfiguration: unknown rule kind, missing required parameter,
// invalid pattern, unresolved group member
//
// ErrorTypeDataAccess: the record source cannot be opened or iterated
//
// ErrorTypeTypeMismatch: a range rule met a non-numeric value
//
// ErrorTypeIO: reading the document failed
//
// # Basic Usage
//
// Accumulate configuration errors, then return them together:
//
//	errList := errors.NewErrorList()
//	errList.Add(&errors.Error{
//	    Type:    errors.ErrorTypeConfiguration,
//	    Message: "missing pattern",
//	    Section: "fields",
//	    Index:   2,
//	    Field:   "code",
//	    Rule:    "DIGITS",
//	})
//	return errList.ToError()
//
// Test a category anywhere in a wrapped chain:
//
//	if errors.IsType(err, errors.ErrorTypeDataAccess) { ... }
package errors
