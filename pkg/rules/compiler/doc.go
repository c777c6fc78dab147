// Package compiler turns a rule document into an executable Plan.
//
// Compilation resolves every name once:
//
//   - Global rules are registered under (global, NAME), names upper-cased.
//     A later global with the same name replaces an earlier one.
//   - A field rule application without a type binds to the global rule of
//     the same name. With a type it compiles a rule private to the field,
//     registered under (field:<fieldName>, NAME), so two fields may declare
//     same-named rules independently.
//   - Group members are resolved to binding indices. An unresolved member
//     fails compilation.
//
// All configuration errors are collected and returned as one
// *errors.ErrorList; a failed compilation never yields a partial Plan.
//
// A Plan carries no run state. Each run calls Plan.NewState for fresh,
// empty failure sets.
package compiler
