// Package errors provides classified error primitives used across setsim.
//
// A ClassifiedError carries a category (config, engine, parse, filesystem,
// ...), a severity and a retry hint, plus free-form context. The CLI adapter
// maps categories to process exit codes.
//
// Example usage:
//
//	err := errors.ParseError("malformed statistics row").
//		WithContext("file", path).
//		WithContext("line", line).
//		WithCause(parseErr).
//		Build()
package errors
