// Package validation contains the logic for parsing and validating
// request data.
//
// A Schema turns an untyped input (raw JSON bytes, query values, path
// params) into a typed value, or reports a *Error listing every problem
// it found. It uses the `validator` library to enforce rules (like
// required fields or email formats) defined in struct tags and extracts
// validation errors into messages the client can understand.
//
// *Error is the only error kind that means "the input was rejected".
// Every other error a schema returns is an unrelated failure and must be
// treated as such by callers.
package validation
