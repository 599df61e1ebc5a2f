// Package errs defines the error and response shapes the API sends to clients.
//
// There are two shapes:
//   - Envelope: the fixed {status, message} body written when request
//     validation rejects an input.
//   - HTTPError: the body the global error handler writes for every other
//     failure (route not found, rate limited, internal errors, ...).
package errs
