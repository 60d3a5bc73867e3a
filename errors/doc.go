// Package errors provides unified error handling for the migration engine.
// It implements structured error types with machine-readable codes and
// retryable classification, so the executor can decide whether a failed
// provider call is worth retrying without inspecting wire-level details.
//
// Provider adapters translate their transport errors into *AppError values;
// the engine only looks at the code, the Retryable flag, and the optional
// RetryAfter hint.
package errors
