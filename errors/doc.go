// Package errors provides structured error types for the regionlift module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: location path, region label, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindMalformedGraph).
//		Path("main", "bb3").
//		Region("bb3").
//		Detail("%d invoke targets", 2).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidArgument(errors.PhaseLift, "entrypoint flag missing")
//	err := errors.OutOfBounds(errors.PhaseBuild, path, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is matches on Phase and Kind only.
package errors
