// Package errors provides the classified error primitives shared across phest.
//
// A ClassifiedError carries a category (what part of the build decision failed),
// a severity and structured context. Errors are built with the fluent ErrorBuilder:
//
//	err := errors.FingerprintError("write fingerprint").
//		WithContext("site", site).
//		WithCause(ioErr).
//		Build()
//
// CLIErrorAdapter maps categories to process exit codes for cmd/phest.
package errors
