// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import "errors"

// Exit codes for the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitProbeFailed indicates a probe was rejected or could not complete.
	ExitProbeFailed = 1

	// ExitConfigError indicates a configuration or input validation error.
	ExitConfigError = 2
)

// Sentinel errors for CLI operations.
var (
	// ErrInvalidInput is returned when required input parameters are missing or invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig is returned when the pin policy cannot be loaded or is invalid.
	ErrConfig = errors.New("configuration error")

	// ErrProbeFailed is returned when one or more probes were rejected or failed.
	ErrProbeFailed = errors.New("probe failed")

	// ErrLookupFailed is returned when a TLSA lookup fails.
	ErrLookupFailed = errors.New("lookup failed")

	// ErrFileOperation is returned when a file read or write operation fails.
	ErrFileOperation = errors.New("file operation failed")
)

// exitCode maps a command error onto the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrConfig), errors.Is(err, ErrInvalidInput):
		return ExitConfigError
	default:
		return ExitProbeFailed
	}
}
