package main

import "errors"

// Exit codes returned by paperdup commands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (unreadable or invalid config)
	ExitDataError   = 3 // Data error (malformed corpus, unknown paper, unreadable PDF)
	ExitUnavailable = 4 // Embedding provider not reachable or model missing
	ExitDuplicate   = 5 // Paper already exists in the corpus (add without --force)
)

// exitError pairs an error with the exit code the command should return.
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string { return e.Err.Error() }

func (e *exitError) Unwrap() error { return e.Err }

// exitCode returns the code carried by err, or ExitError.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitError
}
