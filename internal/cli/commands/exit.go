package commands

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitAlreadyWoven = 3
)

// ExitError carries a process exit code.
type ExitError struct {
	Code int
	Err  error
	// Reported is set when the command already printed Err.
	Reported bool
}

// Silent reports whether nothing more should be printed for e.
func (e *ExitError) Silent() bool { return e.Err == nil || e.Reported }

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}
