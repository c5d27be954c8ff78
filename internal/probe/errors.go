package probe

import (
	"errors"
	"fmt"
)

// ErrCallTimeout is reported when a single remote call outlives the
// configured call timeout.
var ErrCallTimeout = errors.New("remote call timed out")

// Step names the part of an iteration that failed.
type Step string

const (
	StepWrite  Step = "write"
	StepUpload Step = "upload"
	StepList   Step = "list"
)

// StepError wraps a failure from one step of an iteration. Any StepError
// ends the run.
type StepError struct {
	Step   Step
	Object string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("probe: %s %q: %v", e.Step, e.Object, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
