package pipeline

import (
	"errors"
	"fmt"

	"github.com/23F3003943/student-api-server/pkg/task"
)

// Failure categories. Each step failure is tagged with one of these so
// callers can tell a push failure from an exhausted notification retry.
var (
	ErrGeneration   = errors.New("project generation failed")
	ErrProvisioning = errors.New("provisioning failed")
	ErrPublication  = errors.New("publication failed")
	ErrVerification = errors.New("verification failed")
	ErrNotification = errors.New("notification failed")
)

// StepError ties an underlying error to the pipeline step that raised it and
// its failure category.
type StepError struct {
	Step task.Status
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stepErr(step task.Status, kind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}
