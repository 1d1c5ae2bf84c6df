package backup

import (
	"errors"
	"fmt"
)

// Step names one phase of a run.
type Step string

const (
	StepPrerequisites Step = "prerequisites"
	StepStop          Step = "stop"
	StepArchive       Step = "archive"
	StepStart         Step = "start"
	StepPrune         Step = "prune"
	StepOffsite       Step = "offsite"
	StepMetrics       Step = "metrics"
)

// Error classes. Every fatal run error matches exactly one of them.
var (
	ErrPrerequisite = errors.New("prerequisite check failed")
	ErrLifecycle    = errors.New("service lifecycle failure")
	ErrArchive      = errors.New("archive creation failed")
)

// StepError is the fatal error of a run.
type StepError struct {
	Step Step
	Kind error
	// ServiceDown is set when the service could not be started again.
	ServiceDown bool
	Err         error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
	if e.ServiceDown {
		msg += " (service left down)"
	}
	return msg
}

func (e *StepError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Warning is a non-fatal failure: a prune deletion, the offsite copy or the
// metrics export.
type Warning struct {
	Step Step
	Err  error
}

func (w *Warning) Error() string { return fmt.Sprintf("%s: %v", w.Step, w.Err) }

func (w *Warning) Unwrap() error { return w.Err }
