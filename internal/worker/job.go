package worker

import (
	"time"
)

// Trigger says why a run was requested.
type Trigger string

const (
	TriggerCron    Trigger = "cron"
	TriggerStartup Trigger = "startup"
)

// Job represents a backup run request submitted to the worker.
type Job struct {
	Trigger Trigger
	At      time.Time
}
