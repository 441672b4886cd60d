package domain

import "time"

// DiagnosticService is the service label reported by the storage health check.
const DiagnosticService = "r2"

// StepName identifies one step of the storage health check.
type StepName string

const (
	StepList   StepName = "list"
	StepPut    StepName = "put"
	StepGet    StepName = "get"
	StepDelete StepName = "del"
)

// DiagnosticStep is the outcome of a single health check step.
type DiagnosticStep struct {
	Name  StepName `json:"name"`
	OK    bool     `json:"ok"`
	MS    int64    `json:"ms"`
	Error string   `json:"error,omitempty"`
}

// DiagnosticReport is returned when every step succeeded.
type DiagnosticReport struct {
	Service   string           `json:"service"`
	OK        bool             `json:"ok"`
	Steps     []DiagnosticStep `json:"steps"`
	TotalMS   int64            `json:"totalMs"`
	Timestamp time.Time        `json:"timestamp"`
}

// DiagnosticFailure is returned when a step failed.
// FailedStep is empty when the run never started (e.g. another run holds the lock).
type DiagnosticFailure struct {
	Service    string    `json:"service"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error"`
	FailedStep StepName  `json:"failedStep,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
