package engine

import "time"

// Status is a workflow execution's terminal outcome.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// StepRecord captures one node's contribution to an execution: its position
// in dispatch order, how long it took, whether it succeeded, and (if not)
// why.
type StepRecord struct {
	Index      int
	NodeType   string
	StartedAt  time.Time
	Duration   time.Duration
	Success    bool
	Error      string
	RetryCount int
}

// Result is what Run returns: the terminal task context plus the execution
// metadata the engine collected along the way.
type Result struct {
	CorrelationID string
	StartTime     time.Time
	EndTime       time.Time
	Status        Status
	Steps         []StepRecord
}
