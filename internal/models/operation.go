package models

import "time"

// OperationStatus represents the state of a console operation.
type OperationStatus string

const (
	// StatusRunning indicates the operation is in progress.
	StatusRunning OperationStatus = "running"
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess OperationStatus = "success"
	// StatusFailed indicates the operation failed.
	StatusFailed OperationStatus = "failed"
	// StatusAborted indicates the operator declined a confirmation.
	StatusAborted OperationStatus = "aborted"
)

// Operation is one recorded console action.
type Operation struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	Target     string          `json:"target"`
	Status     OperationStatus `json:"status"`
	Detail     string          `json:"detail"`
}

// Duration returns how long the operation ran, or zero while it is running.
func (o *Operation) Duration() time.Duration {
	if o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
