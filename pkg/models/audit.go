package models

import "time"

// AuditEntry records one destructive run, including declined ones.
type AuditEntry struct {
	RunID        string    `json:"runId"`
	Operation    string    `json:"operation"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	Collections  []string  `json:"collections"`
	Confirmation string    `json:"confirmation"`
	Outcome      string    `json:"outcome"`
	Documents    int64     `json:"documents"`
	Operator     string    `json:"operator,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

const (
	ConfirmPrompt = "prompt"
	ConfirmToken  = "token"

	OutcomeDeclined  = "declined"
	OutcomeCompleted = "completed"
	OutcomePartial   = "completed_with_errors"
	OutcomeFailed    = "failed"
)
