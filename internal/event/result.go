package event

import (
	"time"

	"order_gateway/internal/domain"
)

// Status is the terminal state of a submission.
type Status string

const (
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected" // validation failed, nothing written
	StatusFailed    Status = "failed"   // validated, but not durably written
)

// ActionResult is the one-time outcome of a place/modify/cancel call.
// Presentation decides how long to show it.
type ActionResult struct {
	Action        string           `json:"action"`
	Status        Status           `json:"status"`
	ClientOrderID string           `json:"client_order_id,omitempty"`
	ErrorKind     domain.ErrorKind `json:"error_kind,omitempty"`
	Field         string           `json:"field,omitempty"`
	Message       string           `json:"message"`
	Line          string           `json:"line,omitempty"`
	At            time.Time        `json:"at"`
}

// Committed reports whether the line is durable in the message log.
func (r ActionResult) Committed() bool {
	return r.Status == StatusCommitted
}

// Receipt is the sequencer's reply to one command.
type Receipt struct {
	Seq     uint64 // Position among lines committed by this process, 0 if none
	Message domain.OrderMessage
	Line    string
	Err     error
}
