// Package metrics records service and board metrics behind a small sink
// interface.
package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations must not block or return errors.
type Sink interface {
	// Job store metrics
	StoreOperation(operation, outcome string, duration time.Duration)

	// Board metrics
	SessionOpened()
	SessionClosed()
	ConflictsAdjust(severity string, delta int)
	StaleResponse()
}

// Outcome constants for StoreOperation.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)
