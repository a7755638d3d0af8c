// model/event.go
package model

import "time"

type EventKind string

const (
	EventBorrowingCreated  EventKind = "BORROWING_CREATED"
	EventBorrowingReturned EventKind = "BORROWING_RETURNED"
	EventPaymentConfirmed  EventKind = "PAYMENT_CONFIRMED"
)

// Event is an outbound lifecycle notification. Emitted only after the
// triggering transaction committed; delivery is at-least-once and
// never rolls the transition back.
type Event struct {
	Kind        EventKind `json:"kind"`
	BorrowingID int64     `json:"borrowing_id,omitempty"`
	PaymentID   int64     `json:"payment_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
