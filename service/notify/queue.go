// Package notify decouples lifecycle notifications from the request
// path: services enqueue events after commit, a worker delivers them.
package notify

import (
	"log/slog"

	"github.com/Vasyl-Ch/library-service1.0/model"
)

// Queue is the outbound event buffer. Emit never blocks the caller;
// when the buffer is full the event is dropped and logged, a committed
// transition is never rolled back over notification trouble.
type Queue struct {
	ch  chan model.Event
	log *slog.Logger
}

func NewQueue(size int, log *slog.Logger) *Queue {
	return &Queue{ch: make(chan model.Event, size), log: log}
}

func (q *Queue) Emit(e model.Event) {
	select {
	case q.ch <- e:
	default:
		q.log.Error("notify queue full, dropping event", "kind", e.Kind, "borrowing_id", e.BorrowingID, "payment_id", e.PaymentID)
	}
}

func (q *Queue) Events() <-chan model.Event { return q.ch }

func (q *Queue) Close() { close(q.ch) }
