package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vasyl-Ch/library-service1.0/model"
	telegramrepo "github.com/Vasyl-Ch/library-service1.0/repository/telegram"
)

type BorrowingRepo interface {
	GetWithBook(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error)
}

type PaymentRepo interface {
	GetWithOwner(ctx context.Context, id int64) (*model.Payment, int64, error)
}

// Worker drains the queue and renders each event into a message.
// Delivery is retried once; a failure after that is logged and the
// event is dropped.
type Worker struct {
	q   *Queue
	br  BorrowingRepo
	pr  PaymentRepo
	tg  telegramrepo.Repo
	log *slog.Logger
}

func NewWorker(q *Queue, br BorrowingRepo, pr PaymentRepo, tg telegramrepo.Repo, log *slog.Logger) *Worker {
	return &Worker{q: q, br: br, pr: pr, tg: tg, log: log}
}

func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.q.Events():
			if !ok {
				return
			}
			w.handle(ctx, e)
		}
	}
}

func (w *Worker) handle(ctx context.Context, e model.Event) {
	text, err := w.render(ctx, e)
	if err != nil {
		w.log.Error("notify render failed", "kind", e.Kind, "err", err)
		return
	}
	if text == "" {
		return
	}
	if err := w.send(ctx, text); err != nil {
		w.log.Error("notify delivery failed", "kind", e.Kind, "err", err)
	}
}

func (w *Worker) send(ctx context.Context, text string) error {
	err := w.tg.SendMessage(ctx, text)
	if err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}
	return w.tg.SendMessage(ctx, text)
}

func (w *Worker) render(ctx context.Context, e model.Event) (string, error) {
	switch e.Kind {
	case model.EventBorrowingCreated, model.EventBorrowingReturned:
		borrowing, book, err := w.br.GetWithBook(ctx, e.BorrowingID)
		if err != nil || borrowing == nil {
			return "", err
		}
		if e.Kind == model.EventBorrowingCreated {
			return fmt.Sprintf(
				"📚 <b>New borrowing</b>\nBook: %s\nUser: #%d\nDue: %s",
				book.Title, borrowing.UserID, borrowing.ExpectedReturnDate.Format("2006-01-02"),
			), nil
		}
		return fmt.Sprintf(
			"✅ <b>Book returned</b>\nBook: %s\nUser: #%d",
			book.Title, borrowing.UserID,
		), nil
	case model.EventPaymentConfirmed:
		payment, ownerID, err := w.pr.GetWithOwner(ctx, e.PaymentID)
		if err != nil || payment == nil {
			return "", err
		}
		return fmt.Sprintf(
			"💳 <b>Payment received</b>\nType: %s\nAmount: $%s\nUser: #%d",
			payment.Type, payment.MoneyToPay.StringFixed(2), ownerID,
		), nil
	default:
		return "", nil
	}
}
