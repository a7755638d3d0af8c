package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Vasyl-Ch/library-service1.0/model"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type mockTelegram struct {
	sendFn func(ctx context.Context, text string) error
}

func (m *mockTelegram) SendMessage(ctx context.Context, text string) error {
	if m.sendFn == nil {
		return nil
	}
	return m.sendFn(ctx, text)
}

type mockBorrowings struct {
	getWithBookFn func(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error)

	borrowedFn func(ctx context.Context, since time.Time) (int64, error)
	returnedFn func(ctx context.Context, since time.Time) (int64, error)
}

func (m *mockBorrowings) GetWithBook(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error) {
	if m.getWithBookFn == nil {
		return nil, nil, nil
	}
	return m.getWithBookFn(ctx, id)
}

func (m *mockBorrowings) CountBorrowedSince(ctx context.Context, since time.Time) (int64, error) {
	if m.borrowedFn == nil {
		return 0, nil
	}
	return m.borrowedFn(ctx, since)
}

func (m *mockBorrowings) CountReturnedSince(ctx context.Context, since time.Time) (int64, error) {
	if m.returnedFn == nil {
		return 0, nil
	}
	return m.returnedFn(ctx, since)
}

type mockPayments struct {
	getWithOwnerFn func(ctx context.Context, id int64) (*model.Payment, int64, error)
	paidSinceFn    func(ctx context.Context, since time.Time) (int64, decimal.Decimal, error)
}

func (m *mockPayments) GetWithOwner(ctx context.Context, id int64) (*model.Payment, int64, error) {
	if m.getWithOwnerFn == nil {
		return nil, 0, nil
	}
	return m.getWithOwnerFn(ctx, id)
}

func (m *mockPayments) PaidSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error) {
	if m.paidSinceFn == nil {
		return 0, decimal.Zero, nil
	}
	return m.paidSinceFn(ctx, since)
}

func TestQueue_EmitNeverBlocks(t *testing.T) {
	q := NewQueue(1, discard())

	q.Emit(model.Event{Kind: model.EventBorrowingCreated, BorrowingID: 1})

	done := make(chan struct{})
	go func() {
		// Buffer full: this must drop, not block.
		q.Emit(model.Event{Kind: model.EventBorrowingCreated, BorrowingID: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	e := <-q.Events()
	require.Equal(t, int64(1), e.BorrowingID)
	select {
	case e := <-q.Events():
		t.Fatalf("unexpected second event: %+v", e)
	default:
	}
}

func TestWorker_RendersBorrowingCreated(t *testing.T) {
	ctx := context.Background()
	br := &mockBorrowings{
		getWithBookFn: func(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error) {
			return &model.Borrowing{
					ID:                 id,
					UserID:             7,
					ExpectedReturnDate: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
				}, &model.Book{Title: "Dune"}, nil
		},
	}
	w := NewWorker(NewQueue(1, discard()), br, &mockPayments{}, &mockTelegram{}, discard())

	text, err := w.render(ctx, model.Event{Kind: model.EventBorrowingCreated, BorrowingID: 3})
	require.NoError(t, err)
	require.Contains(t, text, "New borrowing")
	require.Contains(t, text, "Dune")
	require.Contains(t, text, "#7")
	require.Contains(t, text, "2024-03-20")
}

func TestWorker_RendersPaymentConfirmed(t *testing.T) {
	ctx := context.Background()
	pr := &mockPayments{
		getWithOwnerFn: func(ctx context.Context, id int64) (*model.Payment, int64, error) {
			return &model.Payment{
				ID:         id,
				Type:       model.TypeFine,
				Status:     model.PaymentPaid,
				MoneyToPay: decimal.RequireFromString("12.00"),
			}, 7, nil
		},
	}
	w := NewWorker(NewQueue(1, discard()), &mockBorrowings{}, pr, &mockTelegram{}, discard())

	text, err := w.render(ctx, model.Event{Kind: model.EventPaymentConfirmed, PaymentID: 4})
	require.NoError(t, err)
	require.Contains(t, text, "Payment received")
	require.Contains(t, text, "FINE")
	require.Contains(t, text, "$12.00")
}

func TestWorker_MissingSubjectIsSilent(t *testing.T) {
	ctx := context.Background()
	w := NewWorker(NewQueue(1, discard()), &mockBorrowings{}, &mockPayments{}, &mockTelegram{}, discard())

	text, err := w.render(ctx, model.Event{Kind: model.EventBorrowingReturned, BorrowingID: 404})
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestWorker_DeliversFromQueue(t *testing.T) {
	q := NewQueue(4, discard())
	br := &mockBorrowings{
		getWithBookFn: func(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error) {
			return &model.Borrowing{ID: id, UserID: 1}, &model.Book{Title: "Dune"}, nil
		},
	}
	sent := make(chan string, 1)
	tg := &mockTelegram{
		sendFn: func(ctx context.Context, text string) error {
			sent <- text
			return nil
		},
	}
	w := NewWorker(q, br, &mockPayments{}, tg, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.Emit(model.Event{Kind: model.EventBorrowingReturned, BorrowingID: 3})

	select {
	case text := <-sent:
		require.True(t, strings.Contains(text, "Book returned"))
	case <-time.After(time.Second):
		t.Fatal("worker did not deliver the event")
	}
}

func TestReporter_Snapshot(t *testing.T) {
	ctx := context.Background()
	br := &mockBorrowings{
		borrowedFn: func(ctx context.Context, since time.Time) (int64, error) { return 12, nil },
		returnedFn: func(ctx context.Context, since time.Time) (int64, error) { return 9, nil },
	}
	pr := &mockPayments{
		paidSinceFn: func(ctx context.Context, since time.Time) (int64, decimal.Decimal, error) {
			return 5, decimal.RequireFromString("73.50"), nil
		},
	}
	r := NewReporter(br, pr, &mockTelegram{}, discard())

	snap, err := r.Snapshot(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(12), snap.NewBorrowings)
	require.Equal(t, int64(9), snap.Returns)
	require.Equal(t, int64(5), snap.PaymentCount)
	require.True(t, snap.TotalEarned.Equal(decimal.RequireFromString("73.50")))
}
