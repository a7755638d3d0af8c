package borrowingsvc

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Vasyl-Ch/library-service1.0/model"
	bookrepo "github.com/Vasyl-Ch/library-service1.0/repository/book"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
	"github.com/Vasyl-Ch/library-service1.0/util/database"
)

// Row-lock contention is retried this many times before surfacing.
const maxLockAttempts = 3

// DB begins transactions; *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, userID, bookID int64, borrowDate, expectedReturn time.Time) (int64, error)
	HasActive(ctx context.Context, userID, bookID int64) (bool, error)
	Get(ctx context.Context, id int64) (*model.Borrowing, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx pgx.Tx, id int64, returnedAt time.Time) error
	List(ctx context.Context, userID *int64, isActive *bool) ([]model.Borrowing, error)
}

// InventoryGuard is the only path that may touch a book's inventory
// counter. Reserve and Release lock the book row inside the same
// transaction that mutates the borrowing.
type InventoryGuard interface {
	Reserve(ctx context.Context, tx pgx.Tx, bookID int64) error
	Release(ctx context.Context, tx pgx.Tx, bookID int64) error
}

// PaymentLedger exposes the payment state the return flow checks.
type PaymentLedger interface {
	AnyForBorrowing(ctx context.Context, borrowingID int64) (bool, error)
	ListPendingByBorrowing(ctx context.Context, borrowingID int64) ([]model.Payment, error)
}

// PaymentOpener creates the rental invoice (and checkout session) when
// a borrowing is returned without any payment on record.
type PaymentOpener interface {
	Create(ctx context.Context, actor model.Actor, borrowingID int64) (*model.Payment, error)
}

type Emitter interface {
	Emit(e model.Event)
}

type Service interface {
	// Create reserves a copy and inserts the borrowing atomically.
	Create(ctx context.Context, actor model.Actor, bookID int64, expectedReturn time.Time) (*model.Borrowing, error)

	// Return finalizes an active borrowing: restores inventory and
	// stamps the return date. Non-staff actors are rejected while
	// pending payments exist; a borrowing with no payments at all gets
	// its invoice auto-created first.
	Return(ctx context.Context, actor model.Actor, borrowingID int64) (*model.Borrowing, error)

	Get(ctx context.Context, actor model.Actor, id int64) (*model.Borrowing, error)
	List(ctx context.Context, actor model.Actor, isActive *bool) ([]model.Borrowing, error)
}

type service struct {
	db       DB
	r        Repo
	guard    InventoryGuard
	payments PaymentLedger
	opener   PaymentOpener
	ev       Emitter
	now      func() time.Time
}

func New(db DB, r Repo, guard InventoryGuard, payments PaymentLedger, opener PaymentOpener, ev Emitter) Service {
	return &service{
		db: db, r: r, guard: guard, payments: payments, opener: opener, ev: ev,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *service) Create(ctx context.Context, actor model.Actor, bookID int64, expectedReturn time.Time) (*model.Borrowing, error) {
	borrowDate := today(s.now())
	if today(expectedReturn).Before(borrowDate) {
		return nil, apperr.New(apperr.ErrInvalidDate, "expected return date cannot be in the past")
	}

	active, err := s.r.HasActive(ctx, actor.UserID, bookID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperr.New(apperr.ErrDuplicateActiveBorrowing, "user already has this book borrowed")
	}

	var id int64
	err = s.withLockRetry(ctx, func(tx pgx.Tx) error {
		if err := s.guard.Reserve(ctx, tx, bookID); err != nil {
			return err
		}
		var ierr error
		id, ierr = s.r.Insert(ctx, tx, actor.UserID, bookID, borrowDate, today(expectedReturn))
		return ierr
	})
	if err != nil {
		return nil, mapReserveErr(err)
	}

	s.ev.Emit(model.Event{Kind: model.EventBorrowingCreated, BorrowingID: id, OccurredAt: s.now()})
	return s.r.Get(ctx, id)
}

func (s *service) Return(ctx context.Context, actor model.Actor, borrowingID int64) (*model.Borrowing, error) {
	borrowing, err := s.r.Get(ctx, borrowingID)
	if err != nil {
		return nil, err
	}
	if borrowing == nil {
		return nil, apperr.New(apperr.ErrNotFound, "borrowing not found")
	}
	if !actor.Owns(borrowing.UserID) {
		return nil, apperr.New(apperr.ErrUnauthorized, "forbidden")
	}
	if !borrowing.IsActive() {
		return nil, apperr.New(apperr.ErrAlreadyReturned, "the book has already been returned")
	}

	pending, err := s.payments.ListPendingByBorrowing(ctx, borrowingID)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 && !actor.Staff {
		return nil, apperr.New(apperr.ErrUnpaidBalance, "unpaid invoices exist for this borrowing, pay them before returning")
	}
	if len(pending) == 0 {
		any, err := s.payments.AnyForBorrowing(ctx, borrowingID)
		if err != nil {
			return nil, err
		}
		// Never returned an invoice: create it (with its checkout
		// session) on the way out.
		if !any {
			if _, err := s.opener.Create(ctx, actor, borrowingID); err != nil {
				return nil, err
			}
		}
	}

	returnDate := today(s.now())
	err = s.withLockRetry(ctx, func(tx pgx.Tx) error {
		current, err := s.r.GetForUpdate(ctx, tx, borrowingID)
		if err != nil {
			return err
		}
		if current == nil {
			return apperr.New(apperr.ErrNotFound, "borrowing not found")
		}
		if !current.IsActive() {
			return apperr.New(apperr.ErrAlreadyReturned, "the book has already been returned")
		}
		if err := s.guard.Release(ctx, tx, current.BookID); err != nil {
			return err
		}
		return s.r.MarkReturned(ctx, tx, borrowingID, returnDate)
	})
	if err != nil {
		return nil, err
	}

	s.ev.Emit(model.Event{Kind: model.EventBorrowingReturned, BorrowingID: borrowingID, OccurredAt: s.now()})
	return s.r.Get(ctx, borrowingID)
}

func (s *service) Get(ctx context.Context, actor model.Actor, id int64) (*model.Borrowing, error) {
	b, err := s.r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperr.New(apperr.ErrNotFound, "borrowing not found")
	}
	if !actor.Owns(b.UserID) {
		return nil, apperr.New(apperr.ErrNotFound, "borrowing not found")
	}
	return b, nil
}

func (s *service) List(ctx context.Context, actor model.Actor, isActive *bool) ([]model.Borrowing, error) {
	if actor.Staff {
		return s.r.List(ctx, nil, isActive)
	}
	return s.r.List(ctx, &actor.UserID, isActive)
}

// withLockRetry runs fn in a transaction, retrying bounded times when
// the book-row lock times out under contention.
func (s *service) withLockRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !database.IsLockTimeout(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return apperr.Wrap(apperr.ErrStorageContention, "storage contention, try again", lastErr)
}

func (s *service) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func mapReserveErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bookrepo.ErrNoCopies):
		return apperr.New(apperr.ErrOutOfStock, "book is not available")
	case errors.Is(err, pgx.ErrNoRows):
		return apperr.New(apperr.ErrNotFound, "book not found")
	default:
		return err
	}
}
