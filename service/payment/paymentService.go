package paymentsvc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Vasyl-Ch/library-service1.0/model"
	striperepo "github.com/Vasyl-Ch/library-service1.0/repository/stripe"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
	"github.com/Vasyl-Ch/library-service1.0/service/pricing"
)

// DB begins transactions; *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, borrowingID int64, ptype model.PaymentType, amount decimal.Decimal) (int64, error)
	ExistsPending(ctx context.Context, tx pgx.Tx, borrowingID int64) (bool, error)
	HasPendingForUserBook(ctx context.Context, userID, bookID int64) (bool, error)
	ListPendingByBorrowing(ctx context.Context, borrowingID int64) ([]model.Payment, error)
	SetSession(ctx context.Context, ids []int64, sessionID, sessionURL string) error
	MarkPaid(ctx context.Context, ids []int64) ([]int64, error)
	IDsBySession(ctx context.Context, sessionID string) ([]int64, error)
	GetWithOwner(ctx context.Context, id int64) (*model.Payment, int64, error)
	List(ctx context.Context, userID *int64) ([]model.Payment, error)
	ListPendingByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	Delete(ctx context.Context, ids []int64) error
}

type BorrowingRepo interface {
	GetWithBook(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error)
}

type Emitter interface {
	Emit(e model.Event)
}

type Service interface {
	// Create computes the rental cost (plus a fine when already
	// overdue), persists the PENDING rows and opens a checkout session
	// covering them. The rows are deleted again when the session
	// cannot be created.
	Create(ctx context.Context, actor model.Actor, borrowingID int64) (*model.Payment, error)

	// EnsureSession opens one checkout session covering every PENDING
	// payment of the borrowing; nil when nothing is pending.
	EnsureSession(ctx context.Context, borrowingID int64) (*striperepo.Session, error)

	// Confirm reads the processor's status for a session and, if paid,
	// transitions the covered payments to PAID. Returns the ids
	// actually transitioned; empty both for "not yet paid" and for a
	// repeated confirm.
	Confirm(ctx context.Context, sessionID string) ([]int64, error)

	Get(ctx context.Context, actor model.Actor, id int64) (*model.Payment, error)
	List(ctx context.Context, actor model.Actor) ([]model.Payment, error)
	ListPending(ctx context.Context, actor model.Actor) ([]model.Payment, error)
}

type service struct {
	db DB
	p  Repo
	b  BorrowingRepo
	x  striperepo.Repo
	ev Emitter

	successURL string
	cancelURL  string
	now        func() time.Time
}

func New(db DB, p Repo, b BorrowingRepo, x striperepo.Repo, ev Emitter, successURL, cancelURL string) Service {
	return &service{
		db: db, p: p, b: b, x: x, ev: ev,
		successURL: successURL,
		cancelURL:  cancelURL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, actor model.Actor, borrowingID int64) (*model.Payment, error) {
	borrowing, book, err := s.b.GetWithBook(ctx, borrowingID)
	if err != nil {
		return nil, err
	}
	if borrowing == nil {
		return nil, apperr.New(apperr.ErrNotFound, "borrowing not found")
	}
	if !actor.Owns(borrowing.UserID) {
		return nil, apperr.New(apperr.ErrUnauthorized, "you can create a payment only for your own borrowing")
	}

	// The stricter duplicate rule: one PENDING payment per (user, book)
	// pair across all of their borrowings.
	dup, err := s.p.HasPendingForUserBook(ctx, borrowing.UserID, borrowing.BookID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.New(apperr.ErrDuplicatePendingPayment, "there is already a pending payment for this book")
	}

	today := s.now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	exists, err := s.p.ExistsPending(ctx, tx, borrowingID)
	if err != nil {
		return nil, err
	}
	if exists {
		err = apperr.New(apperr.ErrDuplicatePendingPayment, "pending payment already exists for this borrowing")
		return nil, err
	}

	rental := pricing.RentalCost(book.DailyFee, borrowing.BorrowDate, borrowing.ExpectedReturnDate)
	paymentID, err := s.p.Insert(ctx, tx, borrowingID, model.TypePayment, rental)
	if err != nil {
		return nil, err
	}
	created := []int64{paymentID}

	if fine := pricing.OverdueFine(book.DailyFee, borrowing.ExpectedReturnDate, today); fine.IsPositive() {
		fineID, ferr := s.p.Insert(ctx, tx, borrowingID, model.TypeFine, fine)
		if ferr != nil {
			err = ferr
			return nil, err
		}
		created = append(created, fineID)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	// No PENDING row may outlive a failed session creation.
	if _, err := s.EnsureSession(ctx, borrowingID); err != nil {
		_ = s.p.Delete(ctx, created)
		return nil, err
	}

	payment, _, err := s.p.GetWithOwner(ctx, paymentID)
	return payment, err
}

func (s *service) EnsureSession(ctx context.Context, borrowingID int64) (*striperepo.Session, error) {
	pending, err := s.p.ListPendingByBorrowing(ctx, borrowingID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	borrowing, book, err := s.b.GetWithBook(ctx, borrowingID)
	if err != nil {
		return nil, err
	}
	if borrowing == nil {
		return nil, apperr.New(apperr.ErrNotFound, "borrowing not found")
	}

	items := make([]striperepo.LineItem, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	idStrs := make([]string, 0, len(pending))
	cents := decimal.NewFromInt(100)
	for _, p := range pending {
		items = append(items, striperepo.LineItem{
			Label:       fmt.Sprintf("%s for borrowing #%d - %s", label(p.Type), borrowingID, book.Title),
			AmountCents: p.MoneyToPay.Round(2).Mul(cents).IntPart(),
		})
		ids = append(ids, p.ID)
		idStrs = append(idStrs, strconv.FormatInt(p.ID, 10))
	}
	metadata := map[string]string{
		"payment_ids":  strings.Join(idStrs, ","),
		"borrowing_id": strconv.FormatInt(borrowingID, 10),
	}

	sess, err := s.x.CreateCheckoutSession(ctx, items, s.successURL, s.cancelURL, metadata)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPaymentGateway, "payment processor unavailable", err)
	}
	if err := s.p.SetSession(ctx, ids, sess.SessionID, sess.SessionURL); err != nil {
		return nil, err
	}
	return sess, nil
}

func label(t model.PaymentType) string {
	if t == model.TypeFine {
		return "Fine"
	}
	return "Payment"
}

func (s *service) Confirm(ctx context.Context, sessionID string) ([]int64, error) {
	status, err := s.x.GetSession(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPaymentGateway, "payment processor unavailable", err)
	}
	if !status.Paid {
		return nil, nil
	}

	ids := parseIDs(status.Metadata["payment_ids"])
	if len(ids) == 0 {
		// Manifest absent: fall back to every payment sharing the session.
		if ids, err = s.p.IDsBySession(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	paid, err := s.p.MarkPaid(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range paid {
		s.ev.Emit(model.Event{Kind: model.EventPaymentConfirmed, PaymentID: id, OccurredAt: s.now()})
	}
	return paid, nil
}

func parseIDs(csv string) []int64 {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (s *service) Get(ctx context.Context, actor model.Actor, id int64) (*model.Payment, error) {
	payment, ownerID, err := s.p.GetWithOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperr.New(apperr.ErrNotFound, "payment not found")
	}
	if !actor.Owns(ownerID) {
		return nil, apperr.New(apperr.ErrUnauthorized, "forbidden")
	}

	// A pending payment that lost its session gets a fresh one.
	if payment.Status == model.PaymentPending && payment.SessionID == nil {
		if _, err := s.EnsureSession(ctx, payment.BorrowingID); err != nil {
			return nil, err
		}
		payment, _, err = s.p.GetWithOwner(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	return payment, nil
}

func (s *service) List(ctx context.Context, actor model.Actor) ([]model.Payment, error) {
	if actor.Staff {
		return s.p.List(ctx, nil)
	}
	return s.p.List(ctx, &actor.UserID)
}

func (s *service) ListPending(ctx context.Context, actor model.Actor) ([]model.Payment, error) {
	return s.p.ListPendingByUser(ctx, actor.UserID)
}
