package paymentrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Vasyl-Ch/library-service1.0/model"
)

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, borrowingID int64, ptype model.PaymentType, amount decimal.Decimal) (int64, error)
	ExistsPending(ctx context.Context, tx pgx.Tx, borrowingID int64) (bool, error)
	HasPendingForUserBook(ctx context.Context, userID, bookID int64) (bool, error)
	AnyForBorrowing(ctx context.Context, borrowingID int64) (bool, error)
	ListPendingByBorrowing(ctx context.Context, borrowingID int64) ([]model.Payment, error)
	SetSession(ctx context.Context, ids []int64, sessionID, sessionURL string) error
	MarkPaid(ctx context.Context, ids []int64) ([]int64, error)
	IDsBySession(ctx context.Context, sessionID string) ([]int64, error)
	GetWithOwner(ctx context.Context, id int64) (*model.Payment, int64, error)
	List(ctx context.Context, userID *int64) ([]model.Payment, error)
	ListPendingByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	Delete(ctx context.Context, ids []int64) error
	PaidSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error)
}

type repo struct{ db *pgxpool.Pool }

func New(db *pgxpool.Pool) Repo { return &repo{db: db} }

const paymentCols = `id, borrowing_id, payment_type, status, money_to_pay, session_url, session_id, created_at`

func (r *repo) Insert(ctx context.Context, tx pgx.Tx, borrowingID int64, ptype model.PaymentType, amount decimal.Decimal) (int64, error) {
	const q = `
INSERT INTO payments (borrowing_id, payment_type, status, money_to_pay)
VALUES ($1, $2, 'PENDING', $3)
RETURNING id`
	var id int64
	// Cents rounding happens here, at the persistence boundary.
	if err := tx.QueryRow(ctx, q, borrowingID, ptype, amount.Round(2)).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) ExistsPending(ctx context.Context, tx pgx.Tx, borrowingID int64) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1 FROM payments
	WHERE borrowing_id = $1 AND status = 'PENDING'
)`
	var exists bool
	err := tx.QueryRow(ctx, q, borrowingID).Scan(&exists)
	return exists, err
}

func (r *repo) HasPendingForUserBook(ctx context.Context, userID, bookID int64) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1
	FROM payments p
	JOIN borrowings b ON b.id = p.borrowing_id
	WHERE b.user_id = $1 AND b.book_id = $2 AND p.status = 'PENDING'
)`
	var exists bool
	err := r.db.QueryRow(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) AnyForBorrowing(ctx context.Context, borrowingID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM payments WHERE borrowing_id = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, q, borrowingID).Scan(&exists)
	return exists, err
}

func (r *repo) ListPendingByBorrowing(ctx context.Context, borrowingID int64) ([]model.Payment, error) {
	const q = `
SELECT ` + paymentCols + `
FROM payments
WHERE borrowing_id = $1 AND status = 'PENDING'
ORDER BY id`
	return r.queryPayments(ctx, q, borrowingID)
}

func (r *repo) SetSession(ctx context.Context, ids []int64, sessionID, sessionURL string) error {
	const q = `
UPDATE payments
SET session_id = $2, session_url = $3
WHERE id = ANY($1)`
	_, err := r.db.Exec(ctx, q, ids, sessionID, sessionURL)
	return err
}

// MarkPaid transitions the given payments PENDING -> PAID and returns
// the ids actually transitioned, so a repeated confirm is a no-op.
func (r *repo) MarkPaid(ctx context.Context, ids []int64) ([]int64, error) {
	const q = `
UPDATE payments
SET status = 'PAID'
WHERE id = ANY($1) AND status = 'PENDING'
RETURNING id`
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *repo) IDsBySession(ctx context.Context, sessionID string) ([]int64, error) {
	const q = `SELECT id FROM payments WHERE session_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *repo) GetWithOwner(ctx context.Context, id int64) (*model.Payment, int64, error) {
	const q = `
SELECT p.id, p.borrowing_id, p.payment_type, p.status, p.money_to_pay, p.session_url, p.session_id, p.created_at,
       b.user_id
FROM payments p
JOIN borrowings b ON b.id = p.borrowing_id
WHERE p.id = $1`
	var p model.Payment
	var ownerID int64
	err := r.db.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.BorrowingID, &p.Type, &p.Status, &p.MoneyToPay, &p.SessionURL, &p.SessionID, &p.CreatedAt,
		&ownerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	return &p, ownerID, nil
}

func (r *repo) List(ctx context.Context, userID *int64) ([]model.Payment, error) {
	if userID == nil {
		const q = `
SELECT ` + paymentCols + `
FROM payments
ORDER BY created_at DESC, id DESC`
		return r.queryPayments(ctx, q)
	}
	const q = `
SELECT p.id, p.borrowing_id, p.payment_type, p.status, p.money_to_pay, p.session_url, p.session_id, p.created_at
FROM payments p
JOIN borrowings b ON b.id = p.borrowing_id
WHERE b.user_id = $1
ORDER BY p.created_at DESC, p.id DESC`
	return r.queryPayments(ctx, q, *userID)
}

func (r *repo) ListPendingByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	const q = `
SELECT p.id, p.borrowing_id, p.payment_type, p.status, p.money_to_pay, p.session_url, p.session_id, p.created_at
FROM payments p
JOIN borrowings b ON b.id = p.borrowing_id
WHERE b.user_id = $1 AND p.status = 'PENDING'
ORDER BY p.created_at DESC, p.id DESC`
	return r.queryPayments(ctx, q, userID)
}

// Delete is the compensating action for a failed session creation.
func (r *repo) Delete(ctx context.Context, ids []int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = ANY($1)`, ids)
	return err
}

func (r *repo) PaidSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error) {
	const q = `
SELECT COUNT(*), COALESCE(SUM(money_to_pay), 0)
FROM payments
WHERE status = 'PAID' AND created_at >= $1`
	var n int64
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, q, since).Scan(&n, &total); err != nil {
		return 0, decimal.Zero, err
	}
	return n, total, nil
}

func (r *repo) queryPayments(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.BorrowingID, &p.Type, &p.Status, &p.MoneyToPay, &p.SessionURL, &p.SessionID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
