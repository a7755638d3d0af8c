package borrowingrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vasyl-Ch/library-service1.0/model"
)

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, userID, bookID int64, borrowDate, expectedReturn time.Time) (int64, error)
	HasActive(ctx context.Context, userID, bookID int64) (bool, error)
	CountActiveByBook(ctx context.Context, bookID int64) (int64, error)
	Get(ctx context.Context, id int64) (*model.Borrowing, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Borrowing, error)
	GetWithBook(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error)
	MarkReturned(ctx context.Context, tx pgx.Tx, id int64, returnedAt time.Time) error
	List(ctx context.Context, userID *int64, isActive *bool) ([]model.Borrowing, error)

	CountBorrowedSince(ctx context.Context, since time.Time) (int64, error)
	CountReturnedSince(ctx context.Context, since time.Time) (int64, error)
}

type repo struct{ db *pgxpool.Pool }

func New(db *pgxpool.Pool) Repo { return &repo{db: db} }

const borrowingCols = `id, user_id, book_id, borrow_date, expected_return_date, actual_return_date`

func scanBorrowing(row pgx.Row) (*model.Borrowing, error) {
	var b model.Borrowing
	err := row.Scan(&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *repo) Insert(ctx context.Context, tx pgx.Tx, userID, bookID int64, borrowDate, expectedReturn time.Time) (int64, error) {
	const q = `
INSERT INTO borrowings (user_id, book_id, borrow_date, expected_return_date)
VALUES ($1, $2, $3, $4)
RETURNING id`
	var id int64
	if err := tx.QueryRow(ctx, q, userID, bookID, borrowDate, expectedReturn).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) HasActive(ctx context.Context, userID, bookID int64) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1 FROM borrowings
	WHERE user_id = $1 AND book_id = $2 AND actual_return_date IS NULL
)`
	var exists bool
	err := r.db.QueryRow(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) CountActiveByBook(ctx context.Context, bookID int64) (int64, error) {
	const q = `
SELECT COUNT(*) FROM borrowings
WHERE book_id = $1 AND actual_return_date IS NULL`
	var n int64
	err := r.db.QueryRow(ctx, q, bookID).Scan(&n)
	return n, err
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Borrowing, error) {
	return scanBorrowing(r.db.QueryRow(ctx, `SELECT `+borrowingCols+` FROM borrowings WHERE id = $1`, id))
}

func (r *repo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Borrowing, error) {
	return scanBorrowing(tx.QueryRow(ctx, `SELECT `+borrowingCols+` FROM borrowings WHERE id = $1 FOR UPDATE`, id))
}

func (r *repo) GetWithBook(ctx context.Context, id int64) (*model.Borrowing, *model.Book, error) {
	const q = `
SELECT br.id, br.user_id, br.book_id, br.borrow_date, br.expected_return_date, br.actual_return_date,
       b.id, b.title, b.cover, b.inventory, b.daily_fee
FROM borrowings br
JOIN books b ON b.id = br.book_id
WHERE br.id = $1`
	var br model.Borrowing
	var b model.Book
	err := r.db.QueryRow(ctx, q, id).Scan(
		&br.ID, &br.UserID, &br.BookID, &br.BorrowDate, &br.ExpectedReturnDate, &br.ActualReturnDate,
		&b.ID, &b.Title, &b.Cover, &b.Inventory, &b.DailyFee,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &br, &b, nil
}

func (r *repo) MarkReturned(ctx context.Context, tx pgx.Tx, id int64, returnedAt time.Time) error {
	const q = `
UPDATE borrowings
SET actual_return_date = $2
WHERE id = $1 AND actual_return_date IS NULL`
	tag, err := tx.Exec(ctx, q, id, returnedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("borrowing already returned")
	}
	return nil
}

func (r *repo) List(ctx context.Context, userID *int64, isActive *bool) ([]model.Borrowing, error) {
	q := `SELECT ` + borrowingCols + ` FROM borrowings WHERE TRUE`
	args := []any{}
	if userID != nil {
		args = append(args, *userID)
		q += ` AND user_id = $1`
	}
	if isActive != nil {
		if *isActive {
			q += ` AND actual_return_date IS NULL`
		} else {
			q += ` AND actual_return_date IS NOT NULL`
		}
	}
	q += ` ORDER BY borrow_date, id`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Borrowing
	for rows.Next() {
		var b model.Borrowing
		if err := rows.Scan(&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) CountBorrowedSince(ctx context.Context, since time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM borrowings WHERE borrow_date >= $1`
	var n int64
	err := r.db.QueryRow(ctx, q, since).Scan(&n)
	return n, err
}

func (r *repo) CountReturnedSince(ctx context.Context, since time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM borrowings WHERE actual_return_date >= $1`
	var n int64
	err := r.db.QueryRow(ctx, q, since).Scan(&n)
	return n, err
}
