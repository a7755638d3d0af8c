package bookrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Vasyl-Ch/library-service1.0/model"
)

// ErrNoCopies means the locked inventory row is at zero.
var ErrNoCopies = errors.New("no copies available")

type Repo interface {
	Create(ctx context.Context, title string, cover model.CoverType, inventory int64, dailyFee decimal.Decimal, authorIDs []int64) (int64, error)
	Update(ctx context.Context, id int64, title string, cover model.CoverType, dailyFee decimal.Decimal, authorIDs []int64) (bool, error)
	List(ctx context.Context) ([]model.Book, error)
	Get(ctx context.Context, id int64) (*model.Book, error)
	Delete(ctx context.Context, id int64) (bool, error)

	// Inventory guard. The only mutation path for the inventory
	// counter; both take the row lock inside the caller's transaction.
	Reserve(ctx context.Context, tx pgx.Tx, bookID int64) error
	Release(ctx context.Context, tx pgx.Tx, bookID int64) error
}

type repo struct{ db *pgxpool.Pool }

func New(db *pgxpool.Pool) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, title string, cover model.CoverType, inventory int64, dailyFee decimal.Decimal, authorIDs []int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const q = `
INSERT INTO books (title, cover, inventory, daily_fee)
VALUES ($1, $2, $3, $4)
RETURNING id`
	var id int64
	if err = tx.QueryRow(ctx, q, title, cover, inventory, dailyFee.Round(2)).Scan(&id); err != nil {
		return 0, err
	}
	if err = replaceAuthors(ctx, tx, id, authorIDs); err != nil {
		return 0, err
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) Update(ctx context.Context, id int64, title string, cover model.CoverType, dailyFee decimal.Decimal, authorIDs []int64) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const q = `
UPDATE books
SET title = $2, cover = $3, daily_fee = $4
WHERE id = $1`
	tag, err := tx.Exec(ctx, q, id, title, cover, dailyFee.Round(2))
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return false, nil
	}
	if err = replaceAuthors(ctx, tx, id, authorIDs); err != nil {
		return false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func replaceAuthors(ctx context.Context, tx pgx.Tx, bookID int64, authorIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM book_authors WHERE book_id = $1`, bookID); err != nil {
		return err
	}
	const ins = `INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2)`
	for _, aid := range authorIDs {
		if _, err := tx.Exec(ctx, ins, bookID, aid); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) List(ctx context.Context) ([]model.Book, error) {
	const q = `
SELECT id, title, cover, inventory, daily_fee
FROM books
ORDER BY title`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Cover, &b.Inventory, &b.DailyFee); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.attachAuthors(ctx, out)
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
SELECT id, title, cover, inventory, daily_fee
FROM books
WHERE id = $1`
	var b model.Book
	if err := r.db.QueryRow(ctx, q, id).Scan(&b.ID, &b.Title, &b.Cover, &b.Inventory, &b.DailyFee); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	books, err := r.attachAuthors(ctx, []model.Book{b})
	if err != nil {
		return nil, err
	}
	return &books[0], nil
}

func (r *repo) attachAuthors(ctx context.Context, books []model.Book) ([]model.Book, error) {
	if len(books) == 0 {
		return books, nil
	}
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	const q = `
SELECT ba.book_id, a.id, a.name, a.surname
FROM book_authors ba
JOIN authors a ON a.id = ba.author_id
WHERE ba.book_id = ANY($1)
ORDER BY a.name, a.surname`
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byBook := make(map[int64][]model.Author, len(books))
	for rows.Next() {
		var bookID int64
		var a model.Author
		if err := rows.Scan(&bookID, &a.ID, &a.Name, &a.Surname); err != nil {
			return nil, err
		}
		byBook[bookID] = append(byBook[bookID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range books {
		books[i].Authors = byBook[books[i].ID]
	}
	return books, nil
}

func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// lockInventory takes the per-book row lock. A bounded lock_timeout
// keeps contended callers from suspending indefinitely; expiry comes
// back as SQLSTATE 55P03.
func lockInventory(ctx context.Context, tx pgx.Tx, bookID int64) (int64, error) {
	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '3s'`); err != nil {
		return 0, err
	}
	const q = `
SELECT inventory
FROM books
WHERE id = $1
FOR UPDATE`
	var inv int64
	if err := tx.QueryRow(ctx, q, bookID).Scan(&inv); err != nil {
		return 0, err
	}
	return inv, nil
}

func (r *repo) Reserve(ctx context.Context, tx pgx.Tx, bookID int64) error {
	inv, err := lockInventory(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if inv <= 0 {
		return ErrNoCopies
	}
	_, err = tx.Exec(ctx, `UPDATE books SET inventory = inventory - 1 WHERE id = $1`, bookID)
	return err
}

func (r *repo) Release(ctx context.Context, tx pgx.Tx, bookID int64) error {
	if _, err := lockInventory(ctx, tx, bookID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `UPDATE books SET inventory = inventory + 1 WHERE id = $1`, bookID)
	return err
}
