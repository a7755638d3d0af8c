package authorrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vasyl-Ch/library-service1.0/model"
)

type Repo interface {
	Create(ctx context.Context, name, surname string) (int64, error)
	Update(ctx context.Context, id int64, name, surname string) (bool, error)
	List(ctx context.Context) ([]model.Author, error)
	Get(ctx context.Context, id int64) (*model.Author, error)
	ExistAll(ctx context.Context, ids []int64) (bool, error)
}

type repo struct{ db *pgxpool.Pool }

func New(db *pgxpool.Pool) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, name, surname string) (int64, error) {
	const q = `
INSERT INTO authors (name, surname)
VALUES ($1, $2)
RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, q, name, surname).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) Update(ctx context.Context, id int64, name, surname string) (bool, error) {
	const q = `
UPDATE authors
SET name = $2, surname = $3
WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, id, name, surname)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) List(ctx context.Context) ([]model.Author, error) {
	const q = `
SELECT id, name, surname
FROM authors
ORDER BY name, surname`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Surname); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Author, error) {
	const q = `
SELECT id, name, surname
FROM authors
WHERE id = $1`
	var a model.Author
	if err := r.db.QueryRow(ctx, q, id).Scan(&a.ID, &a.Name, &a.Surname); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ExistAll reports whether every id references an existing author.
func (r *repo) ExistAll(ctx context.Context, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	const q = `
SELECT COUNT(*)
FROM authors
WHERE id = ANY($1)`
	var n int64
	if err := r.db.QueryRow(ctx, q, ids).Scan(&n); err != nil {
		return false, err
	}
	return n == int64(len(ids)), nil
}
