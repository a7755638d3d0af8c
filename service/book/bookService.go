package booksvc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Vasyl-Ch/library-service1.0/model"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
)

type Repo interface {
	Create(ctx context.Context, title string, cover model.CoverType, inventory int64, dailyFee decimal.Decimal, authorIDs []int64) (int64, error)
	Update(ctx context.Context, id int64, title string, cover model.CoverType, dailyFee decimal.Decimal, authorIDs []int64) (bool, error)
	List(ctx context.Context) ([]model.Book, error)
	Get(ctx context.Context, id int64) (*model.Book, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type AuthorRepo interface {
	ExistAll(ctx context.Context, ids []int64) (bool, error)
}

type BorrowingRepo interface {
	CountActiveByBook(ctx context.Context, bookID int64) (int64, error)
}

type Service interface {
	Create(ctx context.Context, title string, cover model.CoverType, inventory int64, dailyFee decimal.Decimal, authorIDs []int64) (int64, error)
	Update(ctx context.Context, id int64, title string, cover model.CoverType, dailyFee decimal.Decimal, authorIDs []int64) error
	List(ctx context.Context) ([]model.Book, error)
	Get(ctx context.Context, id int64) (*model.Book, error)
	// Delete refuses while active borrowings reference the book.
	Delete(ctx context.Context, id int64) error
}

type service struct {
	r  Repo
	a  AuthorRepo
	br BorrowingRepo
}

func New(r Repo, a AuthorRepo, br BorrowingRepo) Service { return &service{r: r, a: a, br: br} }

func (s *service) Create(ctx context.Context, title string, cover model.CoverType, inventory int64, dailyFee decimal.Decimal, authorIDs []int64) (int64, error) {
	if err := s.checkAuthors(ctx, authorIDs); err != nil {
		return 0, err
	}
	return s.r.Create(ctx, title, cover, inventory, dailyFee, authorIDs)
}

func (s *service) Update(ctx context.Context, id int64, title string, cover model.CoverType, dailyFee decimal.Decimal, authorIDs []int64) error {
	if err := s.checkAuthors(ctx, authorIDs); err != nil {
		return err
	}
	ok, err := s.r.Update(ctx, id, title, cover, dailyFee, authorIDs)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrNotFound, "book not found")
	}
	return nil
}

func (s *service) checkAuthors(ctx context.Context, ids []int64) error {
	ok, err := s.a.ExistAll(ctx, ids)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrNotFound, "author not found")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]model.Book, error) { return s.r.List(ctx) }

func (s *service) Get(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperr.New(apperr.ErrNotFound, "book not found")
	}
	return b, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	active, err := s.br.CountActiveByBook(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return apperr.New(apperr.ErrActiveBorrowings, "cannot delete a book with active borrowings")
	}
	ok, err := s.r.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrNotFound, "book not found")
	}
	return nil
}
