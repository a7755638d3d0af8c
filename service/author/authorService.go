package authorsvc

import (
	"context"

	"github.com/Vasyl-Ch/library-service1.0/model"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
)

type Repo interface {
	Create(ctx context.Context, name, surname string) (int64, error)
	Update(ctx context.Context, id int64, name, surname string) (bool, error)
	List(ctx context.Context) ([]model.Author, error)
	Get(ctx context.Context, id int64) (*model.Author, error)
}

type Service interface {
	Create(ctx context.Context, name, surname string) (int64, error)
	Update(ctx context.Context, id int64, name, surname string) error
	List(ctx context.Context) ([]model.Author, error)
	Get(ctx context.Context, id int64) (*model.Author, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, name, surname string) (int64, error) {
	return s.r.Create(ctx, name, surname)
}

func (s *service) Update(ctx context.Context, id int64, name, surname string) error {
	ok, err := s.r.Update(ctx, id, name, surname)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrNotFound, "author not found")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]model.Author, error) { return s.r.List(ctx) }

func (s *service) Get(ctx context.Context, id int64) (*model.Author, error) {
	a, err := s.r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.New(apperr.ErrNotFound, "author not found")
	}
	return a, nil
}
