package booksvc

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Vasyl-Ch/library-service1.0/model"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
)

type mockRepo struct {
	createFn func(ctx context.Context, title string, cover model.CoverType, inventory int64, dailyFee decimal.Decimal, authorIDs []int64) (int64, error)
	updateFn func(ctx context.Context, id int64, title string, cover model.CoverType, dailyFee decimal.Decimal, authorIDs []int64) (bool, error)
	listFn   func(ctx context.Context) ([]model.Book, error)
	getFn    func(ctx context.Context, id int64) (*model.Book, error)
	deleteFn func(ctx context.Context, id int64) (bool, error)
}

var _ Repo = (*mockRepo)(nil)

func (m *mockRepo) Create(ctx context.Context, title string, cover model.CoverType, inventory int64, dailyFee decimal.Decimal, authorIDs []int64) (int64, error) {
	if m.createFn == nil {
		return 1, nil
	}
	return m.createFn(ctx, title, cover, inventory, dailyFee, authorIDs)
}

func (m *mockRepo) Update(ctx context.Context, id int64, title string, cover model.CoverType, dailyFee decimal.Decimal, authorIDs []int64) (bool, error) {
	if m.updateFn == nil {
		return true, nil
	}
	return m.updateFn(ctx, id, title, cover, dailyFee, authorIDs)
}

func (m *mockRepo) List(ctx context.Context) ([]model.Book, error) {
	if m.listFn == nil {
		return nil, nil
	}
	return m.listFn(ctx)
}

func (m *mockRepo) Get(ctx context.Context, id int64) (*model.Book, error) {
	if m.getFn == nil {
		return nil, nil
	}
	return m.getFn(ctx, id)
}

func (m *mockRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if m.deleteFn == nil {
		return true, nil
	}
	return m.deleteFn(ctx, id)
}

type mockAuthors struct {
	existAllFn func(ctx context.Context, ids []int64) (bool, error)
}

var _ AuthorRepo = (*mockAuthors)(nil)

func (m *mockAuthors) ExistAll(ctx context.Context, ids []int64) (bool, error) {
	if m.existAllFn == nil {
		return true, nil
	}
	return m.existAllFn(ctx, ids)
}

type mockBorrowings struct {
	countFn func(ctx context.Context, bookID int64) (int64, error)
}

var _ BorrowingRepo = (*mockBorrowings)(nil)

func (m *mockBorrowings) CountActiveByBook(ctx context.Context, bookID int64) (int64, error) {
	if m.countFn == nil {
		return 0, nil
	}
	return m.countFn(ctx, bookID)
}

func TestCreate_UnknownAuthor(t *testing.T) {
	ctx := context.Background()
	a := &mockAuthors{
		existAllFn: func(ctx context.Context, ids []int64) (bool, error) {
			return false, nil
		},
	}
	svc := New(&mockRepo{}, a, &mockBorrowings{})

	_, err := svc.Create(ctx, "Dune", model.CoverHard, 3, decimal.RequireFromString("1.50"), []int64{99})
	require.Error(t, err)
	require.Equal(t, apperr.ErrNotFound, apperr.Code(err))
}

func TestUpdate_MissingBook(t *testing.T) {
	ctx := context.Background()
	r := &mockRepo{
		updateFn: func(ctx context.Context, id int64, title string, cover model.CoverType, dailyFee decimal.Decimal, authorIDs []int64) (bool, error) {
			return false, nil
		},
	}
	svc := New(r, &mockAuthors{}, &mockBorrowings{})

	err := svc.Update(ctx, 404, "Dune", model.CoverSoft, decimal.RequireFromString("1.50"), nil)
	require.Error(t, err)
	require.Equal(t, apperr.ErrNotFound, apperr.Code(err))
}

func TestDelete_BlockedByActiveBorrowings(t *testing.T) {
	ctx := context.Background()
	deleted := false
	r := &mockRepo{
		deleteFn: func(ctx context.Context, id int64) (bool, error) {
			deleted = true
			return true, nil
		},
	}
	br := &mockBorrowings{
		countFn: func(ctx context.Context, bookID int64) (int64, error) {
			return 2, nil
		},
	}
	svc := New(r, &mockAuthors{}, br)

	err := svc.Delete(ctx, 5)
	require.Error(t, err)
	require.Equal(t, apperr.ErrActiveBorrowings, apperr.Code(err))
	require.False(t, deleted)
}

func TestDelete_NoActiveBorrowings(t *testing.T) {
	ctx := context.Background()
	svc := New(&mockRepo{}, &mockAuthors{}, &mockBorrowings{})

	require.NoError(t, svc.Delete(ctx, 5))
}

func TestGet_Missing(t *testing.T) {
	ctx := context.Background()
	svc := New(&mockRepo{}, &mockAuthors{}, &mockBorrowings{})

	_, err := svc.Get(ctx, 404)
	require.Error(t, err)
	require.Equal(t, apperr.ErrNotFound, apperr.Code(err))
}
