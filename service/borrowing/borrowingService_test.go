package borrowingsvc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/Vasyl-Ch/library-service1.0/model"
	bookrepo "github.com/Vasyl-Ch/library-service1.0/repository/book"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
)

type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(ctx context.Context) error   { return nil }
func (fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeDB struct{}

func (fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

type mockRepo struct {
	insertFn       func(ctx context.Context, tx pgx.Tx, userID, bookID int64, borrowDate, expectedReturn time.Time) (int64, error)
	hasActiveFn    func(ctx context.Context, userID, bookID int64) (bool, error)
	getFn          func(ctx context.Context, id int64) (*model.Borrowing, error)
	getForUpdateFn func(ctx context.Context, tx pgx.Tx, id int64) (*model.Borrowing, error)
	markReturnedFn func(ctx context.Context, tx pgx.Tx, id int64, returnedAt time.Time) error
	listFn         func(ctx context.Context, userID *int64, isActive *bool) ([]model.Borrowing, error)
}

var _ Repo = (*mockRepo)(nil)

func (m *mockRepo) Insert(ctx context.Context, tx pgx.Tx, userID, bookID int64, borrowDate, expectedReturn time.Time) (int64, error) {
	if m.insertFn == nil {
		return 1, nil
	}
	return m.insertFn(ctx, tx, userID, bookID, borrowDate, expectedReturn)
}

func (m *mockRepo) HasActive(ctx context.Context, userID, bookID int64) (bool, error) {
	if m.hasActiveFn == nil {
		return false, nil
	}
	return m.hasActiveFn(ctx, userID, bookID)
}

func (m *mockRepo) Get(ctx context.Context, id int64) (*model.Borrowing, error) {
	if m.getFn == nil {
		return nil, nil
	}
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Borrowing, error) {
	if m.getForUpdateFn == nil {
		return m.Get(ctx, id)
	}
	return m.getForUpdateFn(ctx, tx, id)
}

func (m *mockRepo) MarkReturned(ctx context.Context, tx pgx.Tx, id int64, returnedAt time.Time) error {
	if m.markReturnedFn == nil {
		return nil
	}
	return m.markReturnedFn(ctx, tx, id, returnedAt)
}

func (m *mockRepo) List(ctx context.Context, userID *int64, isActive *bool) ([]model.Borrowing, error) {
	if m.listFn == nil {
		return nil, nil
	}
	return m.listFn(ctx, userID, isActive)
}

type mockGuard struct {
	reserveFn func(ctx context.Context, tx pgx.Tx, bookID int64) error
	releaseFn func(ctx context.Context, tx pgx.Tx, bookID int64) error
}

var _ InventoryGuard = (*mockGuard)(nil)

func (m *mockGuard) Reserve(ctx context.Context, tx pgx.Tx, bookID int64) error {
	if m.reserveFn == nil {
		return nil
	}
	return m.reserveFn(ctx, tx, bookID)
}

func (m *mockGuard) Release(ctx context.Context, tx pgx.Tx, bookID int64) error {
	if m.releaseFn == nil {
		return nil
	}
	return m.releaseFn(ctx, tx, bookID)
}

type mockLedger struct {
	anyFn     func(ctx context.Context, borrowingID int64) (bool, error)
	pendingFn func(ctx context.Context, borrowingID int64) ([]model.Payment, error)
}

var _ PaymentLedger = (*mockLedger)(nil)

func (m *mockLedger) AnyForBorrowing(ctx context.Context, borrowingID int64) (bool, error) {
	if m.anyFn == nil {
		return true, nil
	}
	return m.anyFn(ctx, borrowingID)
}

func (m *mockLedger) ListPendingByBorrowing(ctx context.Context, borrowingID int64) ([]model.Payment, error) {
	if m.pendingFn == nil {
		return nil, nil
	}
	return m.pendingFn(ctx, borrowingID)
}

type mockOpener struct {
	createFn func(ctx context.Context, actor model.Actor, borrowingID int64) (*model.Payment, error)
}

var _ PaymentOpener = (*mockOpener)(nil)

func (m *mockOpener) Create(ctx context.Context, actor model.Actor, borrowingID int64) (*model.Payment, error) {
	if m.createFn == nil {
		return &model.Payment{ID: 1, BorrowingID: borrowingID}, nil
	}
	return m.createFn(ctx, actor, borrowingID)
}

type mockEmitter struct {
	mu     sync.Mutex
	events []model.Event
}

func (m *mockEmitter) Emit(e model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *mockEmitter) kinds() []model.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.EventKind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSvc(r Repo, g InventoryGuard, l PaymentLedger, o PaymentOpener, ev Emitter) *service {
	s := New(fakeDB{}, r, g, l, o, ev).(*service)
	s.now = func() time.Time { return date(2024, 3, 10) }
	return s
}

// --- Create ---

func TestCreate_PastReturnDate(t *testing.T) {
	ctx := context.Background()
	svc := newSvc(&mockRepo{}, &mockGuard{}, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Create(ctx, model.Actor{UserID: 1}, 5, date(2024, 3, 9))
	require.Error(t, err)
	require.Equal(t, apperr.ErrInvalidDate, apperr.Code(err))
}

func TestCreate_SameDayReturnAllowed(t *testing.T) {
	ctx := context.Background()
	em := &mockEmitter{}
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return &model.Borrowing{ID: id, UserID: 1, BookID: 5}, nil
		},
	}
	svc := newSvc(r, &mockGuard{}, &mockLedger{}, &mockOpener{}, em)

	b, err := svc.Create(ctx, model.Actor{UserID: 1}, 5, date(2024, 3, 10))
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, []model.EventKind{model.EventBorrowingCreated}, em.kinds())
}

func TestCreate_DuplicateActiveBorrowing(t *testing.T) {
	ctx := context.Background()
	r := &mockRepo{
		hasActiveFn: func(ctx context.Context, userID, bookID int64) (bool, error) {
			return true, nil
		},
	}
	svc := newSvc(r, &mockGuard{}, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Create(ctx, model.Actor{UserID: 1}, 5, date(2024, 3, 20))
	require.Error(t, err)
	require.Equal(t, apperr.ErrDuplicateActiveBorrowing, apperr.Code(err))
}

func TestCreate_OutOfStock(t *testing.T) {
	ctx := context.Background()
	inserted := false
	r := &mockRepo{
		insertFn: func(ctx context.Context, tx pgx.Tx, userID, bookID int64, borrowDate, expectedReturn time.Time) (int64, error) {
			inserted = true
			return 1, nil
		},
	}
	g := &mockGuard{
		reserveFn: func(ctx context.Context, tx pgx.Tx, bookID int64) error {
			return bookrepo.ErrNoCopies
		},
	}
	em := &mockEmitter{}
	svc := newSvc(r, g, &mockLedger{}, &mockOpener{}, em)

	_, err := svc.Create(ctx, model.Actor{UserID: 1}, 5, date(2024, 3, 20))
	require.Error(t, err)
	require.Equal(t, apperr.ErrOutOfStock, apperr.Code(err))
	require.False(t, inserted, "no borrowing row without a reserved copy")
	require.Empty(t, em.kinds())
}

func TestCreate_UnknownBook(t *testing.T) {
	ctx := context.Background()
	g := &mockGuard{
		reserveFn: func(ctx context.Context, tx pgx.Tx, bookID int64) error {
			return pgx.ErrNoRows
		},
	}
	svc := newSvc(&mockRepo{}, g, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Create(ctx, model.Actor{UserID: 1}, 404, date(2024, 3, 20))
	require.Error(t, err)
	require.Equal(t, apperr.ErrNotFound, apperr.Code(err))
}

func TestCreate_RetriesLockTimeout(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	g := &mockGuard{
		reserveFn: func(ctx context.Context, tx pgx.Tx, bookID int64) error {
			attempts++
			if attempts < 3 {
				return &pgconn.PgError{Code: pgerrcode.LockNotAvailable}
			}
			return nil
		},
	}
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return &model.Borrowing{ID: id, UserID: 1, BookID: 5}, nil
		},
	}
	svc := newSvc(r, g, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	b, err := svc.Create(ctx, model.Actor{UserID: 1}, 5, date(2024, 3, 20))
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, 3, attempts)
}

func TestCreate_ContentionExhausted(t *testing.T) {
	ctx := context.Background()
	g := &mockGuard{
		reserveFn: func(ctx context.Context, tx pgx.Tx, bookID int64) error {
			return &pgconn.PgError{Code: pgerrcode.LockNotAvailable}
		},
	}
	svc := newSvc(&mockRepo{}, g, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Create(ctx, model.Actor{UserID: 1}, 5, date(2024, 3, 20))
	require.Error(t, err)
	require.Equal(t, apperr.ErrStorageContention, apperr.Code(err))
}

// Concurrent borrowers against a counted stock: successes must equal
// the initial inventory and the counter must never go negative.
func TestCreate_ConcurrentNeverOversells(t *testing.T) {
	ctx := context.Background()
	const stock = 5
	const borrowers = 20

	var mu sync.Mutex
	inventory := int64(stock)
	g := &mockGuard{
		reserveFn: func(ctx context.Context, tx pgx.Tx, bookID int64) error {
			mu.Lock()
			defer mu.Unlock()
			if inventory <= 0 {
				return bookrepo.ErrNoCopies
			}
			inventory--
			return nil
		},
	}
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return &model.Borrowing{ID: id, BookID: 5}, nil
		},
	}
	svc := newSvc(r, g, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	var wg sync.WaitGroup
	errs := make(chan error, borrowers)
	for i := 0; i < borrowers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Create(ctx, model.Actor{UserID: userID}, 5, date(2024, 3, 20))
			errs <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)

	ok, outOfStock := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, stock, ok)
	require.Equal(t, borrowers-stock, outOfStock)
	require.GreaterOrEqual(t, inventory, int64(0))
}

// --- Return ---

func activeBorrowing() *model.Borrowing {
	return &model.Borrowing{
		ID:                 10,
		UserID:             1,
		BookID:             5,
		BorrowDate:         date(2024, 3, 1),
		ExpectedReturnDate: date(2024, 3, 8),
	}
}

func TestReturn_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := newSvc(&mockRepo{}, &mockGuard{}, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Return(ctx, model.Actor{UserID: 1}, 10)
	require.Error(t, err)
	require.Equal(t, apperr.ErrNotFound, apperr.Code(err))
}

func TestReturn_OtherUsersBorrowing(t *testing.T) {
	ctx := context.Background()
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return activeBorrowing(), nil
		},
	}
	svc := newSvc(r, &mockGuard{}, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Return(ctx, model.Actor{UserID: 2}, 10)
	require.Error(t, err)
	require.Equal(t, apperr.ErrUnauthorized, apperr.Code(err))
}

func TestReturn_AlreadyReturned(t *testing.T) {
	ctx := context.Background()
	returned := date(2024, 3, 5)
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			b := activeBorrowing()
			b.ActualReturnDate = &returned
			return b, nil
		},
	}
	svc := newSvc(r, &mockGuard{}, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Return(ctx, model.Actor{UserID: 1}, 10)
	require.Error(t, err)
	require.Equal(t, apperr.ErrAlreadyReturned, apperr.Code(err))
}

func TestReturn_UnpaidBalanceBlocksNonStaff(t *testing.T) {
	ctx := context.Background()
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return activeBorrowing(), nil
		},
	}
	l := &mockLedger{
		pendingFn: func(ctx context.Context, borrowingID int64) ([]model.Payment, error) {
			return []model.Payment{{ID: 1, Status: model.PaymentPending}}, nil
		},
	}
	released := false
	g := &mockGuard{
		releaseFn: func(ctx context.Context, tx pgx.Tx, bookID int64) error {
			released = true
			return nil
		},
	}
	svc := newSvc(r, g, l, &mockOpener{}, &mockEmitter{})

	_, err := svc.Return(ctx, model.Actor{UserID: 1}, 10)
	require.Error(t, err)
	require.Equal(t, apperr.ErrUnpaidBalance, apperr.Code(err))
	require.False(t, released)
}

func TestReturn_StaffOverridesUnpaidBalance(t *testing.T) {
	ctx := context.Background()
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return activeBorrowing(), nil
		},
	}
	l := &mockLedger{
		pendingFn: func(ctx context.Context, borrowingID int64) ([]model.Payment, error) {
			return []model.Payment{{ID: 1, Status: model.PaymentPending}}, nil
		},
	}
	em := &mockEmitter{}
	svc := newSvc(r, &mockGuard{}, l, &mockOpener{}, em)

	b, err := svc.Return(ctx, model.Actor{UserID: 99, Staff: true}, 10)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, []model.EventKind{model.EventBorrowingReturned}, em.kinds())
}

func TestReturn_AutoCreatesInvoiceWhenNonePaid(t *testing.T) {
	ctx := context.Background()
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return activeBorrowing(), nil
		},
	}
	l := &mockLedger{
		anyFn: func(ctx context.Context, borrowingID int64) (bool, error) {
			return false, nil
		},
	}
	opened := false
	o := &mockOpener{
		createFn: func(ctx context.Context, actor model.Actor, borrowingID int64) (*model.Payment, error) {
			opened = true
			require.Equal(t, int64(10), borrowingID)
			return &model.Payment{ID: 1, BorrowingID: borrowingID}, nil
		},
	}
	svc := newSvc(r, &mockGuard{}, l, o, &mockEmitter{})

	b, err := svc.Return(ctx, model.Actor{UserID: 1}, 10)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.True(t, opened, "return with no invoice must open one")
}

func TestReturn_ReleasesCopyAndStamps(t *testing.T) {
	ctx := context.Background()
	var releasedBook int64
	var stamped time.Time
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return activeBorrowing(), nil
		},
		markReturnedFn: func(ctx context.Context, tx pgx.Tx, id int64, returnedAt time.Time) error {
			stamped = returnedAt
			return nil
		},
	}
	g := &mockGuard{
		releaseFn: func(ctx context.Context, tx pgx.Tx, bookID int64) error {
			releasedBook = bookID
			return nil
		},
	}
	em := &mockEmitter{}
	svc := newSvc(r, g, &mockLedger{}, &mockOpener{}, em)

	_, err := svc.Return(ctx, model.Actor{UserID: 1}, 10)
	require.NoError(t, err)
	require.Equal(t, int64(5), releasedBook)
	require.Equal(t, date(2024, 3, 10), stamped)
	require.Equal(t, []model.EventKind{model.EventBorrowingReturned}, em.kinds())
}

// A return that loses the race to another return of the same borrowing
// must fail inside the transaction, after the row lock.
func TestReturn_RecheckUnderLock(t *testing.T) {
	ctx := context.Background()
	returned := date(2024, 3, 9)
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return activeBorrowing(), nil
		},
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Borrowing, error) {
			b := activeBorrowing()
			b.ActualReturnDate = &returned
			return b, nil
		},
	}
	released := false
	g := &mockGuard{
		releaseFn: func(ctx context.Context, tx pgx.Tx, bookID int64) error {
			released = true
			return nil
		},
	}
	svc := newSvc(r, g, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Return(ctx, model.Actor{UserID: 1}, 10)
	require.Error(t, err)
	require.Equal(t, apperr.ErrAlreadyReturned, apperr.Code(err))
	require.False(t, released, "inventory must not be incremented twice")
}

// --- Get / List ---

func TestGet_HidesOtherUsersBorrowing(t *testing.T) {
	ctx := context.Background()
	r := &mockRepo{
		getFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return activeBorrowing(), nil
		},
	}
	svc := newSvc(r, &mockGuard{}, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.Get(ctx, model.Actor{UserID: 2}, 10)
	require.Error(t, err)
	require.Equal(t, apperr.ErrNotFound, apperr.Code(err))

	b, err := svc.Get(ctx, model.Actor{UserID: 2, Staff: true}, 10)
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestList_ScopesByActor(t *testing.T) {
	ctx := context.Background()
	var gotUser *int64
	r := &mockRepo{
		listFn: func(ctx context.Context, userID *int64, isActive *bool) ([]model.Borrowing, error) {
			gotUser = userID
			return nil, nil
		},
	}
	svc := newSvc(r, &mockGuard{}, &mockLedger{}, &mockOpener{}, &mockEmitter{})

	_, err := svc.List(ctx, model.Actor{UserID: 7}, nil)
	require.NoError(t, err)
	require.NotNil(t, gotUser)
	require.Equal(t, int64(7), *gotUser)

	_, err = svc.List(ctx, model.Actor{UserID: 7, Staff: true}, nil)
	require.NoError(t, err)
	require.Nil(t, gotUser)
}
