package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"tasca/internal/auth"
	"tasca/internal/core"
	"tasca/internal/kv"
	"tasca/internal/kv/memory"
	applog "tasca/internal/log"
	"tasca/internal/notify"
)

// flakyBlobs fails writes on demand.
type flakyBlobs struct {
	*memory.Store
	failPut bool
	failGet bool
}

func (f *flakyBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("disk unavailable")
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyBlobs) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

type alertRecorder struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (r *alertRecorder) Notify(_ context.Context, a notify.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *alertRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

type StoreTestSuite struct {
	suite.Suite
	ctx    context.Context
	blobs  *memory.Store
	alerts *alertRecorder
	clock  time.Time
	ids    int
	store  *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.blobs = memory.New()
	s.alerts = &alertRecorder{}
	s.clock = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ids = 0
	s.store = s.newStore(s.blobs)
	s.Require().NoError(s.store.Load(s.ctx))
}

func (s *StoreTestSuite) newStore(blobs kv.BlobStore, opts ...Option) *Store {
	base := []Option{
		WithLogger(applog.Discard()),
		WithNotifier(s.alerts),
		WithClock(func() time.Time { return s.clock }),
		WithIDGenerator(func() string {
			s.ids++
			return fmt.Sprintf("id-%d", s.ids)
		}),
	}
	return New(blobs, append(base, opts...)...)
}

func profile(name, email, salary string) core.Profile {
	return core.Profile{
		Name:          name,
		Age:           "30",
		Gender:        "F",
		MaritalStatus: "Single",
		Phone:         "555-0100",
		Email:         email,
		MonthlySalary: decimal.RequireFromString(salary),
	}
}

func expense(category, amount string) core.Expense {
	return core.Expense{Category: category, Amount: decimal.RequireFromString(amount)}
}

func (s *StoreTestSuite) TestRegisterDistinctEmails() {
	emails := []string{"a@x.io", "b@x.io", "c@x.io"}
	for _, e := range emails {
		_, err := s.store.Register(s.ctx, profile("U", e, "1000"), "pw")
		s.Require().NoError(err)
	}

	users := s.store.Users()
	s.Require().Len(users, 3)
	seen := map[string]bool{}
	for i, u := range users {
		s.Equal(emails[i], u.Email)
		s.Empty(u.Expenses)
		s.False(seen[u.ID], "ids must be distinct")
		seen[u.ID] = true
	}

	current, ok := s.store.CurrentUser()
	s.Require().True(ok)
	s.Equal("c@x.io", current.Email)
}

func (s *StoreTestSuite) TestRegisterDuplicateEmailIsCaseInsensitive() {
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	before := s.store.Users()

	_, err = s.store.Register(s.ctx, profile("Other", "A@X.IO", "2000"), "pw")
	s.ErrorIs(err, core.ErrDuplicateEmail)
	s.Equal(before, s.store.Users())
}

func (s *StoreTestSuite) TestAuthenticate() {
	a, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	_, err = s.store.Register(s.ctx, profile("B", "b@x.io", "1000"), "pw")
	s.Require().NoError(err)

	_, err = s.store.Authenticate(s.ctx, "nobody@x.io", "pw")
	s.ErrorIs(err, core.ErrNotFound)
	current, _ := s.store.CurrentUser()
	s.Equal("b@x.io", current.Email, "unknown email must leave the pointer alone")

	got, err := s.store.Authenticate(s.ctx, "A@x.io", "anything")
	s.Require().NoError(err)
	s.Equal(a.ID, got.ID)

	saved, err := s.blobs.Get(s.ctx, currentUserIDKey)
	s.Require().NoError(err)
	s.Equal(a.ID, string(saved))
}

func (s *StoreTestSuite) TestSignOutDeletesPointer() {
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)

	s.Require().NoError(s.store.SignOut(s.ctx))
	_, ok := s.store.CurrentUser()
	s.False(ok)
	_, err = s.blobs.Get(s.ctx, currentUserIDKey)
	s.ErrorIs(err, kv.ErrNotFound)

	_, err = s.store.AddExpense(s.ctx, expense("Food", "1"))
	s.ErrorIs(err, core.ErrNoCurrentUser)
	_, err = s.store.UpdateProfile(s.ctx, profile("A", "a@x.io", "1"))
	s.ErrorIs(err, core.ErrNoCurrentUser)
}

func (s *StoreTestSuite) TestAddExpenseFillsDefaults() {
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)

	e, err := s.store.AddExpense(s.ctx, expense("Food", "12.50"))
	s.Require().NoError(err)
	s.NotEmpty(e.ID)
	s.True(e.Timestamp.Equal(s.clock))

	at := time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC)
	kept, err := s.store.AddExpense(s.ctx, core.Expense{ID: "mine", Category: "Gift", Amount: decimal.NewFromInt(5), Timestamp: at})
	s.Require().NoError(err)
	s.Equal("mine", kept.ID)
	s.True(kept.Timestamp.Equal(at))

	current, _ := s.store.CurrentUser()
	s.Require().Len(current.Expenses, 2)
	s.Equal("Food", current.Expenses[0].Category)
	s.Equal("Gift", current.Expenses[1].Category)
}

func (s *StoreTestSuite) TestBudgetAlertFiresOnceWhenExceeded() {
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "50000"), "pw")
	s.Require().NoError(err)

	_, err = s.store.AddExpense(s.ctx, expense("Food", "20000"))
	s.Require().NoError(err)
	s.Equal(0, s.alerts.count())

	_, err = s.store.AddExpense(s.ctx, expense("Rent", "25000"))
	s.Require().NoError(err)
	s.Equal(0, s.alerts.count())

	_, err = s.store.AddExpense(s.ctx, expense("Transport", "10000"))
	s.Require().NoError(err)
	s.Require().Equal(1, s.alerts.count())

	a := s.alerts.alerts[0]
	s.Equal(notify.BudgetAlertTitle, a.Title)
	s.Equal(notify.BudgetAlertBody, a.Body)
	s.True(a.Total.Equal(decimal.NewFromInt(55000)))
	s.True(a.Income.Equal(decimal.NewFromInt(50000)))

	// no cooldown: every qualifying add alerts again
	_, err = s.store.AddExpense(s.ctx, expense("Food", "1"))
	s.Require().NoError(err)
	s.Equal(2, s.alerts.count())
}

func (s *StoreTestSuite) TestUpdateProfileKeepsEmailAndExpenses() {
	u, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	_, err = s.store.AddExpense(s.ctx, expense("Food", "10"))
	s.Require().NoError(err)

	updated, err := s.store.UpdateProfile(s.ctx, profile("Alice", "changed@x.io", "2000"))
	s.Require().NoError(err)
	s.Equal(u.ID, updated.ID)
	s.Equal("Alice", updated.Name)
	s.Equal("a@x.io", updated.Email)
	s.True(updated.MonthlySalary.Equal(decimal.NewFromInt(2000)))
	s.Len(updated.Expenses, 1)
	s.Len(s.store.Users(), 1)
}

func (s *StoreTestSuite) TestPersistRoundTrip() {
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000.50"), "pw")
	s.Require().NoError(err)
	b, err := s.store.Register(s.ctx, profile("B", "b@x.io", "2000"), "pw")
	s.Require().NoError(err)
	_, err = s.store.AddExpense(s.ctx, expense("Food", "12.34"))
	s.Require().NoError(err)
	_, err = s.store.AddExpense(s.ctx, expense("Refund", "-5"))
	s.Require().NoError(err)

	reloaded := s.newStore(s.blobs)
	s.Require().NoError(reloaded.Load(s.ctx))

	want := s.store.Users()
	got := reloaded.Users()
	s.Require().Len(got, len(want))
	for i := range want {
		s.Equal(want[i].ID, got[i].ID)
		s.Equal(want[i].Name, got[i].Name)
		s.Equal(want[i].Email, got[i].Email)
		s.True(want[i].MonthlySalary.Equal(got[i].MonthlySalary))
		s.Require().Len(got[i].Expenses, len(want[i].Expenses))
		for j := range want[i].Expenses {
			we, ge := want[i].Expenses[j], got[i].Expenses[j]
			s.Equal(we.ID, ge.ID)
			s.Equal(we.Category, ge.Category)
			s.True(we.Amount.Equal(ge.Amount))
			s.True(we.Timestamp.Equal(ge.Timestamp))
		}
	}

	current, ok := reloaded.CurrentUser()
	s.Require().True(ok)
	s.Equal(b.ID, current.ID)
}

func (s *StoreTestSuite) TestLoadCorruptUsersStartsEmpty() {
	s.Require().NoError(s.blobs.Put(s.ctx, usersKey, []byte("{not json")))
	s.Require().NoError(s.blobs.Put(s.ctx, currentUserIDKey, []byte("id-1")))

	st := s.newStore(s.blobs)
	s.Require().NoError(st.Load(s.ctx))
	s.True(st.IsReady())
	s.Empty(st.Users())
	_, ok := st.CurrentUser()
	s.False(ok)
}

func (s *StoreTestSuite) TestLoadClearsUnresolvedPointer() {
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	s.Require().NoError(s.blobs.Put(s.ctx, currentUserIDKey, []byte("ghost")))

	st := s.newStore(s.blobs)
	s.Require().NoError(st.Load(s.ctx))
	s.Len(st.Users(), 1)
	_, ok := st.CurrentUser()
	s.False(ok)
}

func (s *StoreTestSuite) TestLoadReadFailureStartsEmpty() {
	blobs := &flakyBlobs{Store: memory.New(), failGet: true}
	st := s.newStore(blobs)
	s.Require().NoError(st.Load(s.ctx))
	s.True(st.IsReady())
	s.Empty(st.Users())
}

func (s *StoreTestSuite) TestLoadCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	st := s.newStore(memory.New())
	err := st.Load(ctx)
	s.ErrorIs(err, context.Canceled)
	s.False(st.IsReady())
}

func (s *StoreTestSuite) TestOperationsBeforeReady() {
	st := s.newStore(memory.New())

	_, err := st.Register(s.ctx, profile("A", "a@x.io", "1"), "pw")
	s.ErrorIs(err, core.ErrNotReady)
	_, err = st.Authenticate(s.ctx, "a@x.io", "pw")
	s.ErrorIs(err, core.ErrNotReady)
	_, err = st.SignInWithBiometrics(s.ctx, auth.VerifierFunc(func(context.Context) (bool, error) { return true, nil }))
	s.ErrorIs(err, core.ErrNotReady)
	s.ErrorIs(st.SignOut(s.ctx), core.ErrNotReady)
	_, err = st.AddExpense(s.ctx, expense("Food", "1"))
	s.ErrorIs(err, core.ErrNotReady)
	_, err = st.UpdateProfile(s.ctx, profile("A", "a@x.io", "1"))
	s.ErrorIs(err, core.ErrNotReady)
	_, ok := st.CurrentUser()
	s.False(ok)
	s.Empty(st.Users())

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()
	s.ErrorIs(st.WaitReady(ctx), core.ErrNotReady)
}

func (s *StoreTestSuite) TestStartThenWaitReady() {
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)

	st := s.newStore(s.blobs)
	st.Start(s.ctx)

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	s.Require().NoError(st.WaitReady(ctx))
	select {
	case <-st.Ready():
	default:
		s.Fail("Ready channel should be closed")
	}
	s.Len(st.Users(), 1)
}

func (s *StoreTestSuite) TestSaveFailureIsNonFatal() {
	blobs := &flakyBlobs{Store: memory.New()}
	st := s.newStore(blobs)
	s.Require().NoError(st.Load(s.ctx))

	blobs.failPut = true
	u, err := st.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	_, err = st.AddExpense(s.ctx, expense("Food", "5"))
	s.Require().NoError(err)

	current, ok := st.CurrentUser()
	s.Require().True(ok)
	s.Equal(u.ID, current.ID)
	s.Len(current.Expenses, 1)
	_, err = blobs.Store.Get(s.ctx, usersKey)
	s.ErrorIs(err, kv.ErrNotFound)

	blobs.failPut = false
	_, err = st.AddExpense(s.ctx, expense("Food", "6"))
	s.Require().NoError(err)
	_, err = blobs.Store.Get(s.ctx, usersKey)
	s.NoError(err)
}

func (s *StoreTestSuite) TestBiometricSignIn() {
	yes := auth.VerifierFunc(func(context.Context) (bool, error) { return true, nil })
	no := auth.VerifierFunc(func(context.Context) (bool, error) { return false, nil })

	_, err := s.store.SignInWithBiometrics(s.ctx, yes)
	s.ErrorIs(err, core.ErrNotFound)

	_, err = s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	last, err := s.store.Register(s.ctx, profile("B", "b@x.io", "1000"), "pw")
	s.Require().NoError(err)
	_, err = s.store.Authenticate(s.ctx, "a@x.io", "pw")
	s.Require().NoError(err)

	_, err = s.store.SignInWithBiometrics(s.ctx, no)
	s.ErrorIs(err, core.ErrBiometricRejected)
	current, _ := s.store.CurrentUser()
	s.Equal("a@x.io", current.Email)

	got, err := s.store.SignInWithBiometrics(s.ctx, yes)
	s.Require().NoError(err)
	s.Equal(last.ID, got.ID)
}

func (s *StoreTestSuite) TestReturnedUsersAreCopies() {
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	_, err = s.store.AddExpense(s.ctx, expense("Food", "5"))
	s.Require().NoError(err)

	current, _ := s.store.CurrentUser()
	current.Expenses[0].Category = "Changed"
	current.Name = "Changed"

	again, _ := s.store.CurrentUser()
	s.Equal("Food", again.Expenses[0].Category)
	s.Equal("A", again.Name)
}

func (s *StoreTestSuite) TestEvents() {
	events, cancel := s.store.Subscribe(8)
	defer cancel()

	u, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	_, err = s.store.AddExpense(s.ctx, expense("Food", "5"))
	s.Require().NoError(err)
	s.Require().NoError(s.store.SignOut(s.ctx))

	want := []EventKind{EventRegistered, EventExpenseAdded, EventSignedOut}
	for _, kind := range want {
		select {
		case e := <-events:
			s.Equal(kind, e.Kind)
			s.Equal(u.ID, e.UserID)
		default:
			s.Failf("missing event", "expected %s", kind)
		}
	}
}

func (s *StoreTestSuite) TestSubscriberDropsWhenFull() {
	events, cancel := s.store.Subscribe(1)
	_, err := s.store.Register(s.ctx, profile("A", "a@x.io", "1000"), "pw")
	s.Require().NoError(err)
	_, err = s.store.AddExpense(s.ctx, expense("Food", "5"))
	s.Require().NoError(err)

	s.Len(events, 1)
	cancel()
	cancel()
	_, open := <-events
	s.True(open, "buffered event is still readable")
	_, open = <-events
	s.False(open)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestBcryptCredentials(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	st := New(blobs,
		WithLogger(applog.Discard()),
		WithCredentials(auth.Bcrypt{Cost: bcrypt.MinCost}))
	require.NoError(t, st.Load(ctx))

	u, err := st.Register(ctx, profile("A", "a@x.io", "1000"), "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, u.PasswordHash)

	_, err = st.Authenticate(ctx, "a@x.io", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	got, err := st.Authenticate(ctx, "a@x.io", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestBcryptAcceptsLegacyUserWithoutHash(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()

	legacy := New(blobs, WithLogger(applog.Discard()))
	require.NoError(t, legacy.Load(ctx))
	_, err := legacy.Register(ctx, profile("A", "a@x.io", "1000"), "pw")
	require.NoError(t, err)

	st := New(blobs,
		WithLogger(applog.Discard()),
		WithCredentials(auth.Bcrypt{Cost: bcrypt.MinCost}))
	require.NoError(t, st.Load(ctx))
	_, err = st.Authenticate(ctx, "a@x.io", "anything")
	assert.NoError(t, err)
}
