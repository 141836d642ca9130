// Package store is the record store: the set of registered users, the
// signed-in pointer, and their persistence into a kv.BlobStore.
//
// A Store starts not ready. Start or Load reads the saved state once and
// publishes it; every operation before that returns core.ErrNotReady.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tasca/internal/aggregate"
	"tasca/internal/auth"
	"tasca/internal/core"
	"tasca/internal/kv"
	applog "tasca/internal/log"
	"tasca/internal/notify"
)

const (
	usersKey         = "users"
	currentUserIDKey = "currentUserId"
)

type Store struct {
	blobs    kv.BlobStore
	notifier notify.Notifier
	creds    auth.Credentials
	logger   *applog.Logger
	now      func() time.Time
	newID    func() string

	mu        sync.RWMutex
	users     []core.User
	currentID string
	ready     bool
	readyCh   chan struct{}
	readyOnce sync.Once

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

type Option func(*Store)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithCredentials(c auth.Credentials) Option {
	return func(s *Store) { s.creds = c }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the time source used for expense timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the generator for user and expense ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func New(blobs kv.BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:   blobs,
		creds:   auth.Insecure{},
		now:     time.Now,
		newID:   uuid.NewString,
		readyCh: make(chan struct{}),
		subs:    make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentStore)
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.logger)
	}
	return s
}

// Start loads the saved state in the background. Use Ready or WaitReady
// to learn when it is done.
func (s *Store) Start(ctx context.Context) {
	go func() {
		if err := s.Load(ctx); err != nil {
			s.logger.WarnContext(ctx, "Record store load aborted",
				applog.FieldOperation, applog.OpLoad,
				applog.FieldError, err)
		}
	}()
}

// Load reads both keys, resolves the current user and marks the store
// ready. Unreadable or undecodable data counts as no saved data. Only a
// cancelled context is returned as an error.
func (s *Store) Load(ctx context.Context) error {
	start := time.Now()

	var usersBlob, pointerBlob []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		usersBlob = s.read(gctx, usersKey)
		return gctx.Err()
	})
	g.Go(func() error {
		pointerBlob = s.read(gctx, currentUserIDKey)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load record store: %w", err)
	}

	users := make([]core.User, 0)
	if len(usersBlob) > 0 {
		if err := json.Unmarshal(usersBlob, &users); err != nil {
			s.logger.ErrorContext(ctx, "Saved users could not be decoded, starting empty",
				applog.FieldOperation, applog.OpLoad,
				applog.FieldKey, usersKey,
				applog.FieldBytes, len(usersBlob),
				applog.FieldError, err)
			users = make([]core.User, 0)
		}
	}

	currentID := string(pointerBlob)
	if currentID != "" && indexOf(users, currentID) < 0 {
		s.logger.WarnContext(ctx, "Saved current user not found, signing out",
			applog.FieldOperation, applog.OpLoad,
			applog.FieldUserID, currentID)
		currentID = ""
	}

	s.mu.Lock()
	s.users = users
	s.currentID = currentID
	s.ready = true
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })

	s.logger.InfoContext(ctx, "Record store ready",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldUsers, len(users),
		applog.FieldDuration, time.Since(start))
	s.emit(Event{Kind: EventReady, UserID: currentID})
	return nil
}

func (s *Store) read(ctx context.Context, key string) []byte {
	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		if ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "Failed to read saved data",
				applog.FieldOperation, applog.OpLoad,
				applog.FieldKey, key,
				applog.FieldError, err)
		}
		return nil
	}
	return data
}

// Ready is closed once the first load has been published.
func (s *Store) Ready() <-chan struct{} {
	return s.readyCh
}

func (s *Store) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// WaitReady blocks until the store is ready or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", core.ErrNotReady, ctx.Err())
	}
}

// Register creates a user with no expenses and signs it in. Emails are
// compared case-insensitively.
func (s *Store) Register(ctx context.Context, profile core.Profile, password string) (core.User, error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return core.User{}, core.ErrNotReady
	}
	if s.findByEmail(profile.Email) >= 0 {
		s.mu.Unlock()
		return core.User{}, core.ErrDuplicateEmail
	}

	hash, err := s.creds.Hash(password)
	if err != nil {
		s.mu.Unlock()
		return core.User{}, fmt.Errorf("register: %w", err)
	}

	user := core.User{
		ID:           s.newID(),
		Profile:      profile,
		Expenses:     []core.Expense{},
		PasswordHash: hash,
	}
	s.users = append(s.users, user)
	s.currentID = user.ID
	s.saveUsers(ctx)
	s.savePointer(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "User registered",
		applog.FieldOperation, applog.OpRegister,
		applog.FieldUserID, user.ID)
	s.emit(Event{Kind: EventRegistered, UserID: user.ID})
	return user.Clone(), nil
}

// Authenticate signs in the user with the given email. The password is
// only checked when the store was built with real credentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return core.User{}, core.ErrNotReady
	}
	i := s.findByEmail(email)
	if i < 0 {
		s.mu.Unlock()
		return core.User{}, core.ErrNotFound
	}
	user := s.users[i]
	if err := s.checkPassword(ctx, user, password); err != nil {
		s.mu.Unlock()
		return core.User{}, err
	}

	s.currentID = user.ID
	s.savePointer(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "User signed in",
		applog.FieldOperation, applog.OpAuthenticate,
		applog.FieldUserID, user.ID)
	s.emit(Event{Kind: EventSignedIn, UserID: user.ID})
	return user.Clone(), nil
}

func (s *Store) checkPassword(ctx context.Context, user core.User, password string) error {
	if _, insecure := s.creds.(auth.Insecure); insecure {
		return nil
	}
	if user.PasswordHash == "" {
		s.logger.WarnContext(ctx, "User has no stored password, accepting sign-in",
			applog.FieldOperation, applog.OpAuthenticate,
			applog.FieldUserID, user.ID)
		return nil
	}
	err := s.creds.Verify(user.PasswordHash, password)
	if errors.Is(err, auth.ErrMismatch) {
		return core.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

// SignInWithBiometrics asks the verifier and, on success, signs in the most
// recently registered user.
func (s *Store) SignInWithBiometrics(ctx context.Context, verifier auth.Verifier) (core.User, error) {
	if !s.IsReady() {
		return core.User{}, core.ErrNotReady
	}
	ok, err := verifier.Verify(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("biometric sign-in: %w", err)
	}
	if !ok {
		return core.User{}, core.ErrBiometricRejected
	}

	s.mu.Lock()
	if len(s.users) == 0 {
		s.mu.Unlock()
		return core.User{}, core.ErrNotFound
	}
	user := s.users[len(s.users)-1]
	s.currentID = user.ID
	s.savePointer(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "User signed in with biometrics",
		applog.FieldOperation, applog.OpBiometric,
		applog.FieldUserID, user.ID)
	s.emit(Event{Kind: EventSignedIn, UserID: user.ID})
	return user.Clone(), nil
}

func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return core.ErrNotReady
	}
	previous := s.currentID
	s.currentID = ""
	s.savePointer(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "User signed out",
		applog.FieldOperation, applog.OpSignOut,
		applog.FieldUserID, previous)
	s.emit(Event{Kind: EventSignedOut, UserID: previous})
	return nil
}

// AddExpense appends e to the current user's expenses, filling a missing id
// or timestamp. When the total then exceeds the salary a budget alert is
// sent, once per call.
func (s *Store) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return core.Expense{}, core.ErrNotReady
	}
	i := indexOf(s.users, s.currentID)
	if i < 0 {
		s.mu.Unlock()
		return core.Expense{}, core.ErrNoCurrentUser
	}

	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	user := s.users[i].Clone()
	user.Expenses = append(user.Expenses, e)
	s.upsert(user)
	s.saveUsers(ctx)
	s.savePointer(ctx)

	total := aggregate.TotalExpenses(user.Expenses)
	income := aggregate.TotalIncome(user)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Expense added",
		applog.NewFields().
			WithOperation(applog.OpAddExpense).
			WithUser(user.ID).
			WithExpense(e.ID, e.Category, e.Amount.String()).
			ToSlice()...)
	s.emit(Event{Kind: EventExpenseAdded, UserID: user.ID})

	if aggregate.BudgetExceeded(total, income) {
		s.alert(ctx, notify.BudgetAlert(user.ID, total, income, s.now()))
	}
	return e, nil
}

// UpdateProfile replaces the current user's profile. The email stays as
// registered.
func (s *Store) UpdateProfile(ctx context.Context, profile core.Profile) (core.User, error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return core.User{}, core.ErrNotReady
	}
	i := indexOf(s.users, s.currentID)
	if i < 0 {
		s.mu.Unlock()
		return core.User{}, core.ErrNoCurrentUser
	}

	user := s.users[i].Clone()
	profile.Email = user.Email
	user.Profile = profile
	s.upsert(user)
	s.saveUsers(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Profile updated",
		applog.FieldOperation, applog.OpUpdateProfile,
		applog.FieldUserID, user.ID)
	s.emit(Event{Kind: EventProfileUpdated, UserID: user.ID})
	return user.Clone(), nil
}

// CurrentUser returns a copy of the signed-in user.
func (s *Store) CurrentUser() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return core.User{}, false
	}
	i := indexOf(s.users, s.currentID)
	if i < 0 {
		return core.User{}, false
	}
	return s.users[i].Clone(), true
}

// Users returns copies of every registered user in registration order.
func (s *Store) Users() []core.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.User, len(s.users))
	for i, u := range s.users {
		out[i] = u.Clone()
	}
	return out
}

func (s *Store) alert(ctx context.Context, a notify.Alert) {
	if err := s.notifier.Notify(ctx, a); err != nil {
		s.logger.WarnContext(ctx, "Failed to deliver budget alert",
			applog.FieldOperation, applog.OpNotify,
			applog.FieldUserID, a.UserID,
			applog.FieldError, err)
	}
}

// upsert replaces the user with the same id, or appends it. Callers hold mu.
func (s *Store) upsert(user core.User) {
	if i := indexOf(s.users, user.ID); i >= 0 {
		s.users[i] = user
		return
	}
	s.users = append(s.users, user)
}

func (s *Store) findByEmail(email string) int {
	email = strings.TrimSpace(email)
	for i, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return i
		}
	}
	return -1
}

func indexOf(users []core.User, id string) int {
	if id == "" {
		return -1
	}
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// saveUsers and savePointer log failures; memory stays authoritative until
// the next successful save. Callers hold mu.
func (s *Store) saveUsers(ctx context.Context) {
	data, err := json.Marshal(s.users)
	if err != nil {
		s.saveFailed(ctx, usersKey, err)
		return
	}
	if err := s.blobs.Put(ctx, usersKey, data); err != nil {
		s.saveFailed(ctx, usersKey, err)
		return
	}
	s.logger.DebugContext(ctx, "Saved users",
		applog.FieldOperation, applog.OpSave,
		applog.FieldKey, usersKey,
		applog.FieldBytes, len(data))
}

func (s *Store) savePointer(ctx context.Context) {
	var err error
	if s.currentID == "" {
		err = s.blobs.Delete(ctx, currentUserIDKey)
	} else {
		err = s.blobs.Put(ctx, currentUserIDKey, []byte(s.currentID))
	}
	if err != nil {
		s.saveFailed(ctx, currentUserIDKey, err)
	}
}

func (s *Store) saveFailed(ctx context.Context, key string, err error) {
	s.logger.ErrorContext(ctx, "Failed to save record store",
		applog.FieldOperation, applog.OpSave,
		applog.FieldKey, key,
		applog.FieldError, err)
}
