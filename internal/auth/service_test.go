package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/models"
)

// fakeUsers is an in-memory UserStore with failure injection.
type fakeUsers struct {
	mu        sync.Mutex
	passwords map[string]string
	creates   int
	updates   int

	getErr    error
	createErr error
	updateErr error
	// beforeCreate runs once inside CreateUser, used to simulate a racing registration.
	beforeCreate func(f *fakeUsers)
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{passwords: make(map[string]string)}
}

func (f *fakeUsers) GetUser(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	pw, ok := f.passwords[username]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &models.User{Username: username, Password: pw}, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hook := f.beforeCreate; hook != nil {
		f.beforeCreate = nil
		hook(f)
	}
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.passwords[username]; ok {
		return models.ErrUserExists
	}
	f.passwords[username] = password
	f.creates++
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.passwords[username]; !ok {
		return models.ErrUserNotFound
	}
	f.passwords[username] = password
	f.updates++
	return nil
}

func (f *fakeUsers) stored(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwords[username]
}

func newTestService(t *testing.T, users UserStore) *Service {
	t.Helper()
	h, err := NewHasher("bcrypt")
	require.NoError(t, err)
	return NewService(users, h, zap.NewNop())
}

func TestLogin_FirstUseRegisters(t *testing.T) {
	users := newFakeUsers()
	svc := newTestService(t, users)

	out, err := svc.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, Registered, out)
	assert.True(t, out.OK())
	assert.Equal(t, 1, users.creates)

	cred := ParseCredential(users.stored("alice"))
	assert.Equal(t, Hashed, cred.Kind)
	assert.NotEqual(t, "secret1", cred.Value)
}

func TestLogin_LongPasswordRegisters(t *testing.T) {
	users := newFakeUsers()
	svc := newTestService(t, users)
	ctx := context.Background()
	long := strings.Repeat("p", 80)

	out, err := svc.Login(ctx, "alice", long)
	require.NoError(t, err)
	assert.Equal(t, Registered, out)

	out, err = svc.Login(ctx, "alice", long)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, out)

	out, err = svc.Login(ctx, "alice", strings.Repeat("p", 81))
	require.NoError(t, err)
	assert.Equal(t, Rejected, out)
}

func TestLogin_ExistingUser(t *testing.T) {
	users := newFakeUsers()
	svc := newTestService(t, users)
	ctx := context.Background()

	_, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	out, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, out)

	out, err = svc.Login(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.Equal(t, Rejected, out)
	assert.False(t, out.OK())

	assert.Equal(t, 1, users.creates)
}

func TestLogin_EmptyFields(t *testing.T) {
	users := newFakeUsers()
	svc := newTestService(t, users)

	for _, tc := range [][2]string{{"", "pw"}, {"bob", ""}} {
		out, err := svc.Login(context.Background(), tc[0], tc[1])
		assert.ErrorIs(t, err, ErrInvalidCredential)
		assert.Equal(t, Rejected, out)
	}
	assert.Zero(t, users.creates)
}

func TestLogin_LegacyPlaintextIsUpgraded(t *testing.T) {
	users := newFakeUsers()
	users.passwords["old"] = "plainpass"
	svc := newTestService(t, users)

	out, err := svc.Login(context.Background(), "old", "plainpass")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, out)
	assert.Equal(t, 1, users.updates)

	cred := ParseCredential(users.stored("old"))
	assert.Equal(t, Hashed, cred.Kind)
	ok, err := cred.Verify("plainpass")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogin_LegacyPlaintextMismatchNotUpgraded(t *testing.T) {
	users := newFakeUsers()
	users.passwords["old"] = "plainpass"
	svc := newTestService(t, users)

	out, err := svc.Login(context.Background(), "old", "nope")
	require.NoError(t, err)
	assert.Equal(t, Rejected, out)
	assert.Equal(t, "plainpass", users.stored("old"))
}

func TestLogin_UpgradeFailureStillAuthenticates(t *testing.T) {
	users := newFakeUsers()
	users.passwords["old"] = "plainpass"
	users.updateErr = errors.New("disk full")
	svc := newTestService(t, users)

	out, err := svc.Login(context.Background(), "old", "plainpass")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, out)
	assert.Equal(t, "plainpass", users.stored("old"))
}

func TestLogin_RegistrationRace(t *testing.T) {
	users := newFakeUsers()
	svc := newTestService(t, users)
	winner, err := svc.hasher.Hash("winnerpw")
	require.NoError(t, err)
	users.beforeCreate = func(f *fakeUsers) { f.passwords["dup"] = winner }

	out, err := svc.Login(context.Background(), "dup", "winnerpw")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, out)

	users.beforeCreate = func(f *fakeUsers) {}
	out, err = svc.Login(context.Background(), "dup", "loserpw")
	require.NoError(t, err)
	assert.Equal(t, Rejected, out)
	assert.Equal(t, winner, users.stored("dup"))
}

func TestLogin_StoreErrors(t *testing.T) {
	users := newFakeUsers()
	users.getErr = errors.New("connection refused")
	svc := newTestService(t, users)

	out, err := svc.Login(context.Background(), "alice", "secret1")
	assert.Error(t, err)
	assert.Equal(t, Rejected, out)

	users.getErr = nil
	users.createErr = errors.New("connection refused")
	out, err = svc.Login(context.Background(), "alice", "secret1")
	assert.Error(t, err)
	assert.Equal(t, Rejected, out)
}

func TestChangePassword(t *testing.T) {
	users := newFakeUsers()
	svc := newTestService(t, users)
	ctx := context.Background()

	_, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	before := users.stored("alice")

	for _, pw := range []string{"", "a", "12345", "ñandú"} {
		assert.ErrorIs(t, svc.ChangePassword(ctx, "alice", pw), ErrPasswordTooShort, pw)
	}
	assert.Equal(t, before, users.stored("alice"))

	require.NoError(t, svc.ChangePassword(ctx, "alice", "ñandú!"))
	assert.NotEqual(t, before, users.stored("alice"))

	out, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, Rejected, out)

	out, err = svc.Login(ctx, "alice", "ñandú!")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, out)
}

func TestExists(t *testing.T) {
	users := newFakeUsers()
	users.passwords["alice"] = "x"
	svc := newTestService(t, users)

	ok, err := svc.Exists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	users.getErr = errors.New("boom")
	_, err = svc.Exists(context.Background(), "alice")
	assert.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "registered", Registered.String())
}
