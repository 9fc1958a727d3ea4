package auth

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/models"
)

const MinPasswordLength = 6

var (
	ErrPasswordTooShort  = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidCredential = errors.New("username and password are required")
)

// Outcome is the result of a login attempt.
type Outcome int

const (
	Rejected Outcome = iota
	Authenticated
	Registered
)

func (o Outcome) String() string {
	switch o {
	case Authenticated:
		return "authenticated"
	case Registered:
		return "registered"
	default:
		return "rejected"
	}
}

// OK reports whether a session should be established.
func (o Outcome) OK() bool { return o == Authenticated || o == Registered }

// UserStore defines the interface for credential persistence.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username, password string) error
	UpdatePassword(ctx context.Context, username, password string) error
}

// Service implements login with implicit registration and password changes.
type Service struct {
	users  UserStore
	hasher *Hasher
	log    *zap.Logger
}

func NewService(users UserStore, hasher *Hasher, log *zap.Logger) *Service {
	return &Service{users: users, hasher: hasher, log: log}
}

// Login authenticates username, registering it first if no record exists.
func (s *Service) Login(ctx context.Context, username, password string) (Outcome, error) {
	if username == "" || password == "" {
		return Rejected, ErrInvalidCredential
	}

	user, err := s.users.GetUser(ctx, username)
	if errors.Is(err, models.ErrUserNotFound) {
		registered, regErr := s.register(ctx, username, password)
		if regErr != nil {
			return Rejected, regErr
		}
		if registered {
			return Registered, nil
		}
		// Lost a concurrent registration race; verify against the winner.
		user, err = s.users.GetUser(ctx, username)
	}
	if err != nil {
		return Rejected, fmt.Errorf("get user: %w", err)
	}

	cred := ParseCredential(user.Password)
	ok, err := cred.Verify(password)
	if err != nil {
		return Rejected, err
	}
	if !ok {
		return Rejected, nil
	}

	if cred.Kind == LegacyPlaintext {
		s.upgrade(ctx, username, password)
	}
	return Authenticated, nil
}

func (s *Service) register(ctx context.Context, username, password string) (bool, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	err = s.users.CreateUser(ctx, username, hash)
	if errors.Is(err, models.ErrUserExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("registered user", zap.String("username", username))
	return true, nil
}

// upgrade rehashes a legacy plaintext password. Failure only costs another
// upgrade attempt on the next login, so it is logged and swallowed.
func (s *Service) upgrade(ctx context.Context, username, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, username, hash)
	}
	if err != nil {
		s.log.Warn("failed to rehash legacy password", zap.String("username", username), zap.Error(err))
		return
	}
	s.log.Info("rehashed legacy password", zap.String("username", username))
}

// ChangePassword replaces the stored hash for username.
func (s *Service) ChangePassword(ctx context.Context, username, password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, username, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Exists reports whether a credential record exists for username.
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	_, err := s.users.GetUser(ctx, username)
	if errors.Is(err, models.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
