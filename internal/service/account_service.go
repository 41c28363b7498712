package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/f1blog/internal/db"
	"github.com/f1blog/internal/domain"
	"github.com/f1blog/internal/throttle"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// dummyPasswordHash is compared against when the email is unknown so both
// rejection paths spend the same bcrypt time.
func dummyPasswordHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// accountService implements the AccountService interface
type accountService struct {
	database *db.DB
	limiter  throttle.Limiter
	logger   *slog.Logger
}

// NewAccountService creates a new account service. limiter may be nil.
func NewAccountService(database *db.DB, limiter throttle.Limiter, logger *slog.Logger) domain.AccountService {
	return &accountService{
		database: database,
		limiter:  limiter,
		logger:   logger,
	}
}

// VerifyCredentials checks an email and password. Unknown accounts, disabled
// accounts, locked accounts and wrong passwords all return false.
func (s *accountService) VerifyCredentials(ctx context.Context, email, secret string) (bool, error) {
	addr, err := domain.NewEmail(email)
	if err != nil || secret == "" {
		return false, nil
	}
	key := addr.String()

	if s.limiter != nil {
		allowed, err := s.limiter.Allowed(ctx, key)
		if err != nil {
			return false, fmt.Errorf("login throttle unavailable: %w", err)
		}
		if !allowed {
			s.logger.WarnContext(ctx, "login attempt while locked")
			bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(secret))
			return false, nil
		}
	}

	user, err := s.database.GetUserByEmail(ctx, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "failed to look up account", "error", err)
		return false, domain.WrapDatabaseOperation("get user", err)
	}

	ok := false
	if user == nil {
		bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(secret))
	} else {
		ok = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)) == nil && !user.Disabled
	}

	if s.limiter != nil {
		if ok {
			err = s.limiter.Reset(ctx, key)
		} else {
			err = s.limiter.Failure(ctx, key)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "failed to update login throttle", "error", err)
		}
	}

	if !ok {
		s.logger.InfoContext(ctx, "credentials rejected")
		return false, nil
	}

	s.logger.InfoContext(ctx, "credentials accepted", "user_id", user.ID)
	return true, nil
}

// GetAccount returns the public view of the account with the given email
func (s *accountService) GetAccount(ctx context.Context, email string) (*domain.Account, error) {
	user, err := s.database.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.WrapDatabaseOperation("get user", err)
	}

	account := &domain.Account{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
	if user.AvatarURL != nil {
		account.AvatarURL = *user.AvatarURL
	}
	return account, nil
}

// IsActive reports whether the account exists and is not disabled
func (s *accountService) IsActive(ctx context.Context, userID string) (bool, error) {
	user, err := s.database.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, domain.WrapAuthCheckFailed(err)
	}
	return !user.Disabled, nil
}
