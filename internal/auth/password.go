package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrResetTokenInvalid  = errors.New("reset token expired or invalid")
)

// resetTokenTTL is how long a password-reset token stays usable.
const resetTokenTTL = time.Hour

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	store storage.Store
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(store storage.Store) *PasswordAuthenticator {
	return &PasswordAuthenticator{store: store}
}

// ValidatePassword checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new account with a hashed password. New accounts get
// the marketing role; only admins promote from there.
func (a *PasswordAuthenticator) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := a.ValidatePassword(password); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if existing, err := a.store.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		Role:         models.RoleMarketing,
		PasswordHash: string(hash),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies the email and password, returning the user if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// StartReset issues a password-reset token for the given email and returns
// it together with the user. Returns storage.ErrNotFound for unknown emails;
// the caller decides whether to reveal that to the requester.
func (a *PasswordAuthenticator) StartReset(ctx context.Context, email string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	expires := time.Now().Add(resetTokenTTL).Unix()
	if err := a.store.SetResetToken(ctx, email, token, expires); err != nil {
		return nil, "", fmt.Errorf("store reset token: %w", err)
	}
	return user, token, nil
}

// CompleteReset consumes a reset token and sets the new password.
func (a *PasswordAuthenticator) CompleteReset(ctx context.Context, token, password string) error {
	if err := a.ValidatePassword(password); err != nil {
		return err
	}

	user, err := a.store.GetUserByResetToken(ctx, token, time.Now().Unix())
	if err != nil {
		return ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return a.store.UpdatePassword(ctx, user.ID, string(hash))
}
