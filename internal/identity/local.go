// ABOUTME: LocalProvider verifies email/password credentials against the account store
// ABOUTME: Issues server-side sessions and signed tokens; bcrypt for password hashes

package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/creatordash/internal/store"
)

const (
	// DefaultSessionTTL is how long sessions last when not configured.
	DefaultSessionTTL = 7 * 24 * time.Hour

	// DefaultMinPasswordLength is the minimum password length when not configured.
	DefaultMinPasswordLength = 6
)

// dummyHash keeps sign-in timing constant when the account doesn't exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// LocalConfig configures a LocalProvider.
type LocalConfig struct {
	SessionTTL        time.Duration
	MinPasswordLength int
	BcryptCost        int
}

// LocalProvider is an identity provider backed by the account store.
type LocalProvider struct {
	store  store.AccountStore
	tokens *TokenSigner
	config LocalConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewLocalProvider creates a provider. Zero config values take defaults.
func NewLocalProvider(accounts store.AccountStore, tokens *TokenSigner, cfg LocalConfig, logger *slog.Logger) *LocalProvider {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = DefaultMinPasswordLength
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalProvider{
		store:  accounts,
		tokens: tokens,
		config: cfg,
		logger: logger.With("component", "identity"),
		now:    time.Now,
	}
}

// SignIn checks the credentials and opens a new session.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	if email == "" || password == "" {
		return nil, NewAuthError(MsgInvalidCredentials, nil)
	}

	user, err := p.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, NewAuthError(MsgInvalidCredentials, err)
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, NewAuthError(MsgInvalidCredentials, err)
	}

	id, err := p.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	p.logger.Info("sign-in successful", "user_id", user.ID)
	return id, nil
}

// SignUp creates an account and opens a session for it.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	user, err := p.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}

	id, err := p.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	p.logger.Info("sign-up successful", "user_id", user.ID)
	return id, nil
}

// CreateAccount validates and stores a new account without opening a session.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*store.User, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, NewAuthError(MsgInvalidEmail, err)
	}

	if len(password) < p.config.MinPasswordLength {
		return nil, NewAuthError(fmt.Sprintf("Password should be at least %d characters.", p.config.MinPasswordLength), nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Email:        store.NormalizeEmail(email),
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}

	if err := p.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, NewAuthError(MsgEmailRegistered, err)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// SignOut ends the session behind token. Unknown, expired or malformed
// tokens are already signed out and return nil.
func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := p.tokens.Verify(token)
	if err != nil {
		p.logger.Debug("sign-out with unusable token", "error", err)
		return nil
	}

	if err := p.store.DeleteSession(ctx, claims.SessionID); err != nil {
		return NewAuthError(MsgSignOutFailed, err)
	}

	p.logger.Info("signed out", "user_id", claims.UserID)
	return nil
}

// Resolve returns the identity for token, or nil when there is no valid session.
// An error is returned only when the provider itself failed.
func (p *LocalProvider) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := p.tokens.Verify(token)
	if err != nil {
		return nil, nil
	}

	session, err := p.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	user, err := p.store.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	return &Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (p *LocalProvider) openSession(ctx context.Context, user *store.User) (*Identity, error) {
	sessionID, err := generateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	now := p.now()
	session := &store.Session{
		ID:        sessionID,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.config.SessionTTL),
	}

	if err := p.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	token, err := p.tokens.Sign(session.ID, user.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("signing session token: %w", err)
	}

	return &Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
