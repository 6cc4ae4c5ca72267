// ABOUTME: Signed session tokens carried in the session cookie
// ABOUTME: Uses HS256 JWTs whose subject is the server-side session ID

package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrEmptySecret  = errors.New("token secret must not be empty")
)

// TokenClaims are the values recovered from a verified session token.
type TokenClaims struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

// TokenSigner issues and verifies HS256 session tokens.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner creates a signer with the given secret.
func NewTokenSigner(secret []byte) (*TokenSigner, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &TokenSigner{secret: secret}, nil
}

// Sign creates a token for sessionID owned by userID, valid until expiresAt.
func (s *TokenSigner) Sign(sessionID, userID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": sessionID,
		"uid": userID,
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the token signature and expiry and returns its claims.
func (s *TokenSigner) Verify(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return nil, fmt.Errorf("%w: uid", ErrMissingClaim)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: exp", ErrMissingClaim)
	}

	return &TokenClaims{SessionID: sub, UserID: uid, ExpiresAt: exp.Time}, nil
}
