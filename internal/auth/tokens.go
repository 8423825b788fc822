// Package auth issues and verifies the signed bearer tokens that guard the
// API. Tokens are stateless HS256 JWTs; nothing is persisted.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken signals that no bearer credential was presented.
	ErrMissingToken = errors.New("access token required")
	// ErrMalformedToken covers signature, structure, and decode failures.
	ErrMalformedToken = errors.New("invalid access token")
	// ErrExpiredToken signals a well-formed token past its expiry.
	ErrExpiredToken = errors.New("token has expired")
	// ErrUnknownSubject signals a valid token whose subject no longer resolves
	// to a stored account.
	ErrUnknownSubject = errors.New("account associated with this token does not exist")
)

const (
	// TokenTypeAccess marks short-lived tokens intended for request auth.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks long-lived tokens intended for re-issuance.
	TokenTypeRefresh = "refresh"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPair bundles the two tokens returned by a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type tokenClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies tokens with a process-wide HMAC secret
// loaded at startup.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager constructs a TokenManager. Non-positive TTLs fall back to
// 15 minutes for access tokens and 7 days for refresh tokens.
func NewTokenManager(secret []byte, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenManager{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue signs an access/refresh token pair for the provided subject.
func (m *TokenManager) Issue(subject string) (TokenPair, error) {
	if subject == "" {
		return TokenPair{}, errors.New("token subject is required")
	}
	access, err := m.sign(subject, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(subject, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) sign(subject, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify validates the token signature and expiry and returns the subject and
// token type. Expiry failures map to ErrExpiredToken so callers can return a
// distinct status code; every other failure collapses to ErrMalformedToken.
func (m *TokenManager) Verify(token string) (string, string, error) {
	if token == "" {
		return "", "", ErrMissingToken
	}
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrExpiredToken
		}
		return "", "", ErrMalformedToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", "", ErrMalformedToken
	}
	return claims.Subject, claims.TokenType, nil
}
