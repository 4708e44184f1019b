package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrSessionInvalid is returned for malformed, expired, or tampered tokens.
var ErrSessionInvalid = errors.New("http: invalid session token")

// sessionTTL is how long an issued session token stays valid.
const sessionTTL = 24 * time.Hour

// SessionAuth issues and verifies bearer session tokens.
type SessionAuth struct {
	secret []byte
}

// NewSessionAuth creates a SessionAuth signing with the given secret.
func NewSessionAuth(secret string) *SessionAuth {
	return &SessionAuth{secret: []byte(secret)}
}

// Issue creates a signed session token for the given user.
func (a *SessionAuth) Issue(userID uuid.UUID) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("http: sign session: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the user ID it was issued to.
func (a *SessionAuth) Verify(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrSessionInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrSessionInvalid
	}
	return userID, nil
}
