package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medipal/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTTL = 7 * 24 * time.Hour
	issuer     = "medipal"
)

var ErrTokenEmpty = errors.New("token is empty")

type tokenClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Tokens emite y verifica tokens de sesión HS256.
// Implementa auth.AuthVerifier y auth.TokenIssuer.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *Tokens) Issue(ctx context.Context, c auth.Claims) (string, error) {
	if strings.TrimSpace(c.UserID) == "" {
		return "", errors.New("claims missing user id")
	}
	now := t.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email:    c.Email,
		Username: c.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})

	s, err := tok.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}

func (t *Tokens) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var c tokenClaims
	_, err := jwt.ParseWithClaims(token, &c, func(tk *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	if strings.TrimSpace(c.Subject) == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing subject", auth.ErrInvalidToken)
	}
	return auth.Claims{UserID: c.Subject, Email: c.Email, Username: c.Username}, nil
}

var (
	_ auth.AuthVerifier = (*Tokens)(nil)
	_ auth.TokenIssuer  = (*Tokens)(nil)
)
