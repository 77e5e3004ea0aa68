package auth

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid session token")

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// TokenIssuer emite tokens de sesión para un usuario autenticado.
type TokenIssuer interface {
	Issue(ctx context.Context, c Claims) (token string, err error)
}
