package accounts

import (
	"context"
	"errors"
)

var (
	ErrDuplicateCredential = errors.New("duplicate credential")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrSessionExpired      = errors.New("session expired")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidInput        = errors.New("invalid input")
)

// MutateFunc recibe la lista de usuarios más reciente; devolver kv.ErrNoChange
// aborta sin escribir.
type MutateFunc func(users []User) ([]User, error)

type Repository interface {
	Users(ctx context.Context) ([]User, error)
	MutateUsers(ctx context.Context, fn MutateFunc) ([]User, error)

	CurrentUser(ctx context.Context) (PublicUser, bool, error)
	SetCurrentUser(ctx context.Context, u PublicUser) error
	ClearCurrentUser(ctx context.Context) error
}
