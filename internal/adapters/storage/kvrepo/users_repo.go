package kvrepo

import (
	"context"

	"medipal/internal/domain/accounts"
	"medipal/internal/ports/kv"
)

const (
	keyUsers       = "users"
	keyCurrentUser = "currentUser"
)

type UsersRepo struct {
	store kv.Store
}

func NewUsersRepo(store kv.Store) *UsersRepo {
	return &UsersRepo{store: store}
}

func (r *UsersRepo) Users(ctx context.Context) ([]accounts.User, error) {
	var users []accounts.User
	if _, err := kv.GetJSON(ctx, r.store, keyUsers, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []accounts.User{}
	}
	return users, nil
}

func (r *UsersRepo) MutateUsers(ctx context.Context, fn accounts.MutateFunc) ([]accounts.User, error) {
	var result []accounts.User

	err := kv.UpdateJSON(ctx, r.store, keyUsers, func(users []accounts.User, _ bool) ([]accounts.User, error) {
		if users == nil {
			users = []accounts.User{}
		}
		result = users

		next, err := fn(append([]accounts.User{}, users...))
		if err != nil {
			return nil, err
		}
		result = next
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *UsersRepo) CurrentUser(ctx context.Context) (accounts.PublicUser, bool, error) {
	var u accounts.PublicUser
	ok, err := kv.GetJSON(ctx, r.store, keyCurrentUser, &u)
	if err != nil || !ok || u.ID == "" {
		return accounts.PublicUser{}, false, err
	}
	return u, true, nil
}

func (r *UsersRepo) SetCurrentUser(ctx context.Context, u accounts.PublicUser) error {
	return kv.SetJSON(ctx, r.store, keyCurrentUser, u)
}

func (r *UsersRepo) ClearCurrentUser(ctx context.Context) error {
	return r.store.Delete(ctx, keyCurrentUser)
}
