package kvrepo

import (
	"context"

	"medipal/internal/domain/preferences"
	"medipal/internal/ports/kv"
)

const keyThemeMode = "themeMode"

type PreferencesRepo struct {
	store kv.Store
}

func NewPreferencesRepo(store kv.Store) *PreferencesRepo {
	return &PreferencesRepo{store: store}
}

func (r *PreferencesRepo) ThemeMode(ctx context.Context) (preferences.Mode, bool, error) {
	var m preferences.Mode
	ok, err := kv.GetJSON(ctx, r.store, keyThemeMode, &m)
	if err != nil || !ok {
		return "", false, err
	}
	return m, true, nil
}

func (r *PreferencesRepo) SaveThemeMode(ctx context.Context, m preferences.Mode) error {
	return kv.SetJSON(ctx, r.store, keyThemeMode, m)
}

// UpdateThemeMode hace el toggle dentro de un Update transaccional.
func (r *PreferencesRepo) UpdateThemeMode(ctx context.Context, fn func(current preferences.Mode, exists bool) (preferences.Mode, error)) (preferences.Mode, error) {
	var result preferences.Mode
	err := kv.UpdateJSON(ctx, r.store, keyThemeMode, func(cur preferences.Mode, exists bool) (preferences.Mode, error) {
		next, err := fn(cur, exists)
		if err != nil {
			return "", err
		}
		result = next
		return next, nil
	})
	return result, err
}
