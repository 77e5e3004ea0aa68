package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoChange lo devuelve un UpdateFunc para abortar sin escribir.
	// Update lo traduce a nil.
	ErrNoChange = errors.New("kv: no change")

	// ErrConflict: otro writer ganó la carrera y se agotaron los reintentos.
	ErrConflict = errors.New("kv: concurrent update conflict")
)

// UpdateFunc recibe el valor actual (exists=false si la key no existe)
// y devuelve el nuevo valor a persistir.
type UpdateFunc func(current []byte, exists bool) ([]byte, error)

// Store es la capa key-value persistente. Los valores son documentos JSON.
// Update es un read-modify-write atómico respecto de otros Update sobre la misma key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// GetJSON decodifica la key en out. Devuelve false si no existe.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, b)
}

// UpdateJSON aplica fn sobre el valor decodificado dentro de un Update.
// Si la key no existe, fn recibe el zero value de T.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(v T, exists bool) (T, error)) error {
	return s.Update(ctx, key, func(current []byte, exists bool) ([]byte, error) {
		var v T
		if exists && len(current) > 0 {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("kv: decode %s: %w", key, err)
			}
		}
		next, err := fn(v, exists)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("kv: encode %s: %w", key, err)
		}
		return b, nil
	})
}

// Prefixed antepone un prefijo fijo a todas las keys (KV_PREFIX).
func Prefixed(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{inner: s, prefix: prefix}
}

type prefixed struct {
	inner  Store
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return p.inner.Update(ctx, p.prefix+key, fn)
}
