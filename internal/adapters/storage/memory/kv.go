package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"medipal/internal/ports/kv"
)

// KV es el backend in-memory (dev/tests). Update se serializa con el mutex.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = clone(value)
	return nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *KV) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[key]
	next, err := fn(clone(cur), ok)
	if err != nil {
		if errors.Is(err, kv.ErrNoChange) {
			return nil
		}
		return err
	}
	s.data[key] = clone(next)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ kv.Store = (*KV)(nil)
