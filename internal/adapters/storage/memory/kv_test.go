package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"medipal/internal/ports/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV_UpdateIsSerialized(t *testing.T) {
	ctx := context.Background()
	s := NewKV()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := kv.UpdateJSON(ctx, s, "counter", func(n int, _ bool) (int, error) {
				return n + 1, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var got int
	ok, err := kv.GetJSON(ctx, s, "counter", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50, got)
}

func TestKV_UpdateNoChangeDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	s := NewKV()

	err := s.Update(ctx, "k", func(_ []byte, _ bool) ([]byte, error) {
		return nil, kv.ErrNoChange
	})
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_UpdateErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	err := NewKV().Update(context.Background(), "k", func(_ []byte, _ bool) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPrefixed_IsolatesKeys(t *testing.T) {
	ctx := context.Background()
	inner := NewKV()
	a := kv.Prefixed(inner, "a_")

	require.NoError(t, a.Set(ctx, "users", []byte(`[]`)))

	_, ok, _ := inner.Get(ctx, "users")
	assert.False(t, ok)
	v, ok, _ := inner.Get(ctx, "a_users")
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(v))
}
