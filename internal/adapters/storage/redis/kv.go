package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/go-redis/redis/v8"

	"medipal/internal/ports/kv"
)

const maxUpdateRetries = 10

// KV usa Redis como backend. Update es optimista: WATCH + MULTI/EXEC,
// reintenta si otro cliente modificó la key en el medio.
type KV struct {
	client *goredis.Client
}

// Open parsea REDIS_URL y verifica la conexión.
func Open(ctx context.Context, url string) (*KV, error) {
	opt, err := goredis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &KV{client: client}, nil
}

func NewKV(client *goredis.Client) *KV {
	return &KV{client: client}
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key required")
	}
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *KV) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *KV) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key required")
	}

	txf := func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		exists := true
		if err != nil {
			if !errors.Is(err, goredis.Nil) {
				return err
			}
			exists = false
		}

		next, err := fn(cur, exists)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, kv.ErrNoChange):
			return nil
		case errors.Is(err, goredis.TxFailedErr):
			continue
		default:
			return err
		}
	}
	return kv.ErrConflict
}

func (s *KV) Close() error {
	return s.client.Close()
}

var _ kv.Store = (*KV)(nil)
