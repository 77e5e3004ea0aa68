package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"medipal/internal/ports/kv"
)

// KV guarda cada key como una fila jsonb en kv_entries.
// Update toma un advisory lock por key dentro de la transacción, así también
// se serializan los Update sobre keys que todavía no existen.
type KV struct {
	db  *sql.DB
	now func() time.Time
}

func NewKV(db *sql.DB) *KV {
	return &KV{db: db, now: time.Now}
}

const upsertSQL = `
	INSERT INTO kv_entries (key, value, updated_at)
	VALUES ($1, $2::jsonb, $3)
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, nil
	}

	var v []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key required")
	}
	_, err := r.db.ExecContext(ctx, upsertSQL, key, string(value), r.now())
	return err
}

func (r *KV) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	return err
}

func (r *KV) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return err
	}

	var cur []byte
	exists := true
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&cur)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		exists = false
	}

	next, err := fn(cur, exists)
	if err != nil {
		if errors.Is(err, kv.ErrNoChange) {
			return nil
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, upsertSQL, key, string(next), r.now()); err != nil {
		return err
	}
	return tx.Commit()
}

var _ kv.Store = (*KV)(nil)
