package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

var _ slot.StateStore = (*StateRepo)(nil)

// StateRepo keeps ObservedState in a single watch_state row per watcher
// name. The run-lock is a postgres advisory lock held on a dedicated
// connection for the duration of a pass.
type StateRepo struct {
	db      *DB
	watcher string
}

func NewStateRepo(db *DB, watcher string) *StateRepo {
	return &StateRepo{db: db, watcher: watcher}
}

const (
	qStateLoad = `
SELECT slot_keys, last_hash
FROM watch_state
WHERE watcher = $1;
`

	qStateUpsert = `
INSERT INTO watch_state (watcher, slot_keys, last_hash, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (watcher) DO UPDATE
SET slot_keys = EXCLUDED.slot_keys,
    last_hash = EXCLUDED.last_hash,
    updated_at = now();
`
)

func (r *StateRepo) Load(ctx context.Context) (slot.ObservedState, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		raw  []byte
		hash string
	)
	err := r.db.Pool.QueryRow(ctx, qStateLoad, r.watcher).Scan(&raw, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return slot.EmptyState(), nil
	}
	if err != nil {
		return slot.EmptyState(), fmt.Errorf("load watch state: %w", err)
	}

	var keys []slot.Key
	if err := json.Unmarshal(raw, &keys); err != nil {
		// Corrupt baseline is an empty baseline; everything current
		// will read as new.
		return slot.EmptyState(), nil
	}
	return slot.ObservedState{Keys: slot.NewKeySet(keys...), LastHash: hash}, nil
}

func (r *StateRepo) Commit(ctx context.Context, st slot.ObservedState) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	raw, err := json.Marshal(st.Keys.Sorted())
	if err != nil {
		return fmt.Errorf("marshal slot keys: %w", err)
	}
	if _, err := r.db.Pool.Exec(ctx, qStateUpsert, r.watcher, raw, st.LastHash); err != nil {
		return fmt.Errorf("commit watch state: %w", err)
	}
	return nil
}

func (r *StateRepo) Lock(ctx context.Context) (func(), error) {
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock conn: %w", err)
	}

	var got bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, r.watcher).Scan(&got); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	if !got {
		conn.Release()
		return nil, slot.ErrLocked
	}
	return releaseFunc(conn, r.watcher), nil
}

func releaseFunc(conn *pgxpool.Conn, watcher string) func() {
	return func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, watcher)
		conn.Release()
	}
}
