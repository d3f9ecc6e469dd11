//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
	pg "github.com/courtwatch/courtwatch/internal/repository/postgres"
)

func newRepo(t *testing.T, watcher string) *pg.StateRepo {
	t.Helper()
	cfg := LoadCfg()

	db := DBOpen(t, cfg.DBDSN)
	EnsureSchema(t, db)
	_ = db.Close()

	pool, err := pg.New(context.Background(), pg.Config{
		DSN:          cfg.DBDSN,
		MaxConns:     4,
		QueryTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("pgx connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pg.NewStateRepo(pool, watcher)
}

func randWatcher() string {
	return fmt.Sprintf("it-%d", rand.Int63())
}

func TestStateRepo_EmptyThenRoundTrip(t *testing.T) {
	repo := newRepo(t, randWatcher())
	ctx := context.Background()

	st, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(st.Keys) != 0 || st.LastHash != "" {
		t.Fatalf("expected empty baseline, got %+v", st)
	}

	in := slot.ObservedState{
		Keys:     slot.NewKeySet("B - 02/01/2025 - Court 2 8:00 PM - 9:00 PM", "A - 01/01/2025 - Court 1 7:00 PM - 8:00 PM"),
		LastHash: "cafebabe",
	}
	if err := repo.Commit(ctx, in); err != nil {
		t.Fatalf("commit: %v", err)
	}

	out, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.LastHash != "cafebabe" {
		t.Fatalf("hash mismatch: %q", out.LastHash)
	}
	got := out.Keys.Sorted()
	if len(got) != 2 || got[0] != "A - 01/01/2025 - Court 1 7:00 PM - 8:00 PM" {
		t.Fatalf("keys mismatch: %v", got)
	}
}

func TestStateRepo_CommitOverwrites(t *testing.T) {
	repo := newRepo(t, randWatcher())
	ctx := context.Background()

	if err := repo.Commit(ctx, slot.ObservedState{Keys: slot.NewKeySet("a"), LastHash: "h1"}); err != nil {
		t.Fatalf("commit 1: %v", err)
	}
	if err := repo.Commit(ctx, slot.ObservedState{Keys: slot.NewKeySet("b"), LastHash: "h2"}); err != nil {
		t.Fatalf("commit 2: %v", err)
	}

	out, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.LastHash != "h2" || len(out.Keys) != 1 || !out.Keys.Has("b") {
		t.Fatalf("unexpected state: %+v", out)
	}
}

func TestStateRepo_AdvisoryLock(t *testing.T) {
	name := randWatcher()
	repo := newRepo(t, name)
	repo2 := newRepo(t, name)
	ctx := context.Background()

	release, err := repo.Lock(ctx)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := repo2.Lock(ctx); !errors.Is(err, slot.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	release()
	release2, err := repo2.Lock(ctx)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	release2()
}
