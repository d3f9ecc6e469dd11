package slot

import (
	"context"
	"errors"
	"time"
)

// ErrSession marks an auth/session rejection from the availability site.
// Unlike transient fetch failures it aborts the whole pass before any
// state mutation.
var ErrSession = errors.New("session rejected by availability site")

// ErrLocked is returned by StateStore.Lock when another run holds the
// state lock.
var ErrLocked = errors.New("another run holds the state lock")

// Source returns the raw availability labels a site publishes for one
// location on one calendar day. An empty slice means no availability,
// not an error.
type Source interface {
	Fetch(ctx context.Context, locationID int, day time.Time) ([]string, error)
}

// StateStore persists ObservedState between runs. Load treats a missing
// or unreadable baseline as empty.
type StateStore interface {
	Load(ctx context.Context) (ObservedState, error)
	Commit(ctx context.Context, st ObservedState) error
	// Lock guards the persisted state against overlapping runs. The
	// returned release must be called when the pass finishes.
	Lock(ctx context.Context) (release func(), err error)
}

// Sink delivers one already-chunked message to the notification channel.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// AvailabilityChanged is the event fanned out after a dispatched change.
type AvailabilityChanged struct {
	RunID   string    `json:"run_id"`
	At      time.Time `json:"at"`
	Total   int       `json:"total"`
	New     int       `json:"new"`
	Removed int       `json:"removed"`
	Hash    string    `json:"hash"`
}

type Events interface {
	PublishAvailabilityChanged(ctx context.Context, ev AvailabilityChanged) error
}

type Clock interface {
	Now() time.Time
}
