package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
	"github.com/courtwatch/courtwatch/internal/slotparse"
)

// Location is one watched site in declared order.
type Location struct {
	ID        int
	Name      string
	DayOffset int
}

type Stats struct {
	Fetched     int
	Kept        int
	FetchErrors int
	ParseErrors int
	New         int
	Removed     int
	Dispatched  bool
	Chunks      int
}

// Usecase is one full pass: fetch → normalize → filter → diff → compose
// → dispatch → commit. Single-threaded by design; the state lock rejects
// overlapping passes.
type Usecase struct {
	Log        *zap.Logger
	Source     slot.Source
	Store      slot.StateStore
	Events     slot.Events // optional
	Clock      slot.Clock
	Filter     *Filter
	Composer   *Composer
	Dispatcher *Dispatcher
	Locations  []Location
	Lookahead  int
}

func (u *Usecase) RunOnce(ctx context.Context) (Stats, error) {
	runID := uuid.NewString()
	log := u.Log.With(zap.String("run_id", runID))

	tr := otel.Tracer("watcher.uc")
	ctx, span := tr.Start(ctx, "watcher.pass",
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
	defer span.End()

	var st Stats

	release, err := u.Store.Lock(ctx)
	if err != nil {
		if errors.Is(err, slot.ErrLocked) {
			log.Warn("previous pass still holds the state lock; skipping")
			return st, err
		}
		return st, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	now := u.Clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var records []slot.Record
	current := slot.KeySet{}

	for _, loc := range u.Locations {
		for i := 0; i < u.Lookahead; i++ {
			day := today.AddDate(0, 0, i+loc.DayOffset)

			labels, err := u.Source.Fetch(ctx, loc.ID, day)
			if err != nil {
				if errors.Is(err, slot.ErrSession) {
					// Auth failures abort the whole pass before
					// any state mutation.
					span.RecordError(err)
					return st, fmt.Errorf("location %q: %w", loc.Name, err)
				}
				st.FetchErrors++
				log.Warn("fetch failed; skipping date",
					zap.Int("location_id", loc.ID),
					zap.String("date", day.Format(slot.DateLayout)),
					zap.Error(err),
				)
				continue
			}
			st.Fetched += len(labels)

			for _, label := range labels {
				rec, perr := slotparse.Parse(label, loc.ID, loc.Name, day)
				if perr != nil {
					st.ParseErrors++
					log.Debug("drop unparsable slot label", zap.String("label", label), zap.Error(perr))
					continue
				}
				if !u.Filter.Keep(rec) {
					continue
				}
				records = append(records, rec)
				current.Add(rec.Key())
				st.Kept++
			}
		}
	}

	if len(records) == 0 {
		log.Info("no slots inside the notify window; nothing to report")
		return st, nil
	}

	prev, err := u.Store.Load(ctx)
	if err != nil {
		log.Warn("state load failed; starting from empty baseline", zap.Error(err))
		prev = slot.EmptyState()
	}

	d := ComputeDiff(current, prev.Keys)
	st.New, st.Removed = len(d.New), len(d.Removed)
	log.Info("availability diffed",
		zap.Int("total", len(current)),
		zap.Int("new", st.New),
		zap.Int("removed", st.Removed),
	)

	// An empty diff means the current set matches the last dispatched
	// one exactly; re-rendering would drop the "new" markers, change
	// the hash, and re-send an otherwise identical message.
	if st.New == 0 && st.Removed == 0 {
		log.Info("availability unchanged; nothing to dispatch")
		return st, nil
	}

	text := u.Composer.Render(records, d)

	res, err := u.Dispatcher.Dispatch(ctx, text, prev.LastHash)
	if err != nil {
		// No commit on a failed send: the next pass re-derives the
		// same diff against the stale baseline and retries.
		span.RecordError(err)
		return st, fmt.Errorf("dispatch: %w", err)
	}
	if !res.Sent {
		return st, nil
	}
	st.Dispatched, st.Chunks = true, res.Chunks

	if err := u.Store.Commit(ctx, slot.ObservedState{Keys: current, LastHash: res.Hash}); err != nil {
		span.RecordError(err)
		return st, fmt.Errorf("commit state: %w", err)
	}

	if u.Events != nil {
		ev := slot.AvailabilityChanged{
			RunID:   runID,
			At:      now.UTC(),
			Total:   len(current),
			New:     st.New,
			Removed: st.Removed,
			Hash:    res.Hash,
		}
		if err := u.Events.PublishAvailabilityChanged(ctx, ev); err != nil {
			log.Warn("publish availability event", zap.Error(err))
		}
	}

	span.SetAttributes(
		attribute.Int("slots.total", len(current)),
		attribute.Int("slots.new", st.New),
		attribute.Int("slots.removed", st.Removed),
		attribute.Int("dispatch.chunks", st.Chunks),
	)
	return st, nil
}
