package watcher

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

// Runner drives periodic passes. A non-positive tick means one-shot:
// a single pass, then return.
type Runner struct {
	Log  *zap.Logger
	UC   *Usecase
	Tick time.Duration

	mPasses     prometheus.Counter
	mSlots      prometheus.Counter
	mNew        prometheus.Counter
	mRemoved    prometheus.Counter
	mDispatched prometheus.Counter
	mFetchErr   prometheus.Counter
	mParseErr   prometheus.Counter
	mErr        prometheus.Counter
	mPassDur    prometheus.Histogram
}

func New(log *zap.Logger, uc *Usecase, tick time.Duration) *Runner {
	return &Runner{
		Log:  log,
		UC:   uc,
		Tick: tick,
		mPasses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_passes_total", Help: "Completed watcher passes",
		}),
		mSlots: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_slots_kept_total", Help: "Slots kept after filtering",
		}),
		mNew: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_new_slots_total", Help: "Newly appeared slot keys",
		}),
		mRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_removed_slots_total", Help: "Vanished slot keys",
		}),
		mDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_dispatches_total", Help: "Notifications dispatched",
		}),
		mFetchErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_fetch_errors_total", Help: "Skipped (location,date) fetches",
		}),
		mParseErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_parse_errors_total", Help: "Dropped unparsable slot labels",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watcher_errors_total", Help: "Pass-level errors",
		}),
		mPassDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "watcher_pass_duration_seconds", Help: "Full pass duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) pass(ctx context.Context) {
	start := time.Now()
	st, err := r.UC.RunOnce(ctx)

	r.mPasses.Inc()
	r.mSlots.Add(float64(st.Kept))
	r.mNew.Add(float64(st.New))
	r.mRemoved.Add(float64(st.Removed))
	r.mFetchErr.Add(float64(st.FetchErrors))
	r.mParseErr.Add(float64(st.ParseErrors))
	if st.Dispatched {
		r.mDispatched.Inc()
	}
	r.mPassDur.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, context.Canceled):
	case errors.Is(err, slot.ErrLocked):
		r.mErr.Inc()
	case err != nil:
		r.mErr.Inc()
		r.Log.Warn("pass error", zap.Error(err))
	default:
		r.Log.Debug("pass done",
			zap.Int("kept", st.Kept),
			zap.Int("new", st.New),
			zap.Int("removed", st.Removed),
			zap.Bool("dispatched", st.Dispatched),
		)
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.pass(ctx)
	if r.Tick <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}
