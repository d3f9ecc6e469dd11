package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	config "github.com/courtwatch/courtwatch/internal/config/watcher"
	"github.com/courtwatch/courtwatch/internal/domain/slot"
	"github.com/courtwatch/courtwatch/internal/notify/telegram"
	"github.com/courtwatch/courtwatch/internal/obs"
	kafkaRepo "github.com/courtwatch/courtwatch/internal/repository/kafka"
	pg "github.com/courtwatch/courtwatch/internal/repository/postgres"
	filestate "github.com/courtwatch/courtwatch/internal/repository/state"
	"github.com/courtwatch/courtwatch/internal/services/watcher"
	"github.com/courtwatch/courtwatch/internal/source/mbpj"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func main() {
	// init
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfgPath := os.Getenv("WATCHER_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/watcher.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if len(cfg.Locations) == 0 {
		log.Fatal("no locations configured")
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting watcher",
		zap.Int("locations", len(cfg.Locations)),
		zap.Int("lookahead_days", cfg.Watch.LookaheadDays),
		zap.Duration("tick", cfg.Watch.Tick),
		zap.String("state_backend", cfg.State.Backend),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	} else {
		defer func() { _ = otelCloser.Shutdown(context.Background()) }()
	}

	// state store
	var (
		store  slot.StateStore
		health = func(context.Context) error { return nil }
	)
	switch cfg.State.Backend {
	case "postgres":
		db, err := pg.New(ctx, cfg.State.DB)
		if err != nil {
			l.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		store = pg.NewStateRepo(db, cfg.State.Watcher)
		health = func(hctx context.Context) error { return db.Pool.Ping(hctx) }
		l.Info("db connected")
	default:
		fs, err := filestate.NewFileStore(cfg.State.Dir, l)
		if err != nil {
			l.Fatal("state dir", zap.Error(err))
		}
		store = fs
	}

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, health, l)

	// kafka (optional)
	var events slot.Events
	if cfg.Kafka.Enable {
		prod := kafkaRepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(l)
		defer func() { _ = prod.Close() }()
		events = kafkaRepo.NewAvailabilityEventsKafka(prod)
		l.Info("kafka producer initialized",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// wiring
	facilities := make(map[int]mbpj.Facility, len(cfg.Locations))
	ignored := make(map[int][]int, len(cfg.Locations))
	locations := make([]watcher.Location, 0, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		facilities[loc.ID] = mbpj.Facility{SiteID: loc.SiteID, TypeID: loc.TypeID}
		ignored[loc.ID] = loc.IgnoredCourts
		locations = append(locations, watcher.Location{ID: loc.ID, Name: loc.Name, DayOffset: loc.DayOffset})
	}
	locationOrder := make([]string, 0, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		locationOrder = append(locationOrder, loc.Name)
	}

	source := mbpj.New(mbpj.Config{
		URL:        cfg.Source.URL,
		ActivityID: cfg.Source.ActivityID,
		Timeout:    cfg.Source.Timeout,
		Retries:    cfg.Source.Retries,
		RetryDelay: cfg.Source.RetryDelay,
		UserAgent:  "courtwatch/1.0",
	}, facilities, l)

	sink := telegram.New(telegram.Config{
		BaseURL:      cfg.Telegram.BaseURL,
		Token:        cfg.Telegram.Token,
		ChatID:       cfg.Telegram.ChatID,
		ThreadID:     cfg.Telegram.ThreadID,
		Timeout:      cfg.Telegram.Timeout,
		SendInterval: cfg.Telegram.SendInterval,
		Retries:      cfg.Telegram.Retries,
		RetryDelay:   cfg.Telegram.RetryDelay,
	}).WithLogger(l)

	uc := &watcher.Usecase{
		Log:    l,
		Source: source,
		Store:  store,
		Events: events,
		Clock:  systemClock{},
		Filter: watcher.NewFilter(watcher.Window{
			StartHour: cfg.Watch.WindowStartHour,
			EndHour:   cfg.Watch.WindowEndHour,
		}, ignored),
		Composer:   watcher.NewComposer(cfg.Notify.Title, cfg.Notify.BookingURL, locationOrder),
		Dispatcher: watcher.NewDispatcher(l, sink, cfg.Notify.ChunkLimit),
		Locations:  locations,
		Lookahead:  cfg.Watch.LookaheadDays,
	}
	runner := watcher.New(l, uc, cfg.Watch.Tick)

	// run
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("watcher started")

	// loop
	select {
	case <-ctx.Done():
		l.Info("shutdown signal")
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
