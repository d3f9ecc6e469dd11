package watcher_config

import (
	"time"

	"github.com/courtwatch/courtwatch/internal/obs"
	pginfra "github.com/courtwatch/courtwatch/internal/repository/postgres"
)

// Location is one facility site to watch. Order in the config file is the
// order locations appear in the rendered message.
type Location struct {
	ID            int    `mapstructure:"id"`
	Name          string `mapstructure:"name"`
	SiteID        int    `mapstructure:"site_id"`
	TypeID        int    `mapstructure:"type_id"`
	DayOffset     int    `mapstructure:"day_offset"`
	IgnoredCourts []int  `mapstructure:"ignored_courts"`
}

// Watch bounds the notify window and the date range scanned each pass.
// The two source systems disagreed on the window lower bound (19 vs 20),
// so it is configuration, not a constant.
type Watch struct {
	WindowStartHour int           `mapstructure:"window_start_hour"`
	WindowEndHour   int           `mapstructure:"window_end_hour"`
	LookaheadDays   int           `mapstructure:"lookahead_days"`
	Tick            time.Duration `mapstructure:"tick"`
}

type Source struct {
	URL        string        `mapstructure:"url"`
	ActivityID int           `mapstructure:"activity_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type Telegram struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	ChatID       string        `mapstructure:"chat_id"`
	ThreadID     int           `mapstructure:"thread_id"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SendInterval time.Duration `mapstructure:"send_interval"`
	Retries      int           `mapstructure:"retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
}

type Notify struct {
	Title      string `mapstructure:"title"`
	BookingURL string `mapstructure:"booking_url"`
	ChunkLimit int    `mapstructure:"chunk_limit"`
}

type State struct {
	Backend string         `mapstructure:"backend"` // "file" or "postgres"
	Dir     string         `mapstructure:"dir"`
	Watcher string         `mapstructure:"watcher"` // row key for the postgres backend
	DB      pginfra.Config `mapstructure:"db"`
}

type Kafka struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
}

func (l Log) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: l.Level, Pretty: l.Pretty, App: "courtwatch", Env: l.Env}
}

type OTEL struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"otlp_endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (o OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      o.Enable,
		Endpoint:    o.Endpoint,
		ServiceName: o.ServiceName,
		SampleRatio: o.SampleRatio,
	}
}

type Config struct {
	Locations []Location `mapstructure:"locations"`
	Watch     Watch      `mapstructure:"watch"`
	Source    Source     `mapstructure:"source"`
	Telegram  Telegram   `mapstructure:"telegram"`
	Notify    Notify     `mapstructure:"notify"`
	State     State      `mapstructure:"state"`
	Kafka     Kafka      `mapstructure:"kafka"`
	Server    Server     `mapstructure:"server"`
	OTEL      OTEL       `mapstructure:"otel"`
	Log       Log        `mapstructure:"log"`
}
