// Package mbpj fetches raw availability labels from the council booking
// API. One request covers one (facility, calendar day) pair; the response
// lists every slot with a booked flag.
package mbpj

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
	"github.com/courtwatch/courtwatch/internal/obs/retry"
)

type Config struct {
	URL        string
	ActivityID int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	UserAgent  string
}

// Facility carries the site/type ids the API wants for one location.
type Facility struct {
	SiteID int
	TypeID int
}

type Client struct {
	httpc      *http.Client
	cfg        Config
	facilities map[int]Facility // keyed by location id
	log        *zap.Logger
}

var _ slot.Source = (*Client)(nil)

func New(cfg Config, facilities map[int]Facility, log *zap.Logger) *Client {
	if log == nil {
		log = zap.L()
	}
	return &Client{
		httpc:      &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		facilities: facilities,
		log:        log.With(zap.String("component", "source.mbpj")),
	}
}

type query struct {
	ETID       int    `json:"ETID"`
	FSiteID    int    `json:"FSITEID"`
	FTypeID    int    `json:"FTYPEID"`
	FItemID    int    `json:"FITEMID"`
	CheckIn    string `json:"CKIDATE"`
	CheckOut   string `json:"CKODATE"`
	StartTime  string `json:"STARTTIME"`
	EndTime    string `json:"ENDTIME"`
	SearchMode string `json:"SEARCHMODE"`
}

type apiSlot struct {
	Name      string `json:"NAME"`
	StartTime string `json:"STARTTIME"` // 24h "HH:MM"
	EndTime   string `json:"ENDTIME"`
	IsBooked  int    `json:"ISBOOKED"`
}

// Fetch returns the raw labels for every unbooked slot at the location on
// the given day, in the "<name> H:MM AM - H:MM PM" shape the normalizer
// understands. Transient failures are retried a fixed number of times
// with a constant delay; a session rejection is surfaced as ErrSession
// and never retried.
func (c *Client) Fetch(ctx context.Context, locationID int, day time.Time) ([]string, error) {
	fac, ok := c.facilities[locationID]
	if !ok {
		return nil, fmt.Errorf("location %d: no facility mapping", locationID)
	}

	var labels []string
	err := retry.Do(ctx, func() error {
		var err error
		labels, err = c.fetchOnce(ctx, fac, day)
		return err
	}, retry.Policy{
		Name:      "source.fetch",
		Attempts:  c.cfg.Retries + 1,
		Backoff:   retry.Fixed{Delay: c.cfg.RetryDelay},
		Retryable: func(err error) bool { return !errors.Is(err, slot.ErrSession) },
		OnAttempt: func(attempt int, err error) {
			c.log.Warn("fetch attempt failed",
				zap.Int("location_id", locationID),
				zap.String("date", day.Format("2006-01-02")),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		},
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

func (c *Client) fetchOnce(ctx context.Context, fac Facility, day time.Time) ([]string, error) {
	dateStr := day.Format("2006-01-02")
	body, err := json.Marshal(query{
		ETID:       c.cfg.ActivityID,
		FSiteID:    fac.SiteID,
		FTypeID:    fac.TypeID,
		CheckIn:    dateStr,
		CheckOut:   dateStr,
		StartTime:  "07:00",
		EndTime:    "23:00",
		SearchMode: "ONLINE",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post availability: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, slot.ErrSession
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("availability api: status %d", resp.StatusCode)
	}

	var slots []apiSlot
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&slots); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}

	labels := make([]string, 0, len(slots))
	for _, s := range slots {
		if s.IsBooked != 0 {
			continue
		}
		start, err := to12h(s.StartTime)
		if err != nil {
			c.log.Debug("skip slot with bad start time", zap.String("name", s.Name), zap.String("start", s.StartTime))
			continue
		}
		end, err := to12h(s.EndTime)
		if err != nil {
			c.log.Debug("skip slot with bad end time", zap.String("name", s.Name), zap.String("end", s.EndTime))
			continue
		}
		labels = append(labels, fmt.Sprintf("%s %s - %s", s.Name, start, end))
	}
	return labels, nil
}

func to12h(hhmm string) (string, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", err
	}
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	mer := "AM"
	if t.Hour() >= 12 {
		mer = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute(), mer), nil
}
