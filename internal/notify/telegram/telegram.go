// Package telegram is the notification sink: Bot API sendMessage into a
// chat (optionally a forum thread), MarkdownV2 parse mode. Sends are
// paced by a rate limiter so chunked messages respect the API limits.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
	"github.com/courtwatch/courtwatch/internal/obs/retry"
)

// errRejected marks a 4xx response (other than 429): the request itself
// is bad and retrying cannot help.
var errRejected = errors.New("request rejected")

type Config struct {
	BaseURL      string
	Token        string
	ChatID       string
	ThreadID     int
	Timeout      time.Duration
	SendInterval time.Duration
	Retries      int
	RetryDelay   time.Duration
}

type Sender struct {
	httpc   *http.Client
	cfg     Config
	limiter *rate.Limiter
	log     *zap.Logger
}

var _ slot.Sink = (*Sender)(nil)

func New(cfg Config) *Sender {
	interval := cfg.SendInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Sender{
		httpc:   &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     zap.L().With(zap.String("component", "notify.telegram")),
	}
}

func (s *Sender) WithLogger(l *zap.Logger) *Sender {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = l.With(zap.String("component", "notify.telegram"))
	return &cp
}

// Send delivers one message. Transient failures are retried a fixed
// number of times with a constant delay; a 4xx rejection is final.
func (s *Sender) Send(ctx context.Context, text string) error {
	return retry.Do(ctx, func() error {
		return s.sendOnce(ctx, text)
	}, retry.Policy{
		Name:      "notify.send",
		Attempts:  s.cfg.Retries + 1,
		Backoff:   retry.Fixed{Delay: s.cfg.RetryDelay},
		Retryable: func(err error) bool { return !errors.Is(err, errRejected) },
		OnAttempt: func(attempt int, err error) {
			s.log.Warn("send attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		},
	})
}

func (s *Sender) sendOnce(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("chat_id", s.cfg.ChatID)
	form.Set("text", text)
	form.Set("parse_mode", "MarkdownV2")
	if s.cfg.ThreadID > 0 {
		form.Set("message_thread_id", strconv.Itoa(s.cfg.ThreadID))
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := s.httpc.Do(req)
	if err != nil {
		s.log.Error("sendMessage failed", zap.Error(err))
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		s.log.Error("sendMessage rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("telegram send: status %d: %w", resp.StatusCode, errRejected)
		}
		return fmt.Errorf("telegram send: status %d", resp.StatusCode)
	}

	s.log.Info("message sent",
		zap.Int("text_len", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
