package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

// ContentHash is the idempotence key of a rendered message. Stability is
// all that matters here; the digest is compared against the last
// dispatched one.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

type DispatchResult struct {
	Hash   string
	Sent   bool
	Chunks int
}

// Dispatcher sends a rendered message at most once per content change:
// hash the text, compare with the hash of the last dispatched message,
// and only on mismatch chunk and send.
type Dispatcher struct {
	log   *zap.Logger
	sink  slot.Sink
	limit int
}

func NewDispatcher(log *zap.Logger, sink slot.Sink, chunkLimit int) *Dispatcher {
	if log == nil {
		log = zap.L()
	}
	if chunkLimit <= 0 {
		chunkLimit = 4000
	}
	return &Dispatcher{log: log, sink: sink, limit: chunkLimit}
}

func (d *Dispatcher) Dispatch(ctx context.Context, text, lastHash string) (DispatchResult, error) {
	h := ContentHash(text)
	if h == lastHash {
		d.log.Info("no change in availability; not sending")
		return DispatchResult{Hash: h}, nil
	}

	chunks := splitChunks(text, d.limit)
	for i, body := range chunks {
		msg := body
		if i > 0 {
			msg = fmt.Sprintf("📱 *Part %d*\n\n%s", i+1, body)
		}
		if err := d.sink.Send(ctx, msg); err != nil {
			return DispatchResult{Hash: h, Chunks: i}, fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	d.log.Info("notification dispatched", zap.Int("chunks", len(chunks)), zap.Int("text_len", len(text)))
	return DispatchResult{Hash: h, Sent: true, Chunks: len(chunks)}, nil
}

// partHeaderReserve leaves room for the "Part N" prefix so no message,
// header included, exceeds the limit.
const partHeaderReserve = 24

// splitChunks splits at line boundaries only, never mid-line.
// Concatenating the chunk bodies reproduces the original line sequence.
func splitChunks(text string, limit int) []string {
	effective := limit - partHeaderReserve
	if effective < 1 {
		effective = limit
	}
	if len(text) <= effective {
		return []string{text}
	}

	var (
		chunks []string
		cur    []string
		curLen int
	)
	for _, line := range strings.Split(text, "\n") {
		lineLen := len(line) + 1
		if curLen+lineLen > effective && len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur, curLen = nil, 0
		}
		cur = append(cur, line)
		curLen += lineLen
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, "\n"))
	}
	return chunks
}
