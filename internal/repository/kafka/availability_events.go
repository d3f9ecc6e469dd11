package kafka

import (
	"context"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

type AvailabilityEventsKafka struct {
	p *Producer
}

func NewAvailabilityEventsKafka(p *Producer) *AvailabilityEventsKafka {
	return &AvailabilityEventsKafka{p: p}
}

var _ slot.Events = (*AvailabilityEventsKafka)(nil)

func (e *AvailabilityEventsKafka) PublishAvailabilityChanged(ctx context.Context, ev slot.AvailabilityChanged) error {
	return e.p.PublishJSON(ctx, []byte(ev.RunID), ev)
}
