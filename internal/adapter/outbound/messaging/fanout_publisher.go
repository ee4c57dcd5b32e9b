package messaging

import (
	"context"
	"errors"

	"signalscore/internal/port/outbound"
)

// FanoutPublisher forwards every session event to each of its publishers.
type FanoutPublisher []outbound.SessionEventPublisher

// PublishSessionEvent publishes to every publisher and joins their errors.
func (f FanoutPublisher) PublishSessionEvent(ctx context.Context, event outbound.SessionEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishSessionEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
