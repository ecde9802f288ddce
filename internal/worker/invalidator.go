// Package worker consumes attendance events and keeps derived data fresh.
package worker

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"rollbook/internal/attendance"
	"rollbook/internal/calendar"
	"rollbook/internal/queue"
)

// Consumer is the receiving side of a queue.
type Consumer interface {
	Consume(ctx context.Context) (<-chan queue.Event, error)
}

// Invalidator drops cached month summaries when attendance of that month changes.
type Invalidator struct {
	events Consumer
	cache  attendance.SummaryCache
	log    zerolog.Logger
}

// NewInvalidator creates an Invalidator.
func NewInvalidator(events Consumer, cache attendance.SummaryCache, log zerolog.Logger) *Invalidator {
	return &Invalidator{events: events, cache: cache, log: log.With().Str("component", "invalidator").Logger()}
}

// Run processes events until ctx is done or the stream closes.
func (w *Invalidator) Run(ctx context.Context) error {
	events, err := w.events.Consume(ctx)
	if err != nil {
		return errors.Wrap(err, "consume events")
	}
	w.log.Info().Msg("waiting for events")
	for evt := range events {
		w.handle(ctx, evt)
	}
	w.log.Info().Msg("stopped")
	return nil
}

func (w *Invalidator) handle(ctx context.Context, evt queue.Event) {
	if evt.Type != queue.TypeMarked {
		w.log.Debug().Str("type", evt.Type).Msg("ignoring event")
		return
	}
	month, err := calendar.ParseMonth(evt.Month)
	if err != nil {
		w.log.Warn().Err(err).Msg("dropping event with bad month")
		return
	}
	if err := w.cache.InvalidateMonth(ctx, month); err != nil {
		w.log.Error().Err(err).Str("month", evt.Month).Msg("invalidate summary cache failed")
		return
	}
	w.log.Debug().Str("month", evt.Month).Str("date", evt.Date).Msg("summary cache invalidated")
}
