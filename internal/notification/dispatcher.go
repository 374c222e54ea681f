package notification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

// Dispatcher implements appointment.Notifier: every event lands in the
// recipient's inbox and, when a publisher is configured, on the queue.
type Dispatcher struct {
	store     Store
	publisher Publisher
	log       *zap.Logger
}

// NewDispatcher builds a dispatcher. publisher may be nil.
func NewDispatcher(store Store, publisher Publisher, log *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, publisher: publisher, log: log}
}

var _ appointment.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) Notify(ctx context.Context, ev appointment.NotificationEvent) error {
	n := fromEvent(ev)

	var errs []error
	if err := d.store.Insert(ctx, n); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, ev); err != nil {
			d.log.Warn("notification publish failed",
				zap.String("notification_id", n.ID.String()),
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("publish: %w", err))
		}
	}

	return errors.Join(errs...)
}
