package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/lms-backend/internal/queue"
	"github.com/rs/zerolog"
)

const (
	NotificationPollTimeout = 1 * time.Second
	NotificationErrorPause  = 2 * time.Second
)

// Source yields queued outbox ids.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (uuid.UUID, error)
	Enqueue(ctx context.Context, outboxID uuid.UUID) error
}

// Deliverer sends one outbox entry. It returns only infrastructure failures.
type Deliverer interface {
	DeliverByID(ctx context.Context, id uuid.UUID) error
}

// NotificationWorker drains the notification queue one entry at a time.
type NotificationWorker struct {
	source    Source
	deliverer Deliverer
	log       zerolog.Logger
	pause     time.Duration
}

func NewNotificationWorker(source Source, deliverer Deliverer, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		source:    source,
		deliverer: deliverer,
		log:       log.With().Str("component", "notification_worker").Logger(),
		pause:     NotificationErrorPause,
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("NotificationWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("NotificationWorker stopped")
			return

		default:
			id, err := w.source.Pop(ctx, NotificationPollTimeout)
			if err != nil {
				if errors.Is(err, queue.ErrEmpty) || ctx.Err() != nil {
					continue
				}
				w.log.Error().Err(err).Msg("BLPop error")
				w.sleep(ctx)
				continue
			}

			w.handle(ctx, id)
		}
	}
}

func (w *NotificationWorker) handle(ctx context.Context, id uuid.UUID) {
	if err := w.deliverer.DeliverByID(ctx, id); err != nil {
		w.log.Error().Err(err).Str("outbox_id", id.String()).Msg("Delivery failed, requeueing")

		// Put it back so the entry is not lost with the popped item.
		if err := w.source.Enqueue(context.WithoutCancel(ctx), id); err != nil {
			w.log.Error().Err(err).Str("outbox_id", id.String()).Msg("Requeue failed; the retry sweep will pick it up")
		}
		w.sleep(ctx)
	}
}

func (w *NotificationWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pause):
	}
}
