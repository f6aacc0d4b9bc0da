package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/lms-backend/internal/config"
	"github.com/learnhub/lms-backend/internal/mailer"
	"github.com/learnhub/lms-backend/internal/metrics"
	"github.com/learnhub/lms-backend/internal/model"
	"github.com/learnhub/lms-backend/internal/repository"
	"github.com/rs/zerolog"
)

const (
	sendTimeout     = 15 * time.Second
	baseBackoff     = time.Minute
	maxBackoff      = time.Hour
	dueBatchSize    = 100
	inlineSendGrace = time.Minute

	// deliveryLease covers one send; a crashed worker's entry is due again after it.
	deliveryLease = time.Minute
	// queueLease is how long a swept entry counts as queued. It only matters
	// when Redis loses the queue item.
	queueLease = 10 * time.Minute
)

// NotificationService delivers outbox entries through the mailer.
// A failed send is recorded and retried; it never fails the caller's transition.
type NotificationService struct {
	outbox       OutboxStore
	mailer       mailer.Mailer
	queue        NotificationQueue
	dashboardURL string
	maxAttempts  int
	log          zerolog.Logger
	now          func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	outbox OutboxStore,
	m mailer.Mailer,
	queue NotificationQueue,
	certCfg config.CertificateConfig,
	notifyCfg config.NotificationConfig,
	log zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		outbox:       outbox,
		mailer:       m,
		queue:        queue,
		dashboardURL: certCfg.FrontendURL,
		maxAttempts:  notifyCfg.MaxAttempts,
		log:          log.With().Str("component", "notification_service").Str("provider", m.Name()).Logger(),
		now:          time.Now,
	}
}

// NewCertificateEntry builds a pending outbox row for an approval email.
// It becomes due for the retry sweep only after the inline send has had its chance.
func (s *NotificationService) NewCertificateEntry(payload model.CertificateEmail) *model.OutboxEntry {
	return &model.OutboxEntry{
		ID:            uuid.New(),
		Kind:          model.NotificationKindCertificateApproved,
		Recipient:     payload.StudentEmail,
		Payload:       payload,
		Status:        model.OutboxStatusPending,
		NextAttemptAt: s.now().Add(inlineSendGrace),
	}
}

// Deliver sends one entry and records the outcome. It reports whether the mail went out.
func (s *NotificationService) Deliver(ctx context.Context, entry *model.OutboxEntry) bool {
	// The caller's request may finish before the transport does.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	log := s.log.With().
		Str("outbox_id", entry.ID.String()).
		Str("recipient", entry.Recipient).
		Int("attempt", entry.Attempts+1).
		Logger()

	msg, err := mailer.RenderCertificateEmail(entry.Payload, s.dashboardURL)
	if err == nil {
		err = s.mailer.Send(sendCtx, msg)
	}

	if err == nil {
		metrics.ObserveEmail(true, "")
		if markErr := s.outbox.MarkSent(sendCtx, entry.ID, s.now()); markErr != nil {
			log.Error().Err(markErr).Msg("Email sent but outbox update failed")
		}
		log.Info().Msg("Certificate email sent")
		return true
	}

	cause := mailer.CauseOf(err)
	metrics.ObserveEmail(false, string(cause))

	attempts := entry.Attempts + 1
	giveUp := attempts >= s.maxAttempts
	next := s.now().Add(backoff(attempts))
	if markErr := s.outbox.MarkFailed(sendCtx, entry.ID, err.Error(), string(cause), next, giveUp); markErr != nil {
		log.Error().Err(markErr).Msg("Outbox failure update failed")
	}

	evt := log.Warn()
	if giveUp {
		evt = log.Error()
	}
	evt.Err(err).
		Str("cause", string(cause)).
		Bool("gave_up", giveUp).
		Time("next_attempt_at", next).
		Msg("Certificate email failed")
	return false
}

// DeliverByID claims an entry and delivers it if it is pending and due.
// Duplicate or early queue items are dropped. Only infrastructure failures are returned.
func (s *NotificationService) DeliverByID(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	entry, err := s.outbox.ClaimForDelivery(ctx, id, now, now.Add(deliveryLease))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug().Str("outbox_id", id.String()).Msg("Queued outbox entry settled or not yet due")
			return nil
		}
		return fmt.Errorf("claim outbox entry: %w", err)
	}
	s.Deliver(ctx, entry)
	return nil
}

// EnqueueDue claims every due pending entry and pushes it onto the delivery queue.
func (s *NotificationService) EnqueueDue(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.outbox.ClaimDue(ctx, now, now.Add(queueLease), dueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due notifications: %w", err)
	}
	for i, id := range ids {
		if err := s.queue.Enqueue(ctx, id); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

// Requeue resets an entry's attempt budget and queues it for immediate delivery.
func (s *NotificationService) Requeue(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	if err := s.outbox.Reset(ctx, id, now, now.Add(queueLease)); err != nil {
		return fmt.Errorf("reset outbox entry: %w", err)
	}
	return s.queue.Enqueue(ctx, id)
}

// SendTest delivers a diagnostic message. The returned error carries a mailer cause.
func (s *NotificationService) SendTest(ctx context.Context, to string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.mailer.Send(sendCtx, mailer.RenderTestEmail(to, s.mailer.Name())); err != nil {
		s.log.Warn().Err(err).Str("cause", string(mailer.CauseOf(err))).Msg("Test email failed")
		return err
	}
	s.log.Info().Str("to", to).Msg("Test email sent")
	return nil
}

// backoff doubles from one minute per failed attempt, capped at one hour.
func backoff(attempts int) time.Duration {
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
