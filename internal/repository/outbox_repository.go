package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/lms-backend/internal/model"
)

const outboxColumns = `id, certificate_request_id, kind, recipient, payload, status, attempts,
	last_error, last_cause, next_attempt_at, sent_at, created_at, updated_at`

type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OutboxRepository persists notification delivery state.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func insertOutbox(ctx context.Context, db execQuerier, e *model.OutboxEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = model.OutboxStatusPending
	}
	return db.QueryRow(ctx,
		`INSERT INTO notification_outbox (id, certificate_request_id, kind, recipient, payload, status, next_attempt_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		e.ID, e.CertificateRequestID, e.Kind, e.Recipient, e.Payload, e.Status, e.NextAttemptAt,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func scanOutbox(row rowScanner) (*model.OutboxEntry, error) {
	e := &model.OutboxEntry{}
	err := row.Scan(&e.ID, &e.CertificateRequestID, &e.Kind, &e.Recipient, &e.Payload, &e.Status,
		&e.Attempts, &e.LastError, &e.LastCause, &e.NextAttemptAt, &e.SentAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return e, nil
}

// GetByID retrieves an outbox entry.
func (r *OutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.OutboxEntry, error) {
	return scanOutbox(r.pool.QueryRow(ctx,
		`SELECT `+outboxColumns+` FROM notification_outbox WHERE id = $1`, id))
}

// LatestForRequest returns the newest entry recorded for a certificate request.
func (r *OutboxRepository) LatestForRequest(ctx context.Context, requestID uuid.UUID) (*model.OutboxEntry, error) {
	return scanOutbox(r.pool.QueryRow(ctx,
		`SELECT `+outboxColumns+`
		 FROM notification_outbox
		 WHERE certificate_request_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, requestID))
}

// MarkSent records a successful delivery.
func (r *OutboxRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = $1, attempts = attempts + 1, sent_at = $2, last_error = '', last_cause = '',
		     queued_until = NULL, updated_at = NOW()
		 WHERE id = $3`,
		model.OutboxStatusSent, at, id)
	return err
}

// MarkFailed records a failed delivery. When giveUp is set the entry leaves
// the retry set; otherwise it becomes due again at next.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastErr, cause string, next time.Time, giveUp bool) error {
	status := model.OutboxStatusPending
	if giveUp {
		status = model.OutboxStatusFailed
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = $1, attempts = attempts + 1, last_error = $2, last_cause = $3,
		     next_attempt_at = $4, queued_until = NULL, updated_at = NOW()
		 WHERE id = $5`,
		status, lastErr, cause, next, id)
	return err
}

// Reset makes an entry due at now with a fresh attempt budget and marks it
// queued until queuedUntil, since the caller pushes it onto the queue itself.
func (r *OutboxRepository) Reset(ctx context.Context, id uuid.UUID, now, queuedUntil time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = $1, attempts = 0, next_attempt_at = $2, queued_until = $3,
		     sent_at = NULL, updated_at = NOW()
		 WHERE id = $4`,
		model.OutboxStatusPending, now, queuedUntil, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimForDelivery takes a pending entry that is due at now and pushes its
// next attempt to leaseUntil, so a duplicate queue item for the same id finds
// nothing to send. ErrNotFound means the entry is settled, not yet due, or gone.
func (r *OutboxRepository) ClaimForDelivery(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (*model.OutboxEntry, error) {
	return scanOutbox(r.pool.QueryRow(ctx,
		`UPDATE notification_outbox
		 SET next_attempt_at = $1, queued_until = NULL, updated_at = NOW()
		 WHERE id = $2 AND status = $3 AND next_attempt_at <= $4
		 RETURNING `+outboxColumns,
		leaseUntil, id, model.OutboxStatusPending, now))
}

// ClaimDue marks up to limit due entries as queued until queuedUntil and
// returns their ids. Entries already queued are skipped until that
// mark lapses, which only happens when a queue item was lost.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now, queuedUntil time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE notification_outbox
		 SET queued_until = $1, updated_at = NOW()
		 WHERE id IN (
		     SELECT id FROM notification_outbox
		     WHERE status = $2 AND next_attempt_at <= $3
		       AND (queued_until IS NULL OR queued_until <= $3)
		     ORDER BY next_attempt_at
		     LIMIT $4
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id`,
		queuedUntil, model.OutboxStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
