package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/lms-backend/internal/model"
)

const certificateColumns = `id, user_id, course_id, quiz_attempt_id, status, certificate_id, certificate_url,
	applied_at, approved_at, rejected_at, rejection_reason, decided_by, created_at, updated_at`

// CertificateRepository handles certificate request data access.
type CertificateRepository struct {
	pool *pgxpool.Pool
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(pool *pgxpool.Pool) *CertificateRepository {
	return &CertificateRepository{pool: pool}
}

func scanCertificate(row rowScanner) (*model.CertificateRequest, error) {
	c := &model.CertificateRequest{}
	err := row.Scan(&c.ID, &c.UserID, &c.CourseID, &c.QuizAttemptID, &c.Status, &c.CertificateID,
		&c.CertificateURL, &c.AppliedAt, &c.ApprovedAt, &c.RejectedAt, &c.RejectionReason,
		&c.DecidedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return c, nil
}

// GetByID retrieves a certificate request by its UUID.
func (r *CertificateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CertificateRequest, error) {
	return scanCertificate(r.pool.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificate_requests WHERE id = $1`, id))
}

// GetByUserCourse retrieves the single request a user may hold for a course.
func (r *CertificateRepository) GetByUserCourse(ctx context.Context, userID, courseID string) (*model.CertificateRequest, error) {
	return scanCertificate(r.pool.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificate_requests WHERE user_id = $1 AND course_id = $2`,
		userID, courseID))
}

// Create inserts a pending request. A second request for (user, course) yields ErrDuplicate.
func (r *CertificateRepository) Create(ctx context.Context, c *model.CertificateRequest) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO certificate_requests (id, user_id, course_id, quiz_attempt_id, status, certificate_id, applied_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.CourseID, c.QuizAttemptID, c.Status, c.CertificateID, c.AppliedAt,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if uniqueViolation(err, "uq_certificate_requests_user_course") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListByCourse returns every request for a course, newest first.
func (r *CertificateRepository) ListByCourse(ctx context.Context, courseID string) ([]model.CertificateRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificate_requests
		 WHERE course_id = $1
		 ORDER BY applied_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []model.CertificateRequest{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *c)
	}
	return requests, rows.Err()
}

// ApproveWithOutbox moves a pending request to approved and records its
// notification in the same transaction. ErrNotPending means the request
// had already left pending.
func (r *CertificateRepository) ApproveWithOutbox(ctx context.Context, id uuid.UUID, educatorID, certificateURL string, at time.Time, entry *model.OutboxEntry) (*model.CertificateRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := scanCertificate(tx.QueryRow(ctx,
		`UPDATE certificate_requests
		 SET status = $1, approved_at = $2, certificate_url = $3, decided_by = $4, updated_at = NOW()
		 WHERE id = $5 AND status = $6
		 RETURNING `+certificateColumns,
		model.CertificateStatusApproved, at, certificateURL, educatorID, id, model.CertificateStatusPending))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotPending
		}
		return nil, err
	}

	entry.CertificateRequestID = c.ID
	if err := insertOutbox(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return c, nil
}

// Reject moves a pending request to rejected. ErrNotPending means it had already left pending.
func (r *CertificateRepository) Reject(ctx context.Context, id uuid.UUID, educatorID, reason string, at time.Time) (*model.CertificateRequest, error) {
	c, err := scanCertificate(r.pool.QueryRow(ctx,
		`UPDATE certificate_requests
		 SET status = $1, rejected_at = $2, rejection_reason = $3, decided_by = $4, updated_at = NOW()
		 WHERE id = $5 AND status = $6
		 RETURNING `+certificateColumns,
		model.CertificateStatusRejected, at, reason, educatorID, id, model.CertificateStatusPending))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotPending
	}
	return c, err
}

// compile-time check that both pool and tx satisfy the outbox writer.
var (
	_ execQuerier = (*pgxpool.Pool)(nil)
	_ execQuerier = (pgx.Tx)(nil)
)
