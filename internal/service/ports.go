package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/lms-backend/internal/model"
)

// QuizStore persists quiz definitions.
type QuizStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	GetByCourse(ctx context.Context, courseID string) (*model.Quiz, error)
	Create(ctx context.Context, q *model.Quiz) error
	Update(ctx context.Context, q *model.Quiz) error
	Delete(ctx context.Context, id uuid.UUID) error
	CoursesWithQuiz(ctx context.Context, courseIDs []string) (map[string]bool, error)
}

// AttemptStore is the append-only attempt ledger.
type AttemptStore interface {
	CountByUserQuiz(ctx context.Context, userID string, quizID uuid.UUID) (int, error)
	Create(ctx context.Context, a *model.QuizAttempt) error
	LatestPassed(ctx context.Context, userID string, quizID uuid.UUID) (*model.QuizAttempt, error)
	ListByUserQuiz(ctx context.Context, userID string, quizID uuid.UUID) ([]model.QuizAttempt, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.QuizAttempt, error)
	CountPassedUsers(ctx context.Context, courseIDs []string) (map[string]int, error)
}

// CertificateStore persists certificate requests and their transitions.
type CertificateStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.CertificateRequest, error)
	GetByUserCourse(ctx context.Context, userID, courseID string) (*model.CertificateRequest, error)
	Create(ctx context.Context, c *model.CertificateRequest) error
	ListByCourse(ctx context.Context, courseID string) ([]model.CertificateRequest, error)
	ApproveWithOutbox(ctx context.Context, id uuid.UUID, educatorID, certificateURL string, at time.Time, entry *model.OutboxEntry) (*model.CertificateRequest, error)
	Reject(ctx context.Context, id uuid.UUID, educatorID, reason string, at time.Time) (*model.CertificateRequest, error)
}

// OutboxStore persists notification delivery state.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.OutboxEntry, error)
	LatestForRequest(ctx context.Context, requestID uuid.UUID) (*model.OutboxEntry, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastErr, cause string, next time.Time, giveUp bool) error
	Reset(ctx context.Context, id uuid.UUID, now, queuedUntil time.Time) error
	ClaimForDelivery(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (*model.OutboxEntry, error)
	ClaimDue(ctx context.Context, now, queuedUntil time.Time, limit int) ([]uuid.UUID, error)
}

// Catalog reads LMS-owned course, user and progress data.
type Catalog interface {
	GetCourse(ctx context.Context, courseID string) (*model.Course, error)
	ListEducatorCourses(ctx context.Context, educatorID string) ([]model.Course, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	GetUsers(ctx context.Context, userIDs []string) (map[string]*model.User, error)
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	CompletedLectures(ctx context.Context, userID, courseID string) ([]string, error)
}

// StudentQuizCache holds the answer-free quiz view.
type StudentQuizCache interface {
	Get(ctx context.Context, courseID string) (*model.StudentQuiz, error)
	Generation(ctx context.Context, courseID string) (int64, error)
	Set(ctx context.Context, quiz *model.StudentQuiz, gen int64) error
	Invalidate(ctx context.Context, courseID string) error
}

// NotificationQueue hands outbox ids to the delivery worker.
type NotificationQueue interface {
	Enqueue(ctx context.Context, outboxID uuid.UUID) error
}
