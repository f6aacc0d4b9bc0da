package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/lms-backend/internal/model"
)

const attemptColumns = `id, quiz_id, course_id, user_id, score, total_points, percentage, passed,
	attempt_number, answers, time_spent, completed_at`

// AttemptRepository is the append-only attempt ledger.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row rowScanner) (*model.QuizAttempt, error) {
	a := &model.QuizAttempt{}
	err := row.Scan(&a.ID, &a.QuizID, &a.CourseID, &a.UserID, &a.Score, &a.TotalPoints,
		&a.Percentage, &a.Passed, &a.AttemptNumber, &a.Answers, &a.TimeSpent, &a.CompletedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return a, nil
}

// CountByUserQuiz returns how many attempts the user has recorded for the quiz.
func (r *AttemptRepository) CountByUserQuiz(ctx context.Context, userID string, quizID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2`,
		userID, quizID,
	).Scan(&n)
	return n, err
}

// Create appends an attempt. Losing the race for an attempt number yields ErrDuplicate.
func (r *AttemptRepository) Create(ctx context.Context, a *model.QuizAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (id, quiz_id, course_id, user_id, score, total_points, percentage,
		                            passed, attempt_number, answers, time_spent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING completed_at`,
		a.ID, a.QuizID, a.CourseID, a.UserID, a.Score, a.TotalPoints, a.Percentage,
		a.Passed, a.AttemptNumber, a.Answers, a.TimeSpent,
	).Scan(&a.CompletedAt)
	if err != nil {
		if uniqueViolation(err, "uq_quiz_attempts_user_quiz_number") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// LatestPassed returns the passing attempt with the highest attempt number.
func (r *AttemptRepository) LatestPassed(ctx context.Context, userID string, quizID uuid.UUID) (*model.QuizAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM quiz_attempts
		 WHERE user_id = $1 AND quiz_id = $2 AND passed
		 ORDER BY attempt_number DESC
		 LIMIT 1`, userID, quizID))
}

// ListByUserQuiz returns the user's attempts, newest first.
func (r *AttemptRepository) ListByUserQuiz(ctx context.Context, userID string, quizID uuid.UUID) ([]model.QuizAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM quiz_attempts
		 WHERE user_id = $1 AND quiz_id = $2
		 ORDER BY attempt_number DESC`, userID, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []model.QuizAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// GetByIDs loads attempts keyed by id. Missing ids are absent from the map.
func (r *AttemptRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.QuizAttempt, error) {
	out := make(map[uuid.UUID]*model.QuizAttempt, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// CountPassedUsers returns, per course, how many distinct users passed its quiz.
func (r *AttemptRepository) CountPassedUsers(ctx context.Context, courseIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT course_id, COUNT(DISTINCT user_id)
		 FROM quiz_attempts
		 WHERE passed AND course_id = ANY($1)
		 GROUP BY course_id`, courseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			courseID string
			n        int
		)
		if err := rows.Scan(&courseID, &n); err != nil {
			return nil, err
		}
		out[courseID] = n
	}
	return out, rows.Err()
}
