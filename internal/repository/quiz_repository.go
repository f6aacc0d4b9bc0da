package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/lms-backend/internal/model"
)

const quizColumns = `id, course_id, educator_id, title, description, questions, total_points,
	passing_score, time_limit, max_attempts, is_active, created_at, updated_at`

// QuizRepository handles quiz data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := row.Scan(&q.ID, &q.CourseID, &q.EducatorID, &q.Title, &q.Description, &q.Questions,
		&q.TotalPoints, &q.PassingScore, &q.TimeLimit, &q.MaxAttempts, &q.IsActive,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return q, nil
}

// GetByID retrieves a quiz by its UUID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return scanQuiz(r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
}

// GetByCourse retrieves the quiz attached to a course.
func (r *QuizRepository) GetByCourse(ctx context.Context, courseID string) (*model.Quiz, error) {
	return scanQuiz(r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE course_id = $1`, courseID))
}

// Create inserts a quiz. A second quiz for the same course yields ErrDuplicate.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	q.RecomputeTotalPoints()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (id, course_id, educator_id, title, description, questions, total_points,
		                      passing_score, time_limit, max_attempts, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		q.ID, q.CourseID, q.EducatorID, q.Title, q.Description, q.Questions, q.TotalPoints,
		q.PassingScore, q.TimeLimit, q.MaxAttempts, q.IsActive,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if uniqueViolation(err, "") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Update rewrites the mutable quiz fields. TotalPoints is recomputed first.
func (r *QuizRepository) Update(ctx context.Context, q *model.Quiz) error {
	q.RecomputeTotalPoints()

	err := r.pool.QueryRow(ctx,
		`UPDATE quizzes
		 SET title = $1, description = $2, questions = $3, total_points = $4,
		     passing_score = $5, time_limit = $6, max_attempts = $7, is_active = $8,
		     updated_at = NOW()
		 WHERE id = $9
		 RETURNING updated_at`,
		q.Title, q.Description, q.Questions, q.TotalPoints,
		q.PassingScore, q.TimeLimit, q.MaxAttempts, q.IsActive, q.ID,
	).Scan(&q.UpdatedAt)
	return mapNoRows(err)
}

// Delete removes a quiz; its attempts cascade.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CoursesWithQuiz returns the subset of courseIDs that have a quiz.
func (r *QuizRepository) CoursesWithQuiz(ctx context.Context, courseIDs []string) (map[string]bool, error) {
	found := make(map[string]bool, len(courseIDs))
	if len(courseIDs) == 0 {
		return found, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT course_id FROM quizzes WHERE course_id = ANY($1)`, courseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}
