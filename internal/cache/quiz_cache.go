package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/lms-backend/internal/config"
	"github.com/learnhub/lms-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned when the student view is not cached.
	ErrMiss = errors.New("quiz not cached")
	// ErrStale is returned by Set when the quiz was invalidated after the
	// caller read the generation.
	ErrStale = errors.New("quiz view is stale")
)

// QuizCache stores the answer-free student view of course quizzes in Redis.
type QuizCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuizCache creates a QuizCache. A zero ttl keeps entries until invalidated.
func NewQuizCache(rdb *redis.Client, ttl time.Duration) *QuizCache {
	return &QuizCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached student view for a course.
func (c *QuizCache) Get(ctx context.Context, courseID string) (*model.StudentQuiz, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.StudentQuizKey(courseID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("get student quiz: %w", err)
	}

	var quiz model.StudentQuiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, fmt.Errorf("unmarshal student quiz: %w", err)
	}
	return &quiz, nil
}

// Generation returns the invalidation counter for a course. Read it before
// loading the quiz and hand it to Set.
func (c *QuizCache) Generation(ctx context.Context, courseID string) (int64, error) {
	gen, err := c.rdb.Get(ctx, config.CacheKey.StudentQuizGenKey(courseID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("get quiz generation: %w", err)
	}
	return gen, nil
}

// Set caches the student view if no invalidation happened since gen was read.
// CurrentAttempt is per student and never cached.
func (c *QuizCache) Set(ctx context.Context, quiz *model.StudentQuiz, gen int64) error {
	stored := *quiz
	stored.CurrentAttempt = 0

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("marshal student quiz: %w", err)
	}

	genKey := config.CacheKey.StudentQuizGenKey(quiz.CourseID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, config.CacheKey.StudentQuizKey(quiz.CourseID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("cache student quiz: %w", err)
	}
}

// Invalidate drops the cached view after the quiz changes and bumps the
// generation so in-flight readers do not write their copy back.
func (c *QuizCache) Invalidate(ctx context.Context, courseID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, config.CacheKey.StudentQuizGenKey(courseID))
		pipe.Del(ctx, config.CacheKey.StudentQuizKey(courseID))
		return nil
	})
	return err
}
