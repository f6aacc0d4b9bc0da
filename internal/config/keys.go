package config

import "fmt"

// Redis holds nothing that cannot be rebuilt from Postgres: the stripped
// student quiz and the ids of outbox entries due for delivery.

type cacheKeys struct{}

// StudentQuizKey holds the answer-free quiz JSON for a course.
func (cacheKeys) StudentQuizKey(courseID string) string {
	return fmt.Sprintf("quiz:course:%s:student", courseID)
}

// StudentQuizGenKey counts invalidations of a course's student quiz. A view
// built before the latest invalidation is never written back.
func (cacheKeys) StudentQuizGenKey(courseID string) string {
	return fmt.Sprintf("quiz:course:%s:student:gen", courseID)
}

// CacheKey names read-through cache entries.
var CacheKey cacheKeys

type workerKeys struct {
	NotificationQueue string
}

// WorkerKey names the lists consumed by background workers.
var WorkerKey = workerKeys{
	NotificationQueue: "notification_queue",
}
