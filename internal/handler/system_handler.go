package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/rs/zerolog"
)

const healthTimeout = 2 * time.Second

// Dependency is a backing store probed by the health check.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// QueueDepth reports how many notifications are waiting for the worker.
type QueueDepth interface {
	Len(ctx context.Context) (int64, error)
}

// SystemHandler reports liveness and a runtime snapshot.
type SystemHandler struct {
	deps      []Dependency
	queue     QueueDepth
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(deps []Dependency, queue QueueDepth, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		deps:      deps,
		queue:     queue,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Answers 503 if any dependency does not respond.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true
	for _, d := range h.deps {
		if err := d.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", d.Name).Msg("Health check failed")
			checks[d.Name] = "down"
			healthy = false
			continue
		}
		checks[d.Name] = "ok"
	}

	if !healthy {
		response.FailWithData(c, http.StatusServiceUnavailable, response.ErrInternal,
			"One or more dependencies are unavailable.",
			gin.H{"status": "degraded", "checks": checks})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

type runtimeSnapshot struct {
	Uptime            string `json:"uptime"`
	GoVersion         string `json:"go_version"`
	NumCPU            int    `json:"num_cpu"`
	Goroutines        int    `json:"goroutines"`
	HeapAlloc         uint64 `json:"heap_alloc"`
	HeapSys           uint64 `json:"heap_sys"`
	NumGC             uint32 `json:"num_gc"`
	NotificationQueue int64  `json:"notification_queue"`
}

// Status godoc
// GET /api/system/status
func (h *SystemHandler) Status(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	snap := runtimeSnapshot{
		Uptime:     formatDuration(time.Since(h.startTime)),
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.Sys,
		NumGC:      ms.NumGC,
	}

	if h.queue != nil {
		depth, err := h.queue.Len(c.Request.Context())
		if err != nil {
			h.log.Warn().Err(err).Msg("Queue depth unavailable")
			depth = -1
		}
		snap.NotificationQueue = depth
	}

	response.Success(c, http.StatusOK, snap)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
