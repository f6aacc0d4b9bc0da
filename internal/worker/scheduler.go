package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sweepTimeout = 30 * time.Second

// DueEnqueuer pushes due outbox entries onto the delivery queue.
type DueEnqueuer interface {
	EnqueueDue(ctx context.Context) (int, error)
}

// RetryScheduler periodically sweeps the outbox for entries whose retry is due.
type RetryScheduler struct {
	cron     *cron.Cron
	enqueuer DueEnqueuer
	log      zerolog.Logger
}

// NewRetryScheduler registers the sweep on a cron spec such as "@every 1m".
func NewRetryScheduler(spec string, enqueuer DueEnqueuer, log zerolog.Logger) (*RetryScheduler, error) {
	s := &RetryScheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		enqueuer: enqueuer,
		log:      log.With().Str("component", "retry_scheduler").Logger(),
	}
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep runs one pass.
func (s *RetryScheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.enqueuer.EnqueueDue(ctx)
	if err != nil {
		s.log.Error().Err(err).Int("queued", n).Msg("Outbox sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("queued", n).Msg("Queued due notifications")
	}
}

func (s *RetryScheduler) Start() {
	s.log.Info().Msg("RetryScheduler started")
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *RetryScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("RetryScheduler stopped")
}
