package interaction

import (
	"context"
	"time"

	"github.com/recallkit/recallkit/internal/observe"
)

// DefaultSweepInterval is how often the retention sweep runs.
const DefaultSweepInterval = time.Hour

// Sweeper prunes expired interaction records in the background. It runs
// concurrently with query processing and holds no locks that would block
// reads or writes of unrelated records.
type Sweeper struct {
	repo     Repository
	obs      *observe.Observer
	age      time.Duration
	interval time.Duration
	done     chan struct{}
}

// NewSweeper creates a sweeper deleting records older than age. A
// non-positive interval falls back to DefaultSweepInterval.
func NewSweeper(repo Repository, obs *observe.Observer, age, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		repo:     repo,
		obs:      obs,
		age:      age,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep. One pass runs immediately so a
// restarted service does not wait a full interval to enforce retention.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		s.sweep(ctx)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Wait blocks until the sweep goroutine has exited.
func (s *Sweeper) Wait() {
	<-s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	pruned, err := s.repo.PruneOlderThan(ctx, s.age)
	if err != nil {
		s.obs.Log().Warn().Err(err).Msg("retention sweep failed")
		return
	}
	if pruned > 0 {
		s.obs.Log().Info().Int("pruned", int(pruned)).Msg("retention sweep")
	}
}
