package agent

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cloudshuttle/logshuttle/internal/dependency"
	"github.com/cloudshuttle/logshuttle/internal/logging"
)

// tagCachePruneMaxAge bounds how long a stale TagCache entry is kept around
// past its own TTL before the housekeeping scheduler reclaims it.
const tagCachePruneMaxAge = 24 * time.Hour

// Scheduler owns the lifecycle manager's background housekeeping: periodic
// TagCache pruning, run on a cron schedule rather than a dedicated
// one-thread-per-concern timer.
type Scheduler struct {
	cron *cron.Cron
	log  *logging.Logger
}

// NewScheduler builds a scheduler that prunes caches the given spec
// ("@every 10m" etc.); an empty spec defaults to every ten minutes.
func NewScheduler(log *logging.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log,
	}
}

// RegisterTagCache wires periodic pruning of a TagCache into the schedule.
func (s *Scheduler) RegisterTagCache(spec string, cache *dependency.TagCache) error {
	if spec == "" {
		spec = "@every 10m"
	}
	_, err := s.cron.AddFunc(spec, func() {
		removed := cache.Prune(tagCachePruneMaxAge)
		if removed > 0 && s.log != nil {
			s.log.WithFields(map[string]interface{}{"removed": removed}).Debug("pruned stale tag cache entries")
		}
	})
	return err
}

// RegisterFunc wires an arbitrary periodic task into the schedule, e.g. a
// credential provider's forced Refresh.
func (s *Scheduler) RegisterFunc(spec string, fn func()) error {
	_, err := s.cron.AddFunc(spec, fn)
	return err
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }
