// Package cachetick drives the spatial cache's periodic update tick (spec
// §4.8 "Updater iteration") on a cron-style schedule, the way cc-backend's
// internal/taskmanager schedules its background workers with
// github.com/go-co-op/gocron/v2.
package cachetick

import (
	"fmt"
	"time"

	"github.com/arkeindustries/requestcore/internal/spatialcache"
	"github.com/arkeindustries/requestcore/pkg/log"
	"github.com/go-co-op/gocron/v2"
)

// Service periodically walks every registered Updatable in a cache,
// calling Tick on each one under the cache's update lock (spec §4.8:
// "callers must hold the cache lock via begin_update/end_update").
type Service struct {
	scheduler gocron.Scheduler
	cache     *spatialcache.Cache
}

// New builds a Service for cache, ticking every interval once Start is
// called.
func New(cache *spatialcache.Cache, interval time.Duration) (*Service, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("cachetick: create scheduler: %w", err)
	}

	svc := &Service{scheduler: s, cache: cache}

	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(svc.runTick),
	); err != nil {
		return nil, fmt.Errorf("cachetick: register job: %w", err)
	}

	return svc, nil
}

// Start begins running the tick job on its schedule.
func (s *Service) Start() {
	s.scheduler.Start()
}

// Shutdown stops the scheduler and waits for the in-flight tick, if any,
// to finish.
func (s *Service) Shutdown() error {
	return s.scheduler.Shutdown()
}

// runTick acquires the cache's update lock once per tick and calls Tick on
// every registered updatable in iteration order, exactly the loop spec
// §4.8's Design Notes describe: "get_next_updatable(pos) returns the
// updatable at index pos or null".
func (s *Service) runTick() {
	start := time.Now()
	token := s.cache.BeginUpdate()
	defer s.cache.EndUpdate(token)

	n := 0
	for pos := 0; ; pos++ {
		u, err := s.cache.GetNextUpdatable(token, pos)
		if err != nil {
			log.Errorf("cachetick: get next updatable: %v", err)
			return
		}
		if u == nil {
			break
		}
		u.Tick()
		n++
	}
	log.Debugf("cachetick: ticked %d updatables in %s", n, time.Since(start))
}
