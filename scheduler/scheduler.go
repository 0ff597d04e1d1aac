package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"atlas_scraper/config"
	"atlas_scraper/storage"
)

// Scheduler runs the periodic housekeeping jobs: expired cache purge and the
// daily run stats summary.
type Scheduler struct {
	cfg   config.SchedulerConfig
	cache *storage.FileCache
	runs  *storage.SQLiteStore
	log   *logrus.Logger
	cron  *cron.Cron
}

func New(cfg config.SchedulerConfig, cache *storage.FileCache, runs *storage.SQLiteStore, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		cache: cache,
		runs:  runs,
		log:   log,
		cron:  cron.New(),
	}
}

func (s *Scheduler) Start() error {
	if s.cache != nil && s.cfg.PurgeCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.PurgeCron, s.purgeCache); err != nil {
			return fmt.Errorf("invalid purge cron expression: %w", err)
		}
		s.log.WithField("cron", s.cfg.PurgeCron).Info("cache purge scheduled")
	}

	if s.runs != nil && s.cfg.StatsCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.StatsCron, s.logStats); err != nil {
			return fmt.Errorf("invalid stats cron expression: %w", err)
		}
		s.log.WithField("cron", s.cfg.StatsCron).Info("daily stats scheduled")
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) purgeCache() {
	removed := s.cache.Purge()
	if removed > 0 {
		s.log.WithField("removed", removed).Info("purged expired cache entries")
	}
}

func (s *Scheduler) logStats() {
	stats, err := s.runs.StatsSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		s.log.WithError(err).Warn("daily stats query failed")
		return
	}

	s.log.WithFields(logrus.Fields{
		"runs":      stats.Total,
		"completed": stats.Completed,
		"failed":    stats.Failed,
		"cacheHits": stats.CacheHits,
		"captchas":  stats.Captchas,
	}).Info("analysis runs in the last 24h")
}
