// Package scheduler runs the in-process rollover job. Startup already
// resolves the day; this keeps a long-running process correct when it
// crosses midnight without a restart.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"lifequest/internal/service"
)

type Scheduler struct {
	scheduler *gocron.Scheduler
	daily     *service.DailyService
	logger    zerolog.Logger
}

func New(daily *service.DailyService, logger zerolog.Logger) *Scheduler {
	// Local time on purpose: days are local calendar days.
	s := gocron.NewScheduler(time.Local)
	return &Scheduler{
		scheduler: s,
		daily:     daily,
		logger:    logger,
	}
}

// Start schedules the rollover check hourly. The check is idempotent per
// calendar day, so the extra runs cost a single indexed read; hourly also
// catches machines that slept through midnight.
func (s *Scheduler) Start() {
	if _, err := s.scheduler.Every(1).Hour().Do(s.runRollover); err != nil {
		s.logger.Error().Err(err).Msg("failed to schedule rollover job")
		return
	}
	s.scheduler.StartAsync()
	s.logger.Info().Msg("rollover scheduler started")
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) runRollover() {
	res := s.daily.CheckAndProcessNewDay(context.Background())
	if res.IsNewDay {
		s.logger.Info().
			Int("quests_generated", res.QuestsGenerated).
			Int("new_streak", res.NewStreak).
			Int("new_health", res.NewHealth).
			Msg("scheduled rollover processed a new day")
		return
	}
	s.logger.Debug().Msg("scheduled rollover: day already processed")
}
