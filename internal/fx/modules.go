package fx

import (
	"lifequest/internal/config"
	"lifequest/internal/database"
	"lifequest/internal/logger"
	"lifequest/internal/repository"
	"lifequest/internal/scheduler"
	"lifequest/internal/server"
	"lifequest/internal/service"
	"lifequest/internal/timer"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewSkillRepository),
	fx.Provide(repository.NewQuestRepository),
	fx.Provide(repository.NewTimeLogRepository),
	fx.Provide(repository.NewSnapshotRepository),
	fx.Provide(repository.NewRecoveryStore),
	// svc
	fx.Provide(service.NewQuestService),
	fx.Provide(service.NewSkillService),
	fx.Provide(service.NewRecoveryService),
	fx.Provide(service.NewTimeLogService),
	fx.Provide(service.NewDailyService),
	fx.Provide(service.NewStatsService),
	// timer + scheduler
	fx.Provide(timer.New),
	fx.Provide(scheduler.New),
	// server
	fx.Provide(server.New),
)
