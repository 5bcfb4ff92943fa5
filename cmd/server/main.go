package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"lifequest/internal/config"
	"lifequest/internal/constants"
	fxmodules "lifequest/internal/fx"
	"lifequest/internal/middleware"
	"lifequest/internal/repository"
	"lifequest/internal/scheduler"
	"lifequest/internal/server"
	"lifequest/internal/service"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

// bootstrap puts the world in order before the API is exposed: the singleton
// player and starter skills exist, the day is resolved, and a debuffed
// player has an open recovery.
func bootstrap(
	ctx context.Context,
	players *repository.PlayerRepository,
	skills *repository.SkillRepository,
	daily *service.DailyService,
	recovery *service.RecoveryService,
	logger zerolog.Logger,
) error {
	if _, err := players.GetOrCreate(ctx); err != nil {
		return fmt.Errorf("failed to ensure player: %w", err)
	}
	if err := skills.EnsureSeed(ctx); err != nil {
		return fmt.Errorf("failed to seed skills: %w", err)
	}

	res := daily.CheckAndProcessNewDay(ctx)
	if res.IsNewDay {
		logger.Info().
			Int("quests_generated", res.QuestsGenerated).
			Msg("daily resolution ran at startup")
	}

	if err := recovery.EnsureStarted(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to ensure recovery state")
	}
	return nil
}

func runServer(
	lc fx.Lifecycle,
	apiServer *server.Server,
	cfg *config.Config,
	db *sql.DB,
	players *repository.PlayerRepository,
	skills *repository.SkillRepository,
	daily *service.DailyService,
	recovery *service.RecoveryService,
	sched *scheduler.Scheduler,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(mux))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := bootstrap(ctx, players, skills, daily, recovery, logger); err != nil {
				return err
			}

			sched.Start()

			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			sched.Stop()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
