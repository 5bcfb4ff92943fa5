package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lifequest/internal/config"
	"lifequest/internal/constants"
	"lifequest/internal/domain"
	"lifequest/internal/repository"
)

// RecoveryProgress is the player-facing view of an active recovery.
type RecoveryProgress struct {
	Active             bool   `json:"active"`
	StartTime          string `json:"startTime,omitempty"`
	AccumulatedSeconds int    `json:"accumulatedSeconds"`
	RequiredSeconds    int    `json:"requiredSeconds"`
}

// RecoveryService governs the exit from the debuffed state. Only
// timer-sourced sessions accumulate; a single overlong pause voids the whole
// accumulator and recovery restarts implicitly.
type RecoveryService struct {
	store           *repository.RecoveryStore
	players         *repository.PlayerRepository
	requiredSeconds int
	logger          zerolog.Logger
	nowFunc         func() time.Time
}

func NewRecoveryService(
	store *repository.RecoveryStore,
	players *repository.PlayerRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *RecoveryService {
	return &RecoveryService{
		store:           store,
		players:         players,
		requiredSeconds: cfg.RecoveryRequiredSeconds,
		logger:          logger,
		nowFunc:         time.Now,
	}
}

// EnsureStarted opens a recovery if the player is debuffed and none is
// active. Called on debuff entry and at startup, both idempotent.
func (s *RecoveryService) EnsureStarted(ctx context.Context) error {
	player, err := s.players.Get(ctx)
	if err != nil {
		return err
	}
	if !player.IsDebuffed {
		return nil
	}

	st, err := s.store.Load()
	if err != nil {
		return err
	}
	if st != nil {
		return nil
	}

	s.logger.Info().Msg("recovery started")
	return s.store.Save(&domain.RecoveryState{
		StartTime:          domain.FormatDateTime(s.nowFunc()),
		AccumulatedSeconds: 0,
	})
}

// RecordSession credits a finished timer session toward recovery. A session
// containing a pause past the maximum resets the accumulator to zero
// instead. Returns true when the recovery completed.
func (s *RecoveryService) RecordSession(ctx context.Context, elapsedSeconds int, pauseExceeded bool) (bool, error) {
	player, err := s.players.Get(ctx)
	if err != nil {
		return false, err
	}
	if !player.IsDebuffed {
		return false, nil
	}

	st, err := s.store.Load()
	if err != nil {
		return false, err
	}
	if st == nil {
		st = &domain.RecoveryState{StartTime: domain.FormatDateTime(s.nowFunc())}
	}

	if pauseExceeded {
		s.logger.Warn().
			Int("lost_seconds", st.AccumulatedSeconds).
			Msg("recovery session disqualified by pause overrun, accumulator reset")
		return false, s.store.Save(&domain.RecoveryState{
			StartTime:          domain.FormatDateTime(s.nowFunc()),
			AccumulatedSeconds: 0,
		})
	}

	st.AccumulatedSeconds += elapsedSeconds
	if st.AccumulatedSeconds < s.requiredSeconds {
		return false, s.store.Save(st)
	}

	// Recovery complete: lift the debuff, restore health, clear the state.
	player.IsDebuffed = false
	player.Health = constants.RecoveryHealthRestore
	if err := s.players.Update(ctx, player); err != nil {
		return false, err
	}
	if err := s.store.Clear(); err != nil {
		return false, err
	}

	s.logger.Info().
		Int("accumulated_seconds", st.AccumulatedSeconds).
		Msg("recovery completed, debuff cleared")
	return true, nil
}

// Progress reports the current recovery state for the player payload.
func (s *RecoveryService) Progress(ctx context.Context) (*RecoveryProgress, error) {
	st, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return &RecoveryProgress{RequiredSeconds: s.requiredSeconds}, nil
	}
	return &RecoveryProgress{
		Active:             true,
		StartTime:          st.StartTime,
		AccumulatedSeconds: st.AccumulatedSeconds,
		RequiredSeconds:    s.requiredSeconds,
	}, nil
}
