package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lifequest/internal/domain"
	"lifequest/internal/repository"
	"lifequest/internal/timer"
	"lifequest/internal/xp"
)

// LogTimeResult pairs the written log row with the XP it earned.
type LogTimeResult struct {
	TimeLog  domain.TimeLog `json:"timeLog"`
	XPEarned int            `json:"xpEarned"`
	// RecoveryCompleted is set when this session closed out a recovery.
	RecoveryCompleted bool `json:"recoveryCompleted"`
}

// TimeLogService converts logged seconds into XP and skill progress, and
// routes timer sessions into the recovery tracker when the player is
// debuffed.
type TimeLogService struct {
	db       *sql.DB
	skills   *repository.SkillRepository
	players  *repository.PlayerRepository
	logs     *repository.TimeLogRepository
	recovery *RecoveryService
	logger   zerolog.Logger
	nowFunc  func() time.Time
}

func NewTimeLogService(
	sqlDB *sql.DB,
	skills *repository.SkillRepository,
	players *repository.PlayerRepository,
	logs *repository.TimeLogRepository,
	recovery *RecoveryService,
	logger zerolog.Logger,
) *TimeLogService {
	return &TimeLogService{
		db:       sqlDB,
		skills:   skills,
		players:  players,
		logs:     logs,
		recovery: recovery,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// LogTime records seconds against a skill. The base XP comes from the
// duration; streak and debuff multipliers come from the current player
// state. Log row and skill totals land in one transaction.
func (s *TimeLogService) LogTime(ctx context.Context, skillID string, seconds int, source domain.LogSource) (*LogTimeResult, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("duration must be positive: %w", domain.ErrValidation)
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("invalid source %q: %w", source, domain.ErrValidation)
	}

	skill, err := s.skills.Get(ctx, skillID)
	if err != nil {
		return nil, err
	}
	player, err := s.players.Get(ctx)
	if err != nil {
		return nil, err
	}

	earned := xp.Award(xp.TimeXP(seconds), player.CurrentStreak, player.IsDebuffed)

	log := &domain.TimeLog{
		SkillID:         skill.ID,
		DurationSeconds: seconds,
		XPEarned:        earned,
		Source:          source,
		LoggedAt:        domain.FormatDateTime(s.nowFunc()),
	}

	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.logs.Insert(ctx, tx, log); err != nil {
			return err
		}
		return s.skills.AddProgress(ctx, tx, skill.ID, earned, seconds)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist time log: %w", err)
	}

	s.logger.Info().
		Str("skill_id", skill.ID).
		Int("seconds", seconds).
		Int("xp_earned", earned).
		Str("source", string(source)).
		Msg("time logged")

	return &LogTimeResult{TimeLog: *log, XPEarned: earned}, nil
}

// LogTimerSession logs a finished timer session and, when the player is
// debuffed, credits it toward recovery. Manual entries never reach here:
// recovery wants supervised presence, not backfilled numbers.
func (s *TimeLogService) LogTimerSession(ctx context.Context, stop timer.StopResult) (*LogTimeResult, error) {
	res, err := s.LogTime(ctx, stop.SkillID, stop.ElapsedSeconds, domain.SourceTimer)
	if err != nil {
		return nil, err
	}

	completed, err := s.recovery.RecordSession(ctx, stop.ElapsedSeconds, stop.RecoveryPauseExceeded)
	if err != nil {
		// The session is logged; a recovery bookkeeping failure should not
		// undo that.
		s.logger.Error().Err(err).Msg("failed to record recovery session")
		return res, nil
	}
	res.RecoveryCompleted = completed
	return res, nil
}

// VoidRecoverySession reports a session that tracked no time but carried a
// disqualifying pause. The pause alone must reach the recovery tracker so
// the accumulator resets.
func (s *TimeLogService) VoidRecoverySession(ctx context.Context) error {
	_, err := s.recovery.RecordSession(ctx, 0, true)
	return err
}
