package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lifequest/internal/constants"
	"lifequest/internal/domain"
	"lifequest/internal/repository"
	"lifequest/internal/xp"
)

// TodayStats is recomputed from the log and quest tables on every call.
type TodayStats struct {
	Date            string  `json:"date"`
	XPEarned        int     `json:"xpEarned"`
	SecondsLogged   int     `json:"secondsLogged"`
	HoursLogged     float64 `json:"hoursLogged"`
	QuestsCompleted int     `json:"questsCompleted"`
	QuestsTotal     int     `json:"questsTotal"`
}

// PlayerOverview is the player payload for the UI: stored progression state
// plus the derived overall XP/level and recovery progress.
type PlayerOverview struct {
	CurrentStreak    int               `json:"currentStreak"`
	LongestStreak    int               `json:"longestStreak"`
	Health           int               `json:"health"`
	IsDebuffed       bool              `json:"isDebuffed"`
	StreakMultiplier float64           `json:"streakMultiplier"`
	OverallXP        int               `json:"overallXP"`
	OverallLevel     int               `json:"overallLevel"`
	Recovery         *RecoveryProgress `json:"recovery,omitempty"`
}

type StatsService struct {
	players   *repository.PlayerRepository
	skills    *repository.SkillRepository
	quests    *repository.QuestRepository
	logs      *repository.TimeLogRepository
	snapshots *repository.SnapshotRepository
	recovery  *RecoveryService
	logger    zerolog.Logger
	nowFunc   func() time.Time
}

func NewStatsService(
	players *repository.PlayerRepository,
	skills *repository.SkillRepository,
	quests *repository.QuestRepository,
	logs *repository.TimeLogRepository,
	snapshots *repository.SnapshotRepository,
	recovery *RecoveryService,
	logger zerolog.Logger,
) *StatsService {
	return &StatsService{
		players:   players,
		skills:    skills,
		quests:    quests,
		logs:      logs,
		snapshots: snapshots,
		recovery:  recovery,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Today sums the day's time logs and quest counts. The three reads are
// independent, so they run concurrently.
func (s *StatsService) Today(ctx context.Context) (*TodayStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	date := domain.FormatDate(s.nowFunc())
	stats := &TodayStats{Date: date}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		xpEarned, seconds, err := s.logs.SumForDate(gctx, date)
		if err != nil {
			return err
		}
		stats.XPEarned = xpEarned
		stats.SecondsLogged = seconds
		return nil
	})
	g.Go(func() error {
		total, completed, err := s.quests.CountsForDate(gctx, date)
		if err != nil {
			return err
		}
		stats.QuestsTotal = total
		stats.QuestsCompleted = completed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.HoursLogged = float64(stats.SecondsLogged) / 3600
	return stats, nil
}

func (s *StatsService) Player(ctx context.Context) (*PlayerOverview, error) {
	player, err := s.players.Get(ctx)
	if err != nil {
		return nil, err
	}
	overall, err := s.skills.SumXP(ctx)
	if err != nil {
		return nil, err
	}

	overview := &PlayerOverview{
		CurrentStreak:    player.CurrentStreak,
		LongestStreak:    player.LongestStreak,
		Health:           player.Health,
		IsDebuffed:       player.IsDebuffed,
		StreakMultiplier: xp.StreakMultiplier(player.CurrentStreak),
		OverallXP:        overall,
		OverallLevel:     xp.LevelForXP(overall),
	}

	if player.IsDebuffed {
		progress, err := s.recovery.Progress(ctx)
		if err != nil {
			return nil, err
		}
		overview.Recovery = progress
	}
	return overview, nil
}

func (s *StatsService) Snapshots(ctx context.Context) ([]domain.DailySnapshot, error) {
	return s.snapshots.ListRecent(ctx, constants.SnapshotHistoryLimit)
}
