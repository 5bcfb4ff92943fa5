package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lifequest/internal/domain"
	"lifequest/internal/repository"
	"lifequest/internal/xp"
)

// DailyResolutionResult reports what a day rollover changed. A zero value
// means nothing happened.
type DailyResolutionResult struct {
	IsNewDay          bool `json:"isNewDay"`
	YesterdayComplete bool `json:"yesterdayComplete"`
	QuestsCompleted   int  `json:"questsCompleted"`
	QuestsTotal       int  `json:"questsTotal"`
	StreakChange      int  `json:"streakChange"`
	NewStreak         int  `json:"newStreak"`
	HealthChange      int  `json:"healthChange"`
	NewHealth         int  `json:"newHealth"`
	EnteredDebuff     bool `json:"enteredDebuff"`
	QuestsGenerated   int  `json:"questsGenerated"`
}

// DailyService is the once-per-calendar-day resolution engine: it judges
// yesterday, snapshots it, and expands recurring templates into today's
// quest instances. lastProcessedDate makes the whole thing idempotent per
// day.
type DailyService struct {
	players   *repository.PlayerRepository
	quests    *repository.QuestRepository
	logs      *repository.TimeLogRepository
	snapshots *repository.SnapshotRepository
	skills    *repository.SkillRepository
	recovery  *RecoveryService
	logger    zerolog.Logger
	nowFunc   func() time.Time
}

func NewDailyService(
	players *repository.PlayerRepository,
	quests *repository.QuestRepository,
	logs *repository.TimeLogRepository,
	snapshots *repository.SnapshotRepository,
	skills *repository.SkillRepository,
	recovery *RecoveryService,
	logger zerolog.Logger,
) *DailyService {
	return &DailyService{
		players:   players,
		quests:    quests,
		logs:      logs,
		snapshots: snapshots,
		skills:    skills,
		recovery:  recovery,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// CheckAndProcessNewDay runs the resolution if the calendar advanced.
// Failures are logged and reported as a no-op result: the rollover must
// never block startup, and since lastProcessedDate only advances on success
// the next start retries the whole procedure.
func (s *DailyService) CheckAndProcessNewDay(ctx context.Context) *DailyResolutionResult {
	res, err := s.process(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("daily resolution failed")
		return &DailyResolutionResult{}
	}
	return res
}

func (s *DailyService) process(ctx context.Context) (*DailyResolutionResult, error) {
	now := s.nowFunc()
	today := domain.FormatDate(now)
	yesterday := domain.FormatDate(now.AddDate(0, 0, -1))

	player, err := s.players.Get(ctx)
	if err != nil {
		return nil, err
	}

	if player.LastProcessedDate == today {
		return &DailyResolutionResult{}, nil
	}

	firstRun := player.LastProcessedDate == ""

	total, completed, err := s.quests.CountsForDate(ctx, yesterday)
	if err != nil {
		return nil, err
	}
	hadQuests := total > 0
	completedAll := !hadQuests || completed == total

	res := &DailyResolutionResult{
		IsNewDay:          true,
		YesterdayComplete: completedAll,
		QuestsCompleted:   completed,
		QuestsTotal:       total,
		NewStreak:         player.CurrentStreak,
		NewHealth:         player.Health,
	}

	// Streak and health are judged only when there is data to judge: never
	// on the first run ever, and never for an empty day.
	if !firstRun && hadQuests {
		oldStreak := player.CurrentStreak
		if completedAll {
			player.CurrentStreak++
		} else {
			player.CurrentStreak = 0
		}
		if player.CurrentStreak > player.LongestStreak {
			player.LongestStreak = player.CurrentStreak
		}
		res.StreakChange = player.CurrentStreak - oldStreak
		res.NewStreak = player.CurrentStreak

		oldHealth := player.Health
		player.Health = xp.ClampHealth(player.Health + xp.HealthDelta(total, completed))
		res.HealthChange = player.Health - oldHealth
		res.NewHealth = player.Health

		if player.Health <= 0 && !player.IsDebuffed {
			player.IsDebuffed = true
			res.EnteredDebuff = true
		}
	}

	// Snapshot yesterday. Write-once per date, so a crash-retry is safe.
	if !firstRun {
		if err := s.snapshotDay(ctx, yesterday, total, completed, player); err != nil {
			return nil, err
		}
	}

	generated, err := s.expandRecurring(ctx, now, today)
	if err != nil {
		return nil, err
	}
	res.QuestsGenerated = generated

	// The player write carries streak, health, debuff and lastProcessedDate
	// in one statement, last. A crash anywhere above leaves the date
	// unadvanced and the next start redoes everything; the sub-steps are
	// idempotent or existence-guarded.
	player.LastProcessedDate = today
	if err := s.players.Update(ctx, player); err != nil {
		return nil, err
	}

	if res.EnteredDebuff {
		if err := s.recovery.EnsureStarted(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to start recovery on debuff entry")
		}
	}

	s.logger.Info().
		Str("date", today).
		Bool("yesterday_complete", completedAll).
		Int("quests_completed", completed).
		Int("quests_total", total).
		Int("streak", player.CurrentStreak).
		Int("health", player.Health).
		Bool("entered_debuff", res.EnteredDebuff).
		Int("quests_generated", generated).
		Msg("daily resolution processed")

	return res, nil
}

func (s *DailyService) snapshotDay(ctx context.Context, date string, total, completed int, player *domain.Player) error {
	xpEarned, seconds, err := s.logs.SumForDate(ctx, date)
	if err != nil {
		return err
	}
	perSkill, err := s.logs.SumBySkillForDate(ctx, date)
	if err != nil {
		return err
	}

	// Stamp each skill's current level into its slice of the snapshot.
	skills, err := s.skills.List(ctx, true)
	if err != nil {
		return err
	}
	for _, sk := range skills {
		stat, ok := perSkill[sk.ID]
		if !ok {
			continue
		}
		stat.Level = xp.LevelForXP(sk.TotalXP)
		perSkill[sk.ID] = stat
	}

	return s.snapshots.Insert(ctx, &domain.DailySnapshot{
		Date:               date,
		TotalXPEarned:      xpEarned,
		TotalSecondsLogged: seconds,
		QuestsCompleted:    completed,
		QuestsTotal:        total,
		Streak:             player.CurrentStreak,
		Health:             player.Health,
		SkillStats:         perSkill,
	})
}

// expandRecurring creates today's instances from recurring templates. The
// (title, skill, due date) existence check keeps re-runs and overlapping
// templates from stacking duplicates.
func (s *DailyService) expandRecurring(ctx context.Context, now time.Time, today string) (int, error) {
	templates, err := s.quests.ListRecurring(ctx)
	if err != nil {
		return 0, err
	}

	localToday, err := domain.ParseDate(today)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, tpl := range templates {
		if tpl.Recurrence == nil || !tpl.Recurrence.Matches(localToday) {
			continue
		}
		if tpl.DueDate == today {
			// The template itself is already today's instance.
			continue
		}
		exists, err := s.quests.Exists(ctx, tpl.Title, tpl.SkillID, today)
		if err != nil {
			return generated, err
		}
		if exists {
			continue
		}

		instance := &domain.Quest{
			SkillID:     tpl.SkillID,
			Title:       tpl.Title,
			Difficulty:  tpl.Difficulty,
			IsRecurring: true,
			Recurrence:  tpl.Recurrence,
			DueDate:     today,
			CreatedAt:   domain.FormatDateTime(now),
		}
		if err := s.quests.Create(ctx, instance); err != nil {
			return generated, err
		}
		generated++
	}
	return generated, nil
}
