package service

import (
	"context"
	"testing"

	"lifequest/internal/domain"
)

// 2025-06-02 is a Monday, so "yesterday" is Sunday 2025-06-01 (weekday 0).
const (
	dailyNow       = "2025-06-02 09:00:00"
	dailyToday     = "2025-06-02"
	dailyYesterday = "2025-06-01"
)

func (e *testEnv) completeDirect(t *testing.T, questID string) {
	t.Helper()
	if err := e.questRepo.MarkCompleted(context.Background(), e.db, questID, dailyYesterday+" 20:00:00"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
}

func TestDailyFirstRunJudgesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.daily.nowFunc = fixedNow(t, dailyNow)
	ctx := context.Background()

	skill := env.newSkill(t, "Fitness")
	env.newQuest(t, skill.ID, "Missed run", domain.DifficultyEasy, dailyYesterday)

	res := env.daily.CheckAndProcessNewDay(ctx)
	if !res.IsNewDay {
		t.Fatal("IsNewDay = false, want true")
	}
	if res.StreakChange != 0 || res.HealthChange != 0 || res.EnteredDebuff {
		t.Errorf("first run judged yesterday: %+v", res)
	}

	p, err := env.players.Get(ctx)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if p.LastProcessedDate != dailyToday {
		t.Errorf("LastProcessedDate = %q, want %q", p.LastProcessedDate, dailyToday)
	}
	if p.CurrentStreak != 0 || p.Health != 100 {
		t.Errorf("player mutated on first run: %+v", p)
	}

	exists, err := env.snapshots.ExistsForDate(ctx, dailyYesterday)
	if err != nil {
		t.Fatalf("snapshot check: %v", err)
	}
	if exists {
		t.Error("first run wrote a snapshot")
	}
}

func TestDailyFullCompletionExtendsStreak(t *testing.T) {
	env := newTestEnv(t)
	env.daily.nowFunc = fixedNow(t, dailyNow)
	ctx := context.Background()

	env.setPlayer(t, func(p *domain.Player) {
		p.LastProcessedDate = dailyYesterday
		p.CurrentStreak = 6
		p.LongestStreak = 6
		p.Health = 90
	})

	skill := env.newSkill(t, "Learning")
	q1 := env.newQuest(t, skill.ID, "Read", domain.DifficultyEasy, dailyYesterday)
	q2 := env.newQuest(t, skill.ID, "Review", domain.DifficultyMedium, dailyYesterday)
	env.completeDirect(t, q1.ID)
	env.completeDirect(t, q2.ID)

	res := env.daily.CheckAndProcessNewDay(ctx)
	if !res.IsNewDay || !res.YesterdayComplete {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.NewStreak != 7 || res.StreakChange != 1 {
		t.Errorf("streak: got %d (change %d), want 7 (+1)", res.NewStreak, res.StreakChange)
	}
	if res.NewHealth != 95 || res.HealthChange != 5 {
		t.Errorf("health: got %d (change %d), want 95 (+5)", res.NewHealth, res.HealthChange)
	}

	p, err := env.players.Get(ctx)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if p.CurrentStreak != 7 || p.LongestStreak != 7 || p.Health != 95 || p.IsDebuffed {
		t.Errorf("persisted player: %+v", p)
	}

	exists, err := env.snapshots.ExistsForDate(ctx, dailyYesterday)
	if err != nil {
		t.Fatalf("snapshot check: %v", err)
	}
	if !exists {
		t.Error("no snapshot written for the judged day")
	}
}

func TestDailyMissesBreakStreakAndDrainHealth(t *testing.T) {
	env := newTestEnv(t)
	env.daily.nowFunc = fixedNow(t, dailyNow)
	ctx := context.Background()

	env.setPlayer(t, func(p *domain.Player) {
		p.LastProcessedDate = dailyYesterday
		p.CurrentStreak = 12
		p.LongestStreak = 12
		p.Health = 15
	})

	skill := env.newSkill(t, "Fitness")
	// Five misses at 5 health each would be 25, but the per-day penalty
	// caps at 20.
	for i := 0; i < 5; i++ {
		env.newQuest(t, skill.ID, "Missed "+string(rune('a'+i)), domain.DifficultyEasy, dailyYesterday)
	}

	res := env.daily.CheckAndProcessNewDay(ctx)
	if res.YesterdayComplete {
		t.Fatal("YesterdayComplete = true with zero completions")
	}
	if res.NewStreak != 0 || res.StreakChange != -12 {
		t.Errorf("streak: got %d (change %d), want 0 (-12)", res.NewStreak, res.StreakChange)
	}
	if res.NewHealth != 0 || res.HealthChange != -15 {
		t.Errorf("health: got %d (change %d), want clamp to 0", res.NewHealth, res.HealthChange)
	}
	if !res.EnteredDebuff {
		t.Error("EnteredDebuff = false at zero health")
	}

	p, err := env.players.Get(ctx)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if !p.IsDebuffed || p.LongestStreak != 12 {
		t.Errorf("persisted player: %+v", p)
	}

	st, err := env.store.Load()
	if err != nil {
		t.Fatalf("load recovery state: %v", err)
	}
	if st == nil {
		t.Error("no recovery opened on debuff entry")
	}
}

func TestDailySecondCallSameDayIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.daily.nowFunc = fixedNow(t, dailyNow)
	ctx := context.Background()

	first := env.daily.CheckAndProcessNewDay(ctx)
	if !first.IsNewDay {
		t.Fatal("first call: IsNewDay = false")
	}
	second := env.daily.CheckAndProcessNewDay(ctx)
	if second.IsNewDay {
		t.Fatal("second call on the same day reprocessed")
	}
}

func TestDailyRecurringExpansion(t *testing.T) {
	env := newTestEnv(t)
	env.daily.nowFunc = fixedNow(t, dailyNow)
	ctx := context.Background()

	env.setPlayer(t, func(p *domain.Player) { p.LastProcessedDate = dailyYesterday })
	skill := env.newSkill(t, "Focus Work")

	daily := &domain.Quest{
		SkillID:     skill.ID,
		Title:       "Plan the day",
		Difficulty:  domain.DifficultyEasy,
		IsRecurring: true,
		Recurrence:  &domain.RecurrencePattern{Type: domain.RecurrenceDaily},
		DueDate:     dailyYesterday,
	}
	// Monday is weekday 1, Wednesday 3: only the Monday template fires.
	monday := &domain.Quest{
		SkillID:     skill.ID,
		Title:       "Weekly kickoff",
		Difficulty:  domain.DifficultyMedium,
		IsRecurring: true,
		Recurrence:  &domain.RecurrencePattern{Type: domain.RecurrenceWeekly, Days: []int{1}},
	}
	wednesday := &domain.Quest{
		SkillID:     skill.ID,
		Title:       "Midweek check",
		Difficulty:  domain.DifficultyEasy,
		IsRecurring: true,
		Recurrence:  &domain.RecurrencePattern{Type: domain.RecurrenceWeekly, Days: []int{3}},
	}
	for _, q := range []*domain.Quest{daily, monday, wednesday} {
		if err := env.questRepo.Create(ctx, q); err != nil {
			t.Fatalf("create template: %v", err)
		}
	}
	// An instance that already exists for today must not be duplicated.
	env.newQuest(t, skill.ID, "Plan the day", domain.DifficultyEasy, dailyToday)

	res := env.daily.CheckAndProcessNewDay(ctx)
	if res.QuestsGenerated != 1 {
		t.Fatalf("QuestsGenerated = %d, want 1 (Monday template only)", res.QuestsGenerated)
	}

	todays, err := env.questRepo.ListByDueDate(ctx, dailyToday)
	if err != nil {
		t.Fatalf("list today: %v", err)
	}
	titles := make(map[string]int)
	for _, q := range todays {
		titles[q.Title]++
	}
	if titles["Plan the day"] != 1 {
		t.Errorf("daily instance count = %d, want 1", titles["Plan the day"])
	}
	if titles["Weekly kickoff"] != 1 {
		t.Errorf("weekly instance count = %d, want 1", titles["Weekly kickoff"])
	}
	if titles["Midweek check"] != 0 {
		t.Errorf("off-day template generated an instance")
	}
}
