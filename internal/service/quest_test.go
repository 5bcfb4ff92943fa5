package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lifequest/internal/domain"
)

func TestCompleteAwardsStreakBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.setPlayer(t, func(p *domain.Player) { p.CurrentStreak = 10 })
	skill := env.newSkill(t, "Fitness")
	quest := env.newQuest(t, skill.ID, "Morning run", domain.DifficultyMedium, "2025-06-02")

	res, err := env.quests.Complete(ctx, quest.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	// 150 base at a 1.25 multiplier floors to 187.
	if res.XPAwarded != 187 {
		t.Errorf("XPAwarded = %d, want 187", res.XPAwarded)
	}
	if !res.LeveledUp || res.NewLevel != 1 {
		t.Errorf("LeveledUp = %v, NewLevel = %d, want level up to 1", res.LeveledUp, res.NewLevel)
	}
	if res.SkillName != "Fitness" {
		t.Errorf("SkillName = %q, want Fitness", res.SkillName)
	}

	got, err := env.quests.Get(ctx, quest.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsCompleted || got.CompletedAt == "" {
		t.Errorf("quest not persisted as completed: %+v", got)
	}

	updated, err := env.skills.Get(ctx, skill.ID)
	if err != nil {
		t.Fatalf("get skill: %v", err)
	}
	if updated.TotalXP != 187 {
		t.Errorf("skill TotalXP = %d, want 187", updated.TotalXP)
	}

	logs, err := env.logs.ListForSkill(ctx, skill.ID, 10)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Source != domain.SourceQuest || logs[0].XPEarned != 187 {
		t.Errorf("unexpected time logs: %+v", logs)
	}
}

func TestCompleteDebuffHalvesAward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.setPlayer(t, func(p *domain.Player) {
		p.CurrentStreak = 10
		p.IsDebuffed = true
	})
	skill := env.newSkill(t, "Learning")
	quest := env.newQuest(t, skill.ID, "Read a chapter", domain.DifficultyMedium, "")

	res, err := env.quests.Complete(ctx, quest.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	// floor(150 * 1.25) = 187, halved and floored to 93.
	if res.XPAwarded != 93 {
		t.Errorf("XPAwarded = %d, want 93", res.XPAwarded)
	}
}

func TestCompleteTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	skill := env.newSkill(t, "Creative")
	quest := env.newQuest(t, skill.ID, "Sketch", domain.DifficultyEasy, "")

	if _, err := env.quests.Complete(ctx, quest.ID); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	if _, err := env.quests.Complete(ctx, quest.ID); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("second Complete error = %v, want ErrAlreadyCompleted", err)
	}

	got, err := env.skills.Get(ctx, skill.ID)
	if err != nil {
		t.Fatalf("get skill: %v", err)
	}
	if got.TotalXP != 50 {
		t.Errorf("skill TotalXP = %d, want single award of 50", got.TotalXP)
	}
}

func TestCompleteConcurrentAwardsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	skill := env.newSkill(t, "Focus Work")
	quest := env.newQuest(t, skill.ID, "Deep work block", domain.DifficultyHard, "")

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.quests.Complete(ctx, quest.ID)
		}()
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrCompletionInProgress):
		case errors.Is(err, domain.ErrAlreadyCompleted):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}

	got, err := env.skills.Get(ctx, skill.ID)
	if err != nil {
		t.Fatalf("get skill: %v", err)
	}
	if got.TotalXP != 300 {
		t.Errorf("skill TotalXP = %d, want single award of 300", got.TotalXP)
	}
}

func TestCompletedQuestIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	skill := env.newSkill(t, "Fitness")
	quest := env.newQuest(t, skill.ID, "Stretch", domain.DifficultyEasy, "")
	if _, err := env.quests.Complete(ctx, quest.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	title := "Renamed"
	if _, err := env.quests.Update(ctx, quest.ID, domain.QuestUpdate{Title: &title}); !errors.Is(err, domain.ErrQuestImmutable) {
		t.Errorf("Update error = %v, want ErrQuestImmutable", err)
	}
	if err := env.quests.Delete(ctx, quest.ID); !errors.Is(err, domain.ErrQuestImmutable) {
		t.Errorf("Delete error = %v, want ErrQuestImmutable", err)
	}
}

func TestCompleteMissingSkill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The schema enforces quests.skill_id, so a dangling reference can only
	// come from outside the normal write path. Plant one on a connection
	// with the constraint switched off.
	conn, err := env.db.Conn(ctx)
	if err != nil {
		t.Fatalf("open conn: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		t.Fatalf("disable foreign keys: %v", err)
	}
	const questID = "orphaned-quest"
	_, err = conn.ExecContext(ctx, `
		INSERT INTO quests (id, skill_id, title, difficulty, is_completed, is_recurring, created_at)
		VALUES (?, 'nope', 'Orphaned', 'easy', 0, 0, '2025-06-02 08:00:00')
	`, questID)
	if err != nil {
		t.Fatalf("insert orphan quest: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close conn: %v", err)
	}

	if _, err := env.quests.Complete(ctx, questID); !errors.Is(err, domain.ErrSkillMissing) {
		t.Fatalf("Complete error = %v, want ErrSkillMissing", err)
	}

	got, err := env.quests.Get(ctx, questID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IsCompleted {
		t.Error("quest marked completed despite rejected completion")
	}
}

func TestCompleteRollbackOnPersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	skill := env.newSkill(t, "Fitness")
	quest := env.newQuest(t, skill.ID, "Evening walk", domain.DifficultyMedium, "")

	// Break the last write of the transaction so the whole completion has
	// to roll back after the optimistic apply.
	if _, err := env.db.ExecContext(ctx, "ALTER TABLE time_logs RENAME TO time_logs_hidden"); err != nil {
		t.Fatalf("hide time_logs: %v", err)
	}

	if _, err := env.quests.Complete(ctx, quest.ID); err == nil {
		t.Fatal("Complete succeeded with a broken time_logs table")
	}

	got, err := env.quests.Get(ctx, quest.ID)
	if err != nil {
		t.Fatalf("Get after rollback: %v", err)
	}
	if got.IsCompleted {
		t.Error("quest still reads as completed after rollback")
	}
	sk, err := env.skills.Get(ctx, skill.ID)
	if err != nil {
		t.Fatalf("get skill: %v", err)
	}
	if sk.TotalXP != 0 {
		t.Errorf("skill TotalXP = %d after rollback, want 0", sk.TotalXP)
	}

	// With the table back, the same quest completes cleanly: the failed
	// attempt left no lock and no overlay behind.
	if _, err := env.db.ExecContext(ctx, "ALTER TABLE time_logs_hidden RENAME TO time_logs"); err != nil {
		t.Fatalf("restore time_logs: %v", err)
	}
	res, err := env.quests.Complete(ctx, quest.ID)
	if err != nil {
		t.Fatalf("Complete after repair: %v", err)
	}
	if res.XPAwarded != 150 {
		t.Errorf("XPAwarded = %d, want 150", res.XPAwarded)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.newSkill(t, "Learning")

	_, err := env.quests.Create(ctx, CreateQuestInput{SkillID: skill.ID, Title: "  ", Difficulty: domain.DifficultyEasy})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank title error = %v, want ErrValidation", err)
	}

	_, err = env.quests.Create(ctx, CreateQuestInput{SkillID: skill.ID, Title: "Quest", Difficulty: "brutal"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad difficulty error = %v, want ErrValidation", err)
	}

	_, err = env.quests.Create(ctx, CreateQuestInput{
		SkillID:     skill.ID,
		Title:       "Quest",
		Difficulty:  domain.DifficultyEasy,
		IsRecurring: true,
		Recurrence:  &domain.RecurrencePattern{Type: domain.RecurrenceCustom},
	})
	if !errors.Is(err, domain.ErrUnsupportedRecurrence) {
		t.Errorf("custom recurrence error = %v, want ErrUnsupportedRecurrence", err)
	}

	q, err := env.quests.Create(ctx, CreateQuestInput{
		SkillID:     skill.ID,
		Title:       "Weekly review",
		Difficulty:  domain.DifficultyMedium,
		IsRecurring: true,
		Recurrence:  &domain.RecurrencePattern{Type: domain.RecurrenceWeekly, Days: []int{0}},
	})
	if err != nil {
		t.Fatalf("valid recurring create: %v", err)
	}
	if q.ID == "" || !q.IsRecurring {
		t.Errorf("unexpected created quest: %+v", q)
	}
}
