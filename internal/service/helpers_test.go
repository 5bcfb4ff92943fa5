package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lifequest/internal/config"
	"lifequest/internal/database"
	"lifequest/internal/domain"
	"lifequest/internal/repository"
)

// testEnv wires the full service stack over a real temp-dir SQLite database
// opened through the normal migration path.
type testEnv struct {
	db        *sql.DB
	players   *repository.PlayerRepository
	skills    *repository.SkillRepository
	questRepo *repository.QuestRepository
	logs      *repository.TimeLogRepository
	snapshots *repository.SnapshotRepository
	store     *repository.RecoveryStore

	quests   *QuestService
	recovery *RecoveryService
	timeLogs *TimeLogService
	daily    *DailyService
	stats    *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:                  filepath.Join(dir, "test.db"),
		DataDir:                 dir,
		RecoveryRequiredSeconds: 28800,
		RecoveryMaxPauseSeconds: 300,
	}
	log := zerolog.Nop()

	db, err := database.New(cfg, log)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:        db,
		players:   repository.NewPlayerRepository(db, log),
		skills:    repository.NewSkillRepository(db, log),
		questRepo: repository.NewQuestRepository(db, log),
		logs:      repository.NewTimeLogRepository(db, log),
		snapshots: repository.NewSnapshotRepository(db, log),
		store:     repository.NewRecoveryStore(cfg, log),
	}
	env.quests = NewQuestService(db, env.questRepo, env.skills, env.players, env.logs, log)
	env.recovery = NewRecoveryService(env.store, env.players, cfg, log)
	env.timeLogs = NewTimeLogService(db, env.skills, env.players, env.logs, env.recovery, log)
	env.daily = NewDailyService(env.players, env.questRepo, env.logs, env.snapshots, env.skills, env.recovery, log)
	env.stats = NewStatsService(env.players, env.skills, env.questRepo, env.logs, env.snapshots, env.recovery, log)

	if _, err := env.players.GetOrCreate(context.Background()); err != nil {
		t.Fatalf("create player: %v", err)
	}
	return env
}

func (e *testEnv) newSkill(t *testing.T, name string) *domain.Skill {
	t.Helper()
	s := &domain.Skill{Name: name, IsActive: true}
	if err := e.skills.Create(context.Background(), s); err != nil {
		t.Fatalf("create skill: %v", err)
	}
	return s
}

func (e *testEnv) newQuest(t *testing.T, skillID, title string, difficulty domain.Difficulty, dueDate string) *domain.Quest {
	t.Helper()
	q := &domain.Quest{
		SkillID:    skillID,
		Title:      title,
		Difficulty: difficulty,
		DueDate:    dueDate,
	}
	if err := e.questRepo.Create(context.Background(), q); err != nil {
		t.Fatalf("create quest: %v", err)
	}
	return q
}

func (e *testEnv) setPlayer(t *testing.T, mutate func(p *domain.Player)) {
	t.Helper()
	ctx := context.Background()
	p, err := e.players.Get(ctx)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	mutate(p)
	if err := e.players.Update(ctx, p); err != nil {
		t.Fatalf("update player: %v", err)
	}
}

func fixedNow(t *testing.T, value string) func() time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation(domain.DateTimeLayout, value, time.Local)
	if err != nil {
		t.Fatalf("parse fixed now: %v", err)
	}
	return func() time.Time { return parsed }
}
