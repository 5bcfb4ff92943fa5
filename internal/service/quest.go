package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lifequest/internal/constants"
	"lifequest/internal/domain"
	"lifequest/internal/repository"
	"lifequest/internal/xp"
)

// CompleteResult is what a successful completion reports upward.
type CompleteResult struct {
	XPAwarded int    `json:"xpAwarded"`
	SkillID   string `json:"skillId"`
	SkillName string `json:"skillName"`
	LeveledUp bool   `json:"leveledUp"`
	NewLevel  int    `json:"newLevel"`
}

// completionSaga carries the pre-image of the optimistic apply so a failed
// persistence step can restore the world exactly as it was.
type completionSaga struct {
	questID  string
	preImage domain.Quest
}

// QuestService owns quest lifecycle and the completion protocol. The
// in-flight set and the tentative overlay are instance state, created with
// the service and gone with it.
type QuestService struct {
	db      *sql.DB
	quests  *repository.QuestRepository
	skills  *repository.SkillRepository
	players *repository.PlayerRepository
	logs    *repository.TimeLogRepository
	logger  zerolog.Logger
	nowFunc func() time.Time

	mu sync.Mutex
	// inFlight holds quest ids with a completion between guard and
	// commit/rollback. Membership is the per-quest lock.
	inFlight map[string]struct{}
	// tentative overlays optimistically-completed quests on top of the
	// store until the transaction commits.
	tentative map[string]domain.Quest
}

func NewQuestService(
	sqlDB *sql.DB,
	quests *repository.QuestRepository,
	skills *repository.SkillRepository,
	players *repository.PlayerRepository,
	logs *repository.TimeLogRepository,
	logger zerolog.Logger,
) *QuestService {
	return &QuestService{
		db:        sqlDB,
		quests:    quests,
		skills:    skills,
		players:   players,
		logs:      logs,
		logger:    logger,
		nowFunc:   time.Now,
		inFlight:  make(map[string]struct{}),
		tentative: make(map[string]domain.Quest),
	}
}

type CreateQuestInput struct {
	SkillID     string
	Title       string
	Difficulty  domain.Difficulty
	DueDate     string
	IsRecurring bool
	Recurrence  *domain.RecurrencePattern
}

func (s *QuestService) Create(ctx context.Context, in CreateQuestInput) (*domain.Quest, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", domain.ErrValidation)
	}
	if !in.Difficulty.IsValid() {
		return nil, fmt.Errorf("invalid difficulty %q: %w", in.Difficulty, domain.ErrValidation)
	}
	if in.DueDate != "" {
		if _, err := domain.ParseDate(in.DueDate); err != nil {
			return nil, err
		}
	}
	if in.IsRecurring {
		if in.Recurrence == nil {
			return nil, fmt.Errorf("recurring quest needs a pattern: %w", domain.ErrInvalidRecurrence)
		}
		if err := in.Recurrence.Validate(); err != nil {
			return nil, err
		}
	}

	if _, err := s.skills.Get(ctx, in.SkillID); err != nil {
		return nil, err
	}

	q := &domain.Quest{
		SkillID:     in.SkillID,
		Title:       title,
		Difficulty:  in.Difficulty,
		DueDate:     in.DueDate,
		IsRecurring: in.IsRecurring,
		Recurrence:  in.Recurrence,
		CreatedAt:   domain.FormatDateTime(s.nowFunc()),
	}
	if err := s.quests.Create(ctx, q); err != nil {
		return nil, err
	}

	s.logger.Info().Str("quest_id", q.ID).Str("title", q.Title).Msg("quest created")
	return q, nil
}

func (s *QuestService) Get(ctx context.Context, id string) (*domain.Quest, error) {
	if q, ok := s.tentativeQuest(id); ok {
		return q, nil
	}
	return s.quests.Get(ctx, id)
}

func (s *QuestService) List(ctx context.Context) ([]domain.Quest, error) {
	quests, err := s.quests.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.overlay(quests), nil
}

func (s *QuestService) ListBySkill(ctx context.Context, skillID string) ([]domain.Quest, error) {
	quests, err := s.quests.ListBySkill(ctx, skillID)
	if err != nil {
		return nil, err
	}
	return s.overlay(quests), nil
}

func (s *QuestService) ListForDate(ctx context.Context, date string) ([]domain.Quest, error) {
	quests, err := s.quests.ListByDueDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.overlay(quests), nil
}

// Update applies a partial update. Completed quests are terminal and refuse
// every edit.
func (s *QuestService) Update(ctx context.Context, id string, u domain.QuestUpdate) (*domain.Quest, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.IsCompleted {
		return nil, domain.ErrQuestImmutable
	}

	q.Apply(u)
	if !q.Difficulty.IsValid() {
		return nil, fmt.Errorf("invalid difficulty %q: %w", q.Difficulty, domain.ErrValidation)
	}
	if q.DueDate != "" {
		if _, err := domain.ParseDate(q.DueDate); err != nil {
			return nil, err
		}
	}
	if q.IsRecurring {
		if q.Recurrence == nil {
			return nil, fmt.Errorf("recurring quest needs a pattern: %w", domain.ErrInvalidRecurrence)
		}
		if err := q.Recurrence.Validate(); err != nil {
			return nil, err
		}
	}
	if u.SkillID != nil {
		if _, err := s.skills.Get(ctx, q.SkillID); err != nil {
			return nil, err
		}
	}

	if err := s.quests.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Delete removes an incomplete quest. Completed quests are part of history
// and stay.
func (s *QuestService) Delete(ctx context.Context, id string) error {
	q, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if q.IsCompleted {
		return domain.ErrQuestImmutable
	}
	return s.quests.Delete(ctx, id)
}

// Complete runs the completion protocol:
//
//	Idle -> Locked -> OptimisticallyApplied -> Persisted | RolledBack
//
// The guard check and lock acquisition happen under one mutex hold, so two
// near-simultaneous calls for the same quest cannot both pass. The lock is
// held from guard through commit or rollback.
func (s *QuestService) Complete(ctx context.Context, id string) (*CompleteResult, error) {
	// Synchronous guard + lock. No I/O happens while the mutex is held.
	s.mu.Lock()
	if _, busy := s.inFlight[id]; busy {
		s.mu.Unlock()
		return nil, domain.ErrCompletionInProgress
	}
	if t, ok := s.tentative[id]; ok && t.IsCompleted {
		s.mu.Unlock()
		return nil, domain.ErrAlreadyCompleted
	}
	s.inFlight[id] = struct{}{}
	s.mu.Unlock()

	res, err := s.completeLocked(ctx, id)

	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()

	return res, err
}

func (s *QuestService) completeLocked(ctx context.Context, id string) (*CompleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	quest, err := s.quests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if quest.IsCompleted {
		return nil, domain.ErrAlreadyCompleted
	}

	player, err := s.players.Get(ctx)
	if err != nil {
		return nil, err
	}

	baseXP, err := xp.QuestXP(quest.Difficulty)
	if err != nil {
		return nil, err
	}
	awarded := xp.Award(baseXP, player.CurrentStreak, player.IsDebuffed)

	skill, err := s.skills.Get(ctx, quest.SkillID)
	if errors.Is(err, domain.ErrNotFound) {
		// The quest points at a skill that no longer exists. Nothing has
		// been applied yet, so there is nothing to roll back, but this is
		// data corruption and worth shouting about.
		s.logger.Error().
			Str("quest_id", quest.ID).
			Str("skill_id", quest.SkillID).
			Msg("quest references missing skill")
		return nil, domain.ErrSkillMissing
	}
	if err != nil {
		return nil, err
	}

	oldLevel := xp.LevelForXP(skill.TotalXP)
	newLevel := xp.LevelForXP(skill.TotalXP + awarded)
	completedAt := domain.FormatDateTime(s.nowFunc())

	// Optimistic apply: the quest reads as completed from here on, before
	// the store has agreed.
	saga := completionSaga{questID: quest.ID, preImage: *quest}
	applied := *quest
	applied.IsCompleted = true
	applied.CompletedAt = completedAt

	s.mu.Lock()
	s.tentative[saga.questID] = applied
	s.mu.Unlock()

	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.quests.MarkCompleted(ctx, tx, quest.ID, completedAt); err != nil {
			return err
		}
		if err := s.skills.AddProgress(ctx, tx, skill.ID, awarded, 0); err != nil {
			return err
		}
		return s.logs.Insert(ctx, tx, &domain.TimeLog{
			SkillID:         skill.ID,
			DurationSeconds: 0,
			XPEarned:        awarded,
			Source:          domain.SourceQuest,
			LoggedAt:        completedAt,
		})
	})
	if err != nil {
		// RolledBack: restore the pre-image. The store never saw the
		// completion, so dropping the overlay puts it back in charge.
		s.restore(saga)

		s.logger.Error().Err(err).Str("quest_id", quest.ID).Msg("quest completion rolled back")
		return nil, fmt.Errorf("failed to persist quest completion: %w", err)
	}

	// Persisted: the store now carries the completion, the overlay entry is
	// redundant.
	s.mu.Lock()
	delete(s.tentative, saga.questID)
	s.mu.Unlock()

	s.logger.Info().
		Str("quest_id", quest.ID).
		Str("skill_id", skill.ID).
		Int("xp_awarded", awarded).
		Bool("leveled_up", newLevel > oldLevel).
		Msg("quest completed")

	return &CompleteResult{
		XPAwarded: awarded,
		SkillID:   skill.ID,
		SkillName: skill.Name,
		LeveledUp: newLevel > oldLevel,
		NewLevel:  newLevel,
	}, nil
}

// restore undoes an optimistic apply. The saga's pre-image matches the row
// still in the store, so removing the overlay entry restores it exactly.
func (s *QuestService) restore(saga completionSaga) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if saga.preImage.IsCompleted {
		// Should not happen: a completed quest never enters the protocol.
		s.tentative[saga.questID] = saga.preImage
		return
	}
	delete(s.tentative, saga.questID)
}

func (s *QuestService) tentativeQuest(id string) (*domain.Quest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.tentative[id]; ok {
		copied := q
		return &copied, true
	}
	return nil, false
}

func (s *QuestService) overlay(quests []domain.Quest) []domain.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tentative) == 0 {
		return quests
	}
	for i := range quests {
		if q, ok := s.tentative[quests[i].ID]; ok {
			quests[i] = q
		}
	}
	return quests
}
