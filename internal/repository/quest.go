package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"lifequest/internal/domain"
)

type QuestRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewQuestRepository(sqlDB *sql.DB, logger zerolog.Logger) *QuestRepository {
	return &QuestRepository{db: sqlDB, logger: logger}
}

const questColumns = `id, skill_id, title, difficulty, is_completed, is_recurring, recurrence, due_date, completed_at, created_at`

func (r *QuestRepository) Create(ctx context.Context, q *domain.Quest) error {
	if q.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		q.ID = id
	}
	if q.CreatedAt == "" {
		q.CreatedAt = domain.FormatDateTime(time.Now())
	}

	var recurrence sql.NullString
	if q.Recurrence != nil {
		raw, err := q.Recurrence.Encode()
		if err != nil {
			return err
		}
		recurrence = sql.NullString{String: raw, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quests (`+questColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.SkillID, q.Title, string(q.Difficulty), boolToInt(q.IsCompleted), boolToInt(q.IsRecurring),
		recurrence, nullString(q.DueDate), nullString(q.CompletedAt), q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create quest: %w", err)
	}
	return nil
}

func (r *QuestRepository) Get(ctx context.Context, id string) (*domain.Quest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+questColumns+` FROM quests WHERE id = ?
	`, id)
	return scanQuest(row)
}

func (r *QuestRepository) List(ctx context.Context) ([]domain.Quest, error) {
	return r.queryQuests(ctx, `SELECT `+questColumns+` FROM quests ORDER BY created_at ASC`)
}

func (r *QuestRepository) ListByDueDate(ctx context.Context, date string) ([]domain.Quest, error) {
	return r.queryQuests(ctx, `SELECT `+questColumns+` FROM quests WHERE due_date = ? ORDER BY created_at ASC`, date)
}

func (r *QuestRepository) ListBySkill(ctx context.Context, skillID string) ([]domain.Quest, error) {
	return r.queryQuests(ctx, `SELECT `+questColumns+` FROM quests WHERE skill_id = ? ORDER BY created_at ASC`, skillID)
}

// ListRecurring returns the recurring quest templates for expansion.
func (r *QuestRepository) ListRecurring(ctx context.Context) ([]domain.Quest, error) {
	return r.queryQuests(ctx, `SELECT `+questColumns+` FROM quests WHERE is_recurring = 1`)
}

// Exists reports whether a quest instance with the same title, skill and due
// date is already present. Recurrence expansion uses it as its dedup guard.
func (r *QuestRepository) Exists(ctx context.Context, title, skillID, dueDate string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM quests WHERE title = ? AND skill_id = ? AND due_date = ? LIMIT 1
	`, title, skillID, dueDate)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check quest existence: %w", err)
	}
	return true, nil
}

// CountsForDate returns total and completed quest counts for a due date.
func (r *QuestRepository) CountsForDate(ctx context.Context, date string) (total, completed int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_completed), 0) FROM quests WHERE due_date = ?
	`, date)
	if err := row.Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("failed to count quests: %w", err)
	}
	return total, completed, nil
}

// MarkCompleted flips the terminal flag. It participates in the completion
// transaction, and refuses rows that are already completed so a lost race
// surfaces as an error instead of a silent double award.
func (r *QuestRepository) MarkCompleted(ctx context.Context, q DBTX, id, completedAt string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE quests SET is_completed = 1, completed_at = ?
		WHERE id = ? AND is_completed = 0
	`, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark quest completed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyCompleted
	}
	return nil
}

// Update rewrites the mutable quest fields wholesale. The service merges
// partial updates in Go before calling this.
func (r *QuestRepository) Update(ctx context.Context, q *domain.Quest) error {
	var recurrence sql.NullString
	if q.Recurrence != nil {
		raw, err := q.Recurrence.Encode()
		if err != nil {
			return err
		}
		recurrence = sql.NullString{String: raw, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE quests
		SET skill_id = ?, title = ?, difficulty = ?, is_recurring = ?, recurrence = ?, due_date = ?
		WHERE id = ?
	`, q.SkillID, q.Title, string(q.Difficulty), boolToInt(q.IsRecurring), recurrence, nullString(q.DueDate), q.ID)
	if err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *QuestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete quest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *QuestRepository) queryQuests(ctx context.Context, query string, args ...any) ([]domain.Quest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	var out []domain.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quests: %w", err)
	}
	return out, nil
}

func scanQuest(row scanner) (*domain.Quest, error) {
	var q domain.Quest
	var completed, recurring int
	var difficulty string
	var recurrence, dueDate, completedAt sql.NullString

	err := row.Scan(&q.ID, &q.SkillID, &q.Title, &difficulty, &completed, &recurring,
		&recurrence, &dueDate, &completedAt, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan quest: %w", err)
	}

	q.Difficulty = domain.Difficulty(difficulty)
	q.IsCompleted = completed != 0
	q.IsRecurring = recurring != 0
	q.DueDate = dueDate.String
	q.CompletedAt = completedAt.String
	if recurrence.Valid {
		p, err := domain.DecodeRecurrence(recurrence.String)
		if err != nil {
			return nil, err
		}
		q.Recurrence = p
	}
	return &q, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
