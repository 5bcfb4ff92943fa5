package repository

import (
	"context"
	"database/sql"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"lifequest/internal/domain"
)

type TimeLogRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewTimeLogRepository(sqlDB *sql.DB, logger zerolog.Logger) *TimeLogRepository {
	return &TimeLogRepository{db: sqlDB, logger: logger}
}

// Insert appends a log row. Rows are immutable once written; there is no
// update or delete on this table.
func (r *TimeLogRepository) Insert(ctx context.Context, q DBTX, log *domain.TimeLog) error {
	if log.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		log.ID = id
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO time_logs (id, skill_id, duration_seconds, xp_earned, source, logged_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.ID, log.SkillID, log.DurationSeconds, log.XPEarned, string(log.Source), log.LoggedAt)
	if err != nil {
		return fmt.Errorf("failed to insert time log: %w", err)
	}
	return nil
}

// SumForDate recomputes the day's totals by summing log rows. The logged_at
// strings are local-time, so a plain prefix match selects the local day.
func (r *TimeLogRepository) SumForDate(ctx context.Context, date string) (xpEarned, seconds int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(xp_earned), 0), COALESCE(SUM(duration_seconds), 0)
		FROM time_logs
		WHERE logged_at LIKE ? || '%'
	`, date)
	if err := row.Scan(&xpEarned, &seconds); err != nil {
		return 0, 0, fmt.Errorf("failed to sum time logs: %w", err)
	}
	return xpEarned, seconds, nil
}

// SumBySkillForDate returns per-skill XP and seconds for the given local
// date, for the daily snapshot.
func (r *TimeLogRepository) SumBySkillForDate(ctx context.Context, date string) (map[string]domain.SkillDayStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT skill_id, COALESCE(SUM(xp_earned), 0), COALESCE(SUM(duration_seconds), 0)
		FROM time_logs
		WHERE logged_at LIKE ? || '%'
		GROUP BY skill_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to sum time logs by skill: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.SkillDayStat)
	for rows.Next() {
		var skillID string
		var stat domain.SkillDayStat
		if err := rows.Scan(&skillID, &stat.XP, &stat.Seconds); err != nil {
			return nil, fmt.Errorf("failed to scan time log sum: %w", err)
		}
		out[skillID] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time log sums: %w", err)
	}
	return out, nil
}

// ListForSkill returns a skill's log history, newest first.
func (r *TimeLogRepository) ListForSkill(ctx context.Context, skillID string, limit int) ([]domain.TimeLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, skill_id, duration_seconds, xp_earned, source, logged_at
		FROM time_logs
		WHERE skill_id = ?
		ORDER BY logged_at DESC
		LIMIT ?
	`, skillID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list time logs: %w", err)
	}
	defer rows.Close()

	var out []domain.TimeLog
	for rows.Next() {
		var l domain.TimeLog
		var source string
		if err := rows.Scan(&l.ID, &l.SkillID, &l.DurationSeconds, &l.XPEarned, &source, &l.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan time log: %w", err)
		}
		l.Source = domain.LogSource(source)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time logs: %w", err)
	}
	return out, nil
}
