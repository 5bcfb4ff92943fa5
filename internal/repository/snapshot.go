package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"lifequest/internal/domain"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(sqlDB *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: sqlDB, logger: logger}
}

// Insert writes the snapshot for its date. Snapshots are write-once: a
// second insert for the same date is a silent no-op, enforced by the UNIQUE
// constraint plus ON CONFLICT DO NOTHING.
func (r *SnapshotRepository) Insert(ctx context.Context, snap *domain.DailySnapshot) error {
	if snap.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		snap.ID = id
	}

	stats := snap.SkillStats
	if stats == nil {
		stats = map[string]domain.SkillDayStat{}
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal skill stats: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_snapshots (id, date, total_xp_earned, total_seconds_logged, quests_completed, quests_total, streak, health, skill_stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO NOTHING
	`, snap.ID, snap.Date, snap.TotalXPEarned, snap.TotalSecondsLogged, snap.QuestsCompleted, snap.QuestsTotal, snap.Streak, snap.Health, string(statsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.logger.Debug().Str("date", snap.Date).Msg("snapshot already exists, skipping")
	}
	return nil
}

func (r *SnapshotRepository) ExistsForDate(ctx context.Context, date string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT 1 FROM daily_snapshots WHERE date = ? LIMIT 1`, date)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}
	return true, nil
}

// ListRecent returns up to limit snapshots, newest date first.
func (r *SnapshotRepository) ListRecent(ctx context.Context, limit int) ([]domain.DailySnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, total_xp_earned, total_seconds_logged, quests_completed, quests_total, streak, health, skill_stats
		FROM daily_snapshots
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.DailySnapshot
	for rows.Next() {
		var s domain.DailySnapshot
		var statsJSON string
		if err := rows.Scan(&s.ID, &s.Date, &s.TotalXPEarned, &s.TotalSecondsLogged, &s.QuestsCompleted, &s.QuestsTotal, &s.Streak, &s.Health, &statsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(statsJSON), &s.SkillStats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skill stats: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}
