package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lifequest/internal/domain"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: sqlDB, logger: logger}
}

// GetOrCreate returns the singleton player row, creating it on first run.
func (r *PlayerRepository) GetOrCreate(ctx context.Context) (*domain.Player, error) {
	p, err := r.Get(ctx)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := domain.FormatDateTime(time.Now())
	p = &domain.Player{
		ID:        domain.PlayerID,
		Health:    100,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO players (id, current_streak, longest_streak, health, is_debuffed, last_processed_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.CurrentStreak, p.LongestStreak, p.Health, boolToInt(p.IsDebuffed), p.LastProcessedDate, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	r.logger.Info().Msg("player created at first run")
	return p, nil
}

func (r *PlayerRepository) Get(ctx context.Context) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, current_streak, longest_streak, health, is_debuffed, last_processed_date, created_at, updated_at
		FROM players
		WHERE id = ?
	`, domain.PlayerID)

	var p domain.Player
	var debuffed int
	err := row.Scan(&p.ID, &p.CurrentStreak, &p.LongestStreak, &p.Health, &debuffed, &p.LastProcessedDate, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	p.IsDebuffed = debuffed != 0
	return &p, nil
}

// Update persists the player's progression fields in a single write, so
// streak, health, debuff flag and last processed date land atomically.
func (r *PlayerRepository) Update(ctx context.Context, p *domain.Player) error {
	p.UpdatedAt = domain.FormatDateTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		UPDATE players
		SET current_streak = ?, longest_streak = ?, health = ?, is_debuffed = ?, last_processed_date = ?, updated_at = ?
		WHERE id = ?
	`, p.CurrentStreak, p.LongestStreak, p.Health, boolToInt(p.IsDebuffed), p.LastProcessedDate, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	return nil
}
