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

type SkillRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSkillRepository(sqlDB *sql.DB, logger zerolog.Logger) *SkillRepository {
	return &SkillRepository{db: sqlDB, logger: logger}
}

const skillColumns = `id, name, icon, color, total_xp, total_seconds, display_order, is_active, created_at`

func (r *SkillRepository) Create(ctx context.Context, s *domain.Skill) error {
	if s.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		s.ID = id
	}
	if s.CreatedAt == "" {
		s.CreatedAt = domain.FormatDateTime(time.Now())
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO skills (`+skillColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Name, s.Icon, s.Color, s.TotalXP, s.TotalSeconds, s.DisplayOrder, boolToInt(s.IsActive), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create skill: %w", err)
	}
	return nil
}

func (r *SkillRepository) Get(ctx context.Context, id string) (*domain.Skill, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+skillColumns+` FROM skills WHERE id = ?
	`, id)
	return scanSkill(row)
}

func (r *SkillRepository) List(ctx context.Context, includeInactive bool) ([]domain.Skill, error) {
	query := `SELECT ` + skillColumns + ` FROM skills`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY display_order ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	var out []domain.Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skills: %w", err)
	}
	return out, nil
}

// UpdateMeta writes display metadata only. Progression totals are off limits
// here; they move through AddProgress.
func (r *SkillRepository) UpdateMeta(ctx context.Context, s *domain.Skill) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE skills SET name = ?, icon = ?, color = ?, display_order = ?, is_active = ?
		WHERE id = ?
	`, s.Name, s.Icon, s.Color, s.DisplayOrder, boolToInt(s.IsActive), s.ID)
	if err != nil {
		return fmt.Errorf("failed to update skill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddProgress atomically increments the skill's XP and time totals. The
// increment happens in SQL so interleaved award flows cannot lose updates.
func (r *SkillRepository) AddProgress(ctx context.Context, q DBTX, id string, xpDelta, secondsDelta int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE skills SET total_xp = total_xp + ?, total_seconds = total_seconds + ?
		WHERE id = ?
	`, xpDelta, secondsDelta, id)
	if err != nil {
		return fmt.Errorf("failed to add skill progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SumXP returns the total XP across all skills. This is the authoritative
// overall value; nothing stores a duplicate of it.
func (r *SkillRepository) SumXP(ctx context.Context) (int, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT SUM(total_xp) FROM skills`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum skill xp: %w", err)
	}
	return int(total.Int64), nil
}

// EnsureSeed creates the starter skills on a fresh database.
func (r *SkillRepository) EnsureSeed(ctx context.Context) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM skills`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count skills: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := []domain.Skill{
		{Name: "Fitness", Icon: "dumbbell", Color: "#e74c3c", DisplayOrder: 0, IsActive: true},
		{Name: "Learning", Icon: "book", Color: "#3498db", DisplayOrder: 1, IsActive: true},
		{Name: "Creative", Icon: "palette", Color: "#9b59b6", DisplayOrder: 2, IsActive: true},
		{Name: "Focus Work", Icon: "target", Color: "#2ecc71", DisplayOrder: 3, IsActive: true},
	}
	for i := range seed {
		if err := r.Create(ctx, &seed[i]); err != nil {
			return err
		}
	}

	r.logger.Info().Int("count", len(seed)).Msg("starter skills seeded")
	return nil
}

func scanSkill(row scanner) (*domain.Skill, error) {
	var s domain.Skill
	var active int
	err := row.Scan(&s.ID, &s.Name, &s.Icon, &s.Color, &s.TotalXP, &s.TotalSeconds, &s.DisplayOrder, &active, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan skill: %w", err)
	}
	s.IsActive = active != 0
	return &s, nil
}

type scanner interface {
	Scan(dest ...any) error
}
