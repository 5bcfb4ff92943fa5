package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"lifequest/internal/domain"
	"lifequest/internal/repository"
	"lifequest/internal/xp"
)

// SkillView is a skill plus its computed progression fields. Level, progress
// and hours are derived from the stored totals, never stored themselves.
type SkillView struct {
	domain.Skill
	Level          int     `json:"level"`
	Progress       int     `json:"progress"`
	VisualProgress int     `json:"visualProgress"`
	TotalHours     float64 `json:"totalHours"`
}

type SkillService struct {
	skills *repository.SkillRepository
	logger zerolog.Logger
}

func NewSkillService(skills *repository.SkillRepository, logger zerolog.Logger) *SkillService {
	return &SkillService{skills: skills, logger: logger}
}

func viewOf(s domain.Skill) SkillView {
	return SkillView{
		Skill:          s,
		Level:          xp.LevelForXP(s.TotalXP),
		Progress:       xp.LevelProgress(s.TotalXP),
		VisualProgress: xp.VisualProgress(s.TotalXP),
		TotalHours:     float64(s.TotalSeconds) / 3600,
	}
}

func (s *SkillService) List(ctx context.Context, includeInactive bool) ([]SkillView, error) {
	skills, err := s.skills.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	views := make([]SkillView, len(skills))
	for i, sk := range skills {
		views[i] = viewOf(sk)
	}
	return views, nil
}

func (s *SkillService) Get(ctx context.Context, id string) (*SkillView, error) {
	sk, err := s.skills.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := viewOf(*sk)
	return &v, nil
}

type CreateSkillInput struct {
	Name         string
	Icon         string
	Color        string
	DisplayOrder int
}

func (s *SkillService) Create(ctx context.Context, in CreateSkillInput) (*SkillView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrValidation)
	}

	sk := &domain.Skill{
		Name:         name,
		Icon:         in.Icon,
		Color:        in.Color,
		DisplayOrder: in.DisplayOrder,
		IsActive:     true,
	}
	if err := s.skills.Create(ctx, sk); err != nil {
		return nil, err
	}

	s.logger.Info().Str("skill_id", sk.ID).Str("name", sk.Name).Msg("skill created")
	v := viewOf(*sk)
	return &v, nil
}

// Update edits display metadata via a partial update merged in Go. XP and
// time totals cannot be touched through this path.
func (s *SkillService) Update(ctx context.Context, id string, u domain.SkillUpdate) (*SkillView, error) {
	sk, err := s.skills.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sk.Apply(u)
	if strings.TrimSpace(sk.Name) == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if err := s.skills.UpdateMeta(ctx, sk); err != nil {
		return nil, err
	}

	v := viewOf(*sk)
	return &v, nil
}
