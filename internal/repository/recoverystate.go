package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"lifequest/internal/config"
	"lifequest/internal/domain"
)

const recoveryFileName = "recovery.json"

// RecoveryStore keeps the recovery sub-state in a small JSON file beside the
// database. A missing file is valid and means no recovery is in progress.
type RecoveryStore struct {
	path   string
	logger zerolog.Logger
}

func NewRecoveryStore(cfg *config.Config, logger zerolog.Logger) *RecoveryStore {
	return &RecoveryStore{
		path:   filepath.Join(cfg.DataDir, recoveryFileName),
		logger: logger,
	}
}

func (s *RecoveryStore) Load() (*domain.RecoveryState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recovery state: %w", err)
	}

	var st domain.RecoveryState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode recovery state: %w", err)
	}
	return &st, nil
}

// Save writes the state as a unit, through a rename so a crash mid-write
// cannot leave a torn file.
func (s *RecoveryStore) Save(st *domain.RecoveryState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode recovery state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recovery state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace recovery state: %w", err)
	}
	return nil
}

// Clear removes the state. Clearing an absent state is fine.
func (s *RecoveryStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear recovery state: %w", err)
	}
	return nil
}
