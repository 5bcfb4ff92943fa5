package constants

import "time"

// Progression tuning.
const (
	QuestXPEasy   = 50
	QuestXPMedium = 150
	QuestXPHard   = 300

	// Base XP for logged time, before streak/debuff multipliers.
	XPPerMinute = 1
)

// Health mechanics.
const (
	HealthMax             = 100
	HealthReward          = 5
	HealthPenaltyPerQuest = 5
	// A bad day costs at most this much, regardless of how many quests were
	// missed.
	HealthPenaltyCap = 20
	// Health restored when a recovery session completes.
	RecoveryHealthRestore = 50
)

// Recovery defaults, overridable via config.
const (
	DefaultRecoveryRequiredSeconds = 8 * 60 * 60
	DefaultRecoveryMaxPauseSeconds = 5 * 60
)

// Timer behavior.
const (
	// A tick gap beyond this is treated as system sleep, not elapsed work.
	TimerSleepGap = 5 * time.Second
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	SnapshotHistoryLimit = 30
)
