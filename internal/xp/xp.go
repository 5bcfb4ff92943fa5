// Package xp holds the pure progression math: the level curve, streak
// multipliers, the XP award formula and the daily health delta. Everything
// here is stateless and deterministic.
package xp

import (
	"fmt"
	"math"

	"lifequest/internal/constants"
	"lifequest/internal/domain"
)

// RequiredForLevel returns the total XP threshold for a level:
// 50 * level². Level 0 requires 0 XP.
func RequiredForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	return 50 * level * level
}

// LevelForXP is the inverse of RequiredForLevel: floor(sqrt(totalXP/50)).
func LevelForXP(totalXP int) int {
	if totalXP <= 0 {
		return 0
	}
	level := int(math.Sqrt(float64(totalXP) / 50))
	// Guard against float rounding on exact thresholds.
	for RequiredForLevel(level+1) <= totalXP {
		level++
	}
	for level > 0 && RequiredForLevel(level) > totalXP {
		level--
	}
	return level
}

// LevelProgress returns the percentage (0-100) between the current level's
// threshold and the next.
func LevelProgress(totalXP int) int {
	level := LevelForXP(totalXP)
	lo := RequiredForLevel(level)
	hi := RequiredForLevel(level + 1)
	if hi == lo {
		return 0
	}
	return int(float64(totalXP-lo) / float64(hi-lo) * 100)
}

// VisualProgress is LevelProgress floored at 5. A bar that never reads empty
// keeps a fresh level from looking like zero progress.
func VisualProgress(totalXP int) int {
	p := LevelProgress(totalXP)
	if p < 5 {
		return 5
	}
	return p
}

// StreakMultiplier is a step function over consecutive full-completion days.
// Thresholds are inclusive lower bounds, checked highest first.
func StreakMultiplier(streakDays int) float64 {
	switch {
	case streakDays >= 30:
		return 2.0
	case streakDays >= 14:
		return 1.5
	case streakDays >= 7:
		return 1.25
	default:
		return 1.0
	}
}

// Award applies the streak multiplier and floors, then the debuff halving
// and floors again. The two floors run in that exact sequence so awards stay
// numerically stable against previously recorded history.
func Award(baseXP, streakDays int, debuffed bool) int {
	awarded := int(math.Floor(float64(baseXP) * StreakMultiplier(streakDays)))
	if debuffed {
		awarded = int(math.Floor(float64(awarded) * 0.5))
	}
	return awarded
}

// QuestXP maps a difficulty to its fixed base reward.
func QuestXP(d domain.Difficulty) (int, error) {
	switch d {
	case domain.DifficultyEasy:
		return constants.QuestXPEasy, nil
	case domain.DifficultyMedium:
		return constants.QuestXPMedium, nil
	case domain.DifficultyHard:
		return constants.QuestXPHard, nil
	default:
		return 0, fmt.Errorf("invalid difficulty %q", d)
	}
}

// TimeXP returns the base XP for a logged duration, before multipliers.
// Partial minutes do not earn.
func TimeXP(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds / 60) * constants.XPPerMinute
}

// HealthDelta evaluates yesterday's quest ratio. No quests: no judgment.
// All done: a small reward. Otherwise a per-miss penalty with a floor so a
// bad day cannot spiral.
func HealthDelta(total, completed int) int {
	if total == 0 {
		return 0
	}
	if completed >= total {
		return constants.HealthReward
	}
	penalty := (total - completed) * constants.HealthPenaltyPerQuest
	if penalty > constants.HealthPenaltyCap {
		penalty = constants.HealthPenaltyCap
	}
	return -penalty
}

// ClampHealth bounds health to [0, HealthMax].
func ClampHealth(h int) int {
	if h < 0 {
		return 0
	}
	if h > constants.HealthMax {
		return constants.HealthMax
	}
	return h
}
