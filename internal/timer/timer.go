// Package timer implements the in-memory work session accumulator. It never
// touches the store: stopping a session hands the result to the caller, who
// decides whether and how to log it.
package timer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lifequest/internal/config"
	"lifequest/internal/constants"
)

type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// StopResult is the outcome of a finished session.
type StopResult struct {
	SkillID           string
	ElapsedSeconds    int
	TotalPauseSeconds int
	// Set when a single pause outlasted the recovery maximum during a
	// recovery session. The recovery tracker voids its accumulator on it.
	RecoveryPauseExceeded bool
}

// Status is a read-only view of the accumulator for the API.
type Status struct {
	State             string `json:"state"`
	SkillID           string `json:"skillId,omitempty"`
	ElapsedSeconds    int    `json:"elapsedSeconds"`
	TotalPauseSeconds int    `json:"totalPauseSeconds"`
}

// Accumulator is the Stopped -> Running <-> Paused -> Stopped state machine.
// Ticks arrive once per wall-clock second while running; a gap well beyond
// the expected interval means the machine slept, and sleeping is not work.
type Accumulator struct {
	mu       sync.Mutex
	nowFunc  func() time.Time
	sleepGap time.Duration
	maxPause time.Duration
	logger   zerolog.Logger

	state             State
	skillID           string
	elapsedSeconds    int
	totalPauseSeconds int
	pausedAt          time.Time
	lastTick          time.Time
	recoveryActive    bool
	pauseExceeded     bool
}

func New(cfg *config.Config, logger zerolog.Logger) *Accumulator {
	return &Accumulator{
		nowFunc:  time.Now,
		sleepGap: constants.TimerSleepGap,
		maxPause: time.Duration(cfg.RecoveryMaxPauseSeconds) * time.Second,
		logger:   logger,
	}
}

// Start begins a fresh session for the skill, resetting all counters.
// recoveryActive marks the session as a supervised recovery session, which
// arms the pause-overrun check.
func (a *Accumulator) Start(skillID string, recoveryActive bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = StateRunning
	a.skillID = skillID
	a.elapsedSeconds = 0
	a.totalPauseSeconds = 0
	a.pausedAt = time.Time{}
	a.lastTick = a.nowFunc()
	a.recoveryActive = recoveryActive
	a.pauseExceeded = false

	a.logger.Debug().Str("skill_id", skillID).Bool("recovery", recoveryActive).Msg("timer started")
}

// Tick advances the session by one second. If the wall clock jumped past the
// sleep gap since the last tick, the machine was suspended: the session
// auto-pauses from the moment of the last tick instead of crediting the gap.
func (a *Accumulator) Tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateRunning {
		return
	}

	now := a.nowFunc()
	if !a.lastTick.IsZero() && now.Sub(a.lastTick) > a.sleepGap {
		a.state = StatePaused
		a.pausedAt = a.lastTick
		a.logger.Info().
			Dur("gap", now.Sub(a.lastTick)).
			Msg("tick gap exceeds sleep threshold, auto-pausing")
		return
	}

	a.elapsedSeconds++
	a.lastTick = now
}

// Pause suspends the session. Pausing a session that is not running is a
// no-op.
func (a *Accumulator) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateRunning {
		return
	}
	a.state = StatePaused
	a.pausedAt = a.nowFunc()
}

// Resume continues a paused session, folding the pause into the total. A
// single pause beyond the recovery maximum disqualifies the session for
// recovery credit.
func (a *Accumulator) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StatePaused {
		return
	}

	now := a.nowFunc()
	pause := now.Sub(a.pausedAt)
	a.totalPauseSeconds += int(pause.Seconds())
	if a.recoveryActive && pause > a.maxPause {
		a.pauseExceeded = true
		a.logger.Warn().Dur("pause", pause).Msg("pause exceeded recovery maximum")
	}

	a.state = StateRunning
	a.pausedAt = time.Time{}
	a.lastTick = now
}

// Stop ends the session and resets the machine. Stopping while paused first
// folds the open pause in, so its overrun check still applies.
func (a *Accumulator) Stop() StopResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StatePaused {
		pause := a.nowFunc().Sub(a.pausedAt)
		a.totalPauseSeconds += int(pause.Seconds())
		if a.recoveryActive && pause > a.maxPause {
			a.pauseExceeded = true
		}
	}

	res := StopResult{
		SkillID:               a.skillID,
		ElapsedSeconds:        a.elapsedSeconds,
		TotalPauseSeconds:     a.totalPauseSeconds,
		RecoveryPauseExceeded: a.pauseExceeded,
	}

	a.state = StateStopped
	a.skillID = ""
	a.elapsedSeconds = 0
	a.totalPauseSeconds = 0
	a.pausedAt = time.Time{}
	a.lastTick = time.Time{}
	a.recoveryActive = false
	a.pauseExceeded = false

	a.logger.Debug().
		Str("skill_id", res.SkillID).
		Int("elapsed_seconds", res.ElapsedSeconds).
		Int("pause_seconds", res.TotalPauseSeconds).
		Msg("timer stopped")

	return res
}

// Current reports the accumulator state for the API.
func (a *Accumulator) Current() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Status{
		State:             a.state.String(),
		SkillID:           a.skillID,
		ElapsedSeconds:    a.elapsedSeconds,
		TotalPauseSeconds: a.totalPauseSeconds,
	}
}
