package domain

// PlayerID is the id of the singleton player row. The engine tracks a single
// local user; the row is created at first run and never deleted.
const PlayerID = "main"

type Player struct {
	ID                string
	CurrentStreak     int
	LongestStreak     int
	Health            int
	IsDebuffed        bool
	LastProcessedDate string // YYYY-MM-DD, empty until the first daily resolution
	CreatedAt         string
	UpdatedAt         string
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Skill struct {
	ID           string
	Name         string
	Icon         string
	Color        string
	TotalXP      int // only ever increases, via quest completion or time logging
	TotalSeconds int
	DisplayOrder int
	IsActive     bool
	CreatedAt    string
}

type Quest struct {
	ID          string
	SkillID     string
	Title       string
	Difficulty  Difficulty
	IsCompleted bool // terminal: once set, the quest is immutable
	IsRecurring bool
	Recurrence  *RecurrencePattern
	DueDate     string // YYYY-MM-DD, empty when unscheduled
	CompletedAt string // local YYYY-MM-DD HH:MM:SS, empty until completed
	CreatedAt   string
}

type LogSource string

const (
	SourceTimer  LogSource = "timer"
	SourceManual LogSource = "manual"
	SourceQuest  LogSource = "quest"
)

func (s LogSource) IsValid() bool {
	switch s {
	case SourceTimer, SourceManual, SourceQuest:
		return true
	}
	return false
}

// TimeLog is an append-only audit record. Today's XP/hours aggregates are
// recomputed by summing these rows, never cached across days.
type TimeLog struct {
	ID              string
	SkillID         string
	DurationSeconds int
	XPEarned        int
	Source          LogSource
	LoggedAt        string // local YYYY-MM-DD HH:MM:SS
}

// SkillDayStat is the per-skill slice of a daily snapshot.
type SkillDayStat struct {
	XP      int `json:"xp"`
	Seconds int `json:"seconds"`
	Level   int `json:"level"`
}

// DailySnapshot captures a finalized day's aggregates. One row per date,
// write-once.
type DailySnapshot struct {
	ID                 string
	Date               string // YYYY-MM-DD
	TotalXPEarned      int
	TotalSecondsLogged int
	QuestsCompleted    int
	QuestsTotal        int
	Streak             int
	Health             int
	SkillStats         map[string]SkillDayStat
}

// RecoveryState lives outside the relational store as a small JSON record.
// A missing record is valid and means no recovery is in progress.
type RecoveryState struct {
	StartTime          string `json:"startTime"` // local YYYY-MM-DD HH:MM:SS
	AccumulatedSeconds int    `json:"accumulatedSeconds"`
}

// QuestUpdate is a partial update: nil fields are left untouched. The merge
// happens in Go against the freshly read row, never as dynamically assembled
// SQL.
type QuestUpdate struct {
	SkillID     *string
	Title       *string
	Difficulty  *Difficulty
	DueDate     *string
	IsRecurring *bool
	Recurrence  *RecurrencePattern
}

// Apply merges the set fields of u into q.
func (q *Quest) Apply(u QuestUpdate) {
	if u.SkillID != nil {
		q.SkillID = *u.SkillID
	}
	if u.Title != nil {
		q.Title = *u.Title
	}
	if u.Difficulty != nil {
		q.Difficulty = *u.Difficulty
	}
	if u.DueDate != nil {
		q.DueDate = *u.DueDate
	}
	if u.IsRecurring != nil {
		q.IsRecurring = *u.IsRecurring
	}
	if u.Recurrence != nil {
		q.Recurrence = u.Recurrence
	}
}

// SkillUpdate is a partial update of a skill's display metadata. XP and time
// totals are excluded on purpose: they move only through award flows.
type SkillUpdate struct {
	Name         *string
	Icon         *string
	Color        *string
	DisplayOrder *int
	IsActive     *bool
}

func (s *Skill) Apply(u SkillUpdate) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Icon != nil {
		s.Icon = *u.Icon
	}
	if u.Color != nil {
		s.Color = *u.Color
	}
	if u.DisplayOrder != nil {
		s.DisplayOrder = *u.DisplayOrder
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
}
