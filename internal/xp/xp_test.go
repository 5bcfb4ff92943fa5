package xp

import (
	"testing"

	"lifequest/internal/domain"
)

func TestLevelCurveRoundTrip(t *testing.T) {
	for level := 0; level <= 200; level++ {
		threshold := RequiredForLevel(level)
		if got := LevelForXP(threshold); got != level {
			t.Fatalf("LevelForXP(RequiredForLevel(%d)=%d) = %d, want %d", level, threshold, got, level)
		}
		if level > 0 {
			if got := LevelForXP(threshold - 1); got != level-1 {
				t.Fatalf("LevelForXP(%d) = %d, want %d", threshold-1, got, level-1)
			}
		}
	}
}

func TestLevelForXPSamples(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 0},
		{49, 0},
		{50, 1},
		{199, 1},
		{200, 2},
		{450, 3},
		{5000, 10},
	}
	for _, c := range cases {
		if got := LevelForXP(c.xp); got != c.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", c.xp, got, c.want)
		}
	}
}

func TestVisualProgressFloor(t *testing.T) {
	for xp := 0; xp <= 10_000; xp += 7 {
		v := VisualProgress(xp)
		if v < 5 {
			t.Fatalf("VisualProgress(%d) = %d, below floor", xp, v)
		}
		if p := LevelProgress(xp); p >= 5 && v != p {
			t.Fatalf("VisualProgress(%d) = %d, want %d", xp, v, p)
		}
	}
}

func TestStreakMultiplierBreakpoints(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{
		{0, 1.0},
		{6, 1.0},
		{7, 1.25},
		{13, 1.25},
		{14, 1.5},
		{29, 1.5},
		{30, 2.0},
		{365, 2.0},
	}
	for _, c := range cases {
		if got := StreakMultiplier(c.days); got != c.want {
			t.Errorf("StreakMultiplier(%d) = %v, want %v", c.days, got, c.want)
		}
	}

	prev := 0.0
	for days := 0; days <= 60; days++ {
		m := StreakMultiplier(days)
		if m < prev {
			t.Fatalf("multiplier decreased at %d days: %v < %v", days, m, prev)
		}
		prev = m
	}
}

func TestAwardFloorsSequentially(t *testing.T) {
	// medium quest, 10-day streak: floor(150*1.25) = 187
	if got := Award(150, 10, false); got != 187 {
		t.Fatalf("Award(150, 10, false) = %d, want 187", got)
	}
	// then debuffed: floor(187*0.5) = 93
	if got := Award(150, 10, true); got != 93 {
		t.Fatalf("Award(150, 10, true) = %d, want 93", got)
	}
	// easy quest, 7-day streak: floor(50*1.25)=62, debuffed floor(62*0.5)=31
	if got := Award(50, 7, true); got != 31 {
		t.Fatalf("Award(50, 7, true) = %d, want 31", got)
	}
}

func TestQuestXPTable(t *testing.T) {
	cases := []struct {
		d    domain.Difficulty
		want int
	}{
		{domain.DifficultyEasy, 50},
		{domain.DifficultyMedium, 150},
		{domain.DifficultyHard, 300},
	}
	for _, c := range cases {
		got, err := QuestXP(c.d)
		if err != nil {
			t.Fatalf("QuestXP(%q): %v", c.d, err)
		}
		if got != c.want {
			t.Errorf("QuestXP(%q) = %d, want %d", c.d, got, c.want)
		}
	}
	if _, err := QuestXP("legendary"); err == nil {
		t.Fatal("expected error for unknown difficulty")
	}
}

func TestTimeXP(t *testing.T) {
	cases := []struct {
		seconds int
		want    int
	}{
		{0, 0},
		{59, 0},
		{60, 1},
		{1500, 25},
		{3600, 60},
	}
	for _, c := range cases {
		if got := TimeXP(c.seconds); got != c.want {
			t.Errorf("TimeXP(%d) = %d, want %d", c.seconds, got, c.want)
		}
	}
}

func TestHealthDelta(t *testing.T) {
	if got := HealthDelta(0, 0); got != 0 {
		t.Errorf("no quests: delta = %d, want 0", got)
	}
	if got := HealthDelta(3, 3); got != 5 {
		t.Errorf("all done: delta = %d, want 5", got)
	}
	if got := HealthDelta(3, 1); got != -10 {
		t.Errorf("2 missed: delta = %d, want -10", got)
	}
	// 5 missed would be -25; the floor holds it at -20
	if got := HealthDelta(5, 0); got != -20 {
		t.Errorf("5 missed: delta = %d, want -20", got)
	}
}

func TestClampHealth(t *testing.T) {
	if got := ClampHealth(-3); got != 0 {
		t.Errorf("ClampHealth(-3) = %d, want 0", got)
	}
	if got := ClampHealth(103); got != 100 {
		t.Errorf("ClampHealth(103) = %d, want 100", got)
	}
	if got := ClampHealth(42); got != 42 {
		t.Errorf("ClampHealth(42) = %d, want 42", got)
	}
}
