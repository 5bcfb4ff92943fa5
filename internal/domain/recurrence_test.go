package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRecurrenceValidate(t *testing.T) {
	daily := &RecurrencePattern{Type: RecurrenceDaily}
	if err := daily.Validate(); err != nil {
		t.Fatalf("daily: %v", err)
	}

	weekly := &RecurrencePattern{Type: RecurrenceWeekly, Days: []int{1, 3}}
	if err := weekly.Validate(); err != nil {
		t.Fatalf("weekly: %v", err)
	}

	empty := &RecurrencePattern{Type: RecurrenceWeekly}
	if err := empty.Validate(); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("weekly without days: got %v, want ErrInvalidRecurrence", err)
	}

	bad := &RecurrencePattern{Type: RecurrenceWeekly, Days: []int{7}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("weekly day 7: got %v, want ErrInvalidRecurrence", err)
	}

	custom := &RecurrencePattern{Type: RecurrenceCustom}
	if err := custom.Validate(); !errors.Is(err, ErrUnsupportedRecurrence) {
		t.Fatalf("custom: got %v, want ErrUnsupportedRecurrence", err)
	}
}

func TestRecurrenceMatches(t *testing.T) {
	// 2025-06-02 is a Monday (weekday 1), 2025-06-04 a Wednesday (3).
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	tuesday := monday.AddDate(0, 0, 1)
	wednesday := monday.AddDate(0, 0, 2)

	daily := &RecurrencePattern{Type: RecurrenceDaily}
	if !daily.Matches(monday) || !daily.Matches(tuesday) {
		t.Fatal("daily should match every date")
	}

	weekly := &RecurrencePattern{Type: RecurrenceWeekly, Days: []int{1, 3}}
	if !weekly.Matches(monday) {
		t.Error("weekly [1,3] should match Monday")
	}
	if weekly.Matches(tuesday) {
		t.Error("weekly [1,3] should not match Tuesday")
	}
	if !weekly.Matches(wednesday) {
		t.Error("weekly [1,3] should match Wednesday")
	}

	custom := &RecurrencePattern{Type: RecurrenceCustom}
	if custom.Matches(monday) {
		t.Error("custom should never match")
	}
}

func TestRecurrenceEncodeDecode(t *testing.T) {
	weekly := &RecurrencePattern{Type: RecurrenceWeekly, Days: []int{0, 6}}
	raw, err := weekly.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRecurrence(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != RecurrenceWeekly || len(got.Days) != 2 {
		t.Fatalf("round trip lost data: %+v", got)
	}

	none, err := DecodeRecurrence("")
	if err != nil || none != nil {
		t.Fatalf("empty string: got %+v, %v", none, err)
	}
}

func TestParseDateIsLocalMidnight(t *testing.T) {
	d, err := ParseDate("2025-06-02")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Location() != time.Local {
		t.Fatalf("location = %v, want local", d.Location())
	}
	if d.Hour() != 0 || d.Minute() != 0 {
		t.Fatalf("not midnight: %v", d)
	}
	if FormatDate(d) != "2025-06-02" {
		t.Fatalf("round trip changed the date: %s", FormatDate(d))
	}
}

func TestQuestApplyPartialUpdate(t *testing.T) {
	q := Quest{ID: "q1", Title: "Old", Difficulty: DifficultyEasy, DueDate: "2025-06-02"}

	title := "New"
	diff := DifficultyHard
	q.Apply(QuestUpdate{Title: &title, Difficulty: &diff})

	if q.Title != "New" || q.Difficulty != DifficultyHard {
		t.Fatalf("set fields not applied: %+v", q)
	}
	if q.DueDate != "2025-06-02" {
		t.Fatalf("unset field changed: %+v", q)
	}
}
