package timeutil

import (
	"testing"
	"time"
)

func TestRealClockTracksSystemTime(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now = %v, want within [%v, %v]", got, before, after)
	}
}

func TestMockClockStaysFrozen(t *testing.T) {
	frozen := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(frozen)

	if got := c.Now(); !got.Equal(frozen) {
		t.Errorf("Now = %v, want %v", got, frozen)
	}
	if got := c.Now(); !got.Equal(frozen) {
		t.Errorf("second Now = %v, the mock clock should not tick", got)
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Advance(90 * time.Minute)

	want := start.Add(90 * time.Minute)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now after Advance = %v, want %v", got, want)
	}
}

func TestMockClockSet(t *testing.T) {
	c := NewMockClock(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))

	pinned := time.Date(2024, time.July, 15, 6, 30, 0, 0, time.UTC)
	c.Set(pinned)

	if got := c.Now(); !got.Equal(pinned) {
		t.Errorf("Now after Set = %v, want %v", got, pinned)
	}
}
