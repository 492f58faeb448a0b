package cmd

import (
	"testing"
	"time"
)

func TestNextRunTime(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 5, 1, 0, 30, 0, 0, loc)

	// Later the same day.
	next := nextRunTime(now, 1, 0)
	if !next.Equal(time.Date(2024, 5, 1, 1, 0, 0, 0, loc)) {
		t.Errorf("next = %v", next)
	}

	// Already past today: tomorrow.
	next = nextRunTime(now, 0, 0)
	if !next.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, loc)) {
		t.Errorf("next = %v", next)
	}

	// Exactly now: strictly after, so tomorrow.
	next = nextRunTime(now, 0, 30)
	if !next.Equal(time.Date(2024, 5, 2, 0, 30, 0, 0, loc)) {
		t.Errorf("next = %v", next)
	}
}
