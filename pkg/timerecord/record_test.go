package timerecord

import (
	"testing"
	"time"
)

func TestSecondsToHMS(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{5400, "01:30:00"},
		{10800, "03:00:00"},
		{36*3600 + 61, "36:01:01"},
		{-5, "00:00:00"},
	}
	for _, c := range cases {
		if got := SecondsToHMS(c.seconds); got != c.want {
			t.Errorf("SecondsToHMS(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestHours(t *testing.T) {
	if got := Hours(7200); got != 2.0 {
		t.Errorf("Hours(7200) = %v, want 2.0", got)
	}
	if got := Hours(10800); got != 3.0 {
		t.Errorf("Hours(10800) = %v, want 3.0", got)
	}
	if got := Hours(5400); got != 1.5 {
		t.Errorf("Hours(5400) = %v, want 1.5", got)
	}
	if got := Hours(100); got != 0.03 {
		t.Errorf("Hours(100) = %v, want 0.03", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-05-01" {
		t.Errorf("got %q", d)
	}

	if _, err := ParseDate("01/05/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if _, err := ParseDate("2024-13-41"); err == nil {
		t.Error("expected error for impossible date")
	}
}

func TestNewDate(t *testing.T) {
	ts := time.Date(2024, 5, 1, 23, 59, 59, 0, time.UTC)
	if got := NewDate(ts); got != "2024-05-01" {
		t.Errorf("NewDate = %q", got)
	}
}

func TestMarked(t *testing.T) {
	r := TimeRecord{Comment: "daily standup " + Marker}
	if !r.Marked() {
		t.Error("expected marked record")
	}
	r.Comment = "daily standup"
	if r.Marked() {
		t.Error("expected unmarked record")
	}
	r.Comment = ""
	if r.Marked() {
		t.Error("empty comment should not be marked")
	}
}

func TestRefForeign(t *testing.T) {
	if (Ref{ID: "t1"}).Foreign() {
		t.Error("plain task should not be foreign")
	}
	if !(Ref{ID: "t1", Platform: "github"}).Foreign() {
		t.Error("platform-backed task should be foreign")
	}
	if !(Ref{}).IsZero() {
		t.Error("empty ref should be zero")
	}
}
