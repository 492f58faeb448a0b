package timerecord

import (
	"fmt"
	"strings"
	"time"
)

// Marker is appended to the comment of every record this tool has already
// rewritten. Older deployments relied on it exclusively; the ledger is now
// authoritative and the marker is only checked as a legacy pre-filter.
const Marker = "[AUTO-MULTIPLIED]"

// Date is a single calendar day in ISO form (YYYY-MM-DD), time-zone free.
type Date string

// NewDate truncates t to its calendar day in t's location.
func NewDate(t time.Time) Date {
	return Date(t.Format("2006-01-02"))
}

// ParseDate validates s as a YYYY-MM-DD day.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// Yesterday returns the previous calendar day relative to now, local time.
func Yesterday() Date {
	return NewDate(time.Now().AddDate(0, 0, -1))
}

func (d Date) String() string { return string(d) }

// Ref is a reference to a task or user. The upstream API is inconsistent:
// sometimes a reference arrives as a bare id string, sometimes as an embedded
// object carrying id, name, platform and project ids. Both shapes normalize
// into this one struct; ID is the only field guaranteed to be set.
type Ref struct {
	ID       string
	Name     string
	Platform string
	Projects []string
}

// IsZero reports whether the reference is absent.
func (r Ref) IsZero() bool { return r.ID == "" }

// Foreign reports whether the referenced task is backed by an external
// platform, which means its time entries cannot be patched in place.
func (r Ref) Foreign() bool { return r.Platform != "" }

// TimeRecord is one remote time entry as fetched from the upstream service.
type TimeRecord struct {
	ID       string
	Date     Date
	Seconds  int
	Task     Ref
	User     Ref
	Comment  string
	Billable bool
	Locked   bool
	Invoiced bool
}

// Marked reports whether the record's comment carries the rewrite marker.
func (r TimeRecord) Marked() bool {
	return strings.Contains(r.Comment, Marker)
}

// Update is the payload for an in-place field update of an existing record.
// Every association the record already has must be carried, or the upstream
// silently clears it.
type Update struct {
	TimeHMS   string
	Date      Date
	UserID    string
	TaskID    string
	ProjectID string
	Comment   string
	Billable  bool
}

// NewEntry is the payload for creating a time entry at a task-scoped endpoint.
type NewEntry struct {
	Seconds  int
	Date     Date
	UserID   string
	Comment  string
	Billable bool
}
