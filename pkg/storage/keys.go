package storage

import (
	"fmt"

	"github.com/skalski/evermult/pkg/timerecord"
)

// LedgerKey is the natural composite key of one transformed record. It is
// deliberately not the record id: the destructive replace strategy changes
// the id, while (day, user, task) stays stable across it.
type LedgerKey struct {
	Day    timerecord.Date
	UserID string
	TaskID string
}

func (k LedgerKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Day, k.UserID, k.TaskID)
}

// Valid reports whether all three key parts are present.
func (k LedgerKey) Valid() bool {
	return k.Day != "" && k.UserID != "" && k.TaskID != ""
}
