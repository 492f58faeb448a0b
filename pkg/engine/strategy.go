package engine

import (
	"fmt"
	"strings"

	"github.com/skalski/evermult/pkg/timerecord"
)

// Capability is the per-deployment signal for which update paths the upstream
// actually supports. It comes from configuration, not from guessing per
// record; the upstream's documented behavior differs between workspaces.
type Capability int

const (
	// CapNativePatch: the workspace accepts in-place field updates.
	CapNativePatch Capability = iota
	// CapForeignAppend: records live on foreign platforms; additive
	// task-scoped creates are the only non-destructive path.
	CapForeignAppend
	// CapDestructiveReplace: no in-place support, records must be replaced.
	CapDestructiveReplace
)

// ParseCapability maps a config string to a Capability.
func ParseCapability(s string) (Capability, error) {
	switch strings.ToLower(s) {
	case "", "native":
		return CapNativePatch, nil
	case "foreign":
		return CapForeignAppend, nil
	case "replace":
		return CapDestructiveReplace, nil
	default:
		return 0, fmt.Errorf("unknown update capability %q (want native, foreign or replace)", s)
	}
}

func (c Capability) String() string {
	switch c {
	case CapNativePatch:
		return "native"
	case CapForeignAppend:
		return "foreign"
	case CapDestructiveReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Strategy is one of the three upstream-compatible ways to change a record's
// duration.
type Strategy int

const (
	// StrategyPatch updates the record in place. Preferred: no
	// partial-failure window.
	StrategyPatch Strategy = iota
	// StrategyAppend creates an additional entry at the task-scoped
	// endpoint, leaving the original untouched.
	StrategyAppend
	// StrategyReplace deletes the original and recreates it with the new
	// duration. The only strategy with a data-loss window.
	StrategyReplace
)

func (s Strategy) String() string {
	switch s {
	case StrategyPatch:
		return "patch"
	case StrategyAppend:
		return "append"
	case StrategyReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// ClassifyUpdateSupport picks the strategy for one record. Precedence:
// in-place patch when the deployment supports it and the task is not
// foreign-backed, additive append for foreign-backed tasks, destructive
// replace as the fallback.
func ClassifyUpdateSupport(rec timerecord.TimeRecord, cap Capability) Strategy {
	switch {
	case cap == CapNativePatch && !rec.Task.Foreign():
		return StrategyPatch
	case rec.Task.Foreign():
		return StrategyAppend
	default:
		return StrategyReplace
	}
}
