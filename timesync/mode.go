// Package timesync implements the three mutually-exclusive
// synchronization disciplines of spec.md §4.4 that reconcile delayed GPS
// fixes with sorted or unsorted inertial data: OFFLINE (sort-then-apply),
// BACK_PROPAGATION (fixed-lag smoother over a snapshot ring) and REALTIME
// (bounded rewind, no sorting). The fusion controller (package fusion)
// owns the filter state; this package supplies the reordering buffer,
// snapshot ring and rewind bookkeeping those disciplines need, grounded
// structurally on the teacher's capability-set dispatch pattern (a Mode
// picked once at startup, not re-decided per packet).
package timesync

import "github.com/westphae/insgps/ferr"

// Mode selects one of the three synchronization disciplines.
type Mode int

const (
	Offline Mode = iota
	BackPropagation
	Realtime
)

func (m Mode) String() string {
	switch m {
	case Offline:
		return "OFFLINE"
	case BackPropagation:
		return "BACK_PROPAGATION"
	case Realtime:
		return "REALTIME"
	default:
		return "UNKNOWN"
	}
}

// NewMode resolves the --back_propagate/--realtime flags into a Mode,
// rejecting the combination as ferr.ConfigConflict per spec.md §4.4 and
// §6 ("back_propagate and realtime are mutually exclusive").
func NewMode(backPropagate, realtime bool) (Mode, error) {
	if backPropagate && realtime {
		return Offline, ferr.New(ferr.ConfigConflict, "--back_propagate and --realtime are mutually exclusive")
	}
	if backPropagate {
		return BackPropagation, nil
	}
	if realtime {
		return Realtime, nil
	}
	return Offline, nil
}
