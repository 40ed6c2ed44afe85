package timesync

import (
	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/matrix"
)

// Phase is the per-snapshot-buffer state machine of spec.md §4.4:
// UNINITIALIZED → JUST_INITIALIZED → {TIME_UPDATED ↔ MEASUREMENT_UPDATED}
// → WAITING_UPDATE on the next arrival.
type Phase int

const (
	Uninitialized Phase = iota
	JustInitialized
	TimeUpdated
	MeasurementUpdated
	WaitingUpdate
)

// Tag returns the output-record header tag spec.md §4.4/§4.6 associates
// with a transition into this phase, distinguishing a back-propagation
// replay (BP_TU/BP_MU) from a first-pass update (TU/MU).
func (p Phase) Tag(replay bool) string {
	switch p {
	case TimeUpdated:
		if replay {
			return "BP_TU"
		}
		return "TU"
	case MeasurementUpdated:
		if replay {
			return "BP_MU"
		}
		return "MU"
	default:
		return ""
	}
}

// ControlInput is one A-packet's contribution to the mechanization,
// recorded so a corrected snapshot can be replayed forward to the
// present after a back-propagated correction.
type ControlInput struct {
	ITOW  float64
	DT    float64
	Accel [3]float64
	Omega [3]float64
}

// Snapshot is an immutable posterior state+covariance at a given itow,
// tagged by the phase transition that produced it.
type Snapshot struct {
	ITOW  float64
	Phase Phase
	State *ins.State
	Cov   *matrix.Dense
}

// SnapshotRing is a fixed-duration deque of Snapshots plus the control
// inputs recorded since the oldest retained snapshot, supporting
// BACK_PROPAGATION's fixed-lag smoothing: on a delayed measurement, the
// nearest-itow snapshot is corrected and every later snapshot is
// re-derived by replaying its recorded control inputs forward.
type SnapshotRing struct {
	depth     float64 // seconds of history retained
	snapshots []Snapshot
	inputs    []ControlInput
	phase     Phase
}

// NewSnapshotRing returns an empty ring retaining depth seconds of
// history (spec.md §4.4's --bp_depth, default ~1s).
func NewSnapshotRing(depth float64) *SnapshotRing {
	return &SnapshotRing{depth: depth, phase: Uninitialized}
}

// Phase returns the ring's current state-machine phase.
func (r *SnapshotRing) Phase() Phase { return r.phase }

// Push appends a new snapshot, advances the phase machine, and trims
// history older than depth seconds behind the newest snapshot.
func (r *SnapshotRing) Push(itow float64, phase Phase, s *ins.State, p *matrix.Dense) {
	r.snapshots = append(r.snapshots, Snapshot{ITOW: itow, Phase: phase, State: s, Cov: p})
	r.phase = phase
	r.trim()
}

// RecordInput appends a control input so it can be replayed past a
// correction; inputs older than the retained snapshot horizon are
// dropped alongside trimmed snapshots.
func (r *SnapshotRing) RecordInput(in ControlInput) {
	r.inputs = append(r.inputs, in)
	r.trim()
}

func (r *SnapshotRing) trim() {
	if len(r.snapshots) == 0 {
		return
	}
	newest := r.snapshots[len(r.snapshots)-1].ITOW
	horizon := newest - r.depth

	i := 0
	for i < len(r.snapshots)-1 && r.snapshots[i].ITOW < horizon {
		i++
	}
	r.snapshots = r.snapshots[i:]

	j := 0
	for j < len(r.inputs) && r.inputs[j].ITOW < horizon {
		j++
	}
	r.inputs = r.inputs[j:]
}

// Nearest returns the index of the snapshot whose itow is closest to the
// given itow, per spec.md §4.4's "best snapshot by nearest itow".
func (r *SnapshotRing) Nearest(itow float64) (int, bool) {
	if len(r.snapshots) == 0 {
		return 0, false
	}
	best := 0
	bestDiff := absF(r.snapshots[0].ITOW - itow)
	for i := 1; i < len(r.snapshots); i++ {
		d := absF(r.snapshots[i].ITOW - itow)
		if d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best, true
}

// InputsAfter returns the control inputs recorded strictly after itow,
// in order, for replaying a corrected snapshot forward to the present.
func (r *SnapshotRing) InputsAfter(itow float64) []ControlInput {
	var out []ControlInput
	for _, in := range r.inputs {
		if in.ITOW > itow {
			out = append(out, in)
		}
	}
	return out
}

// ReplaceFrom truncates the ring to the snapshots before idx and appends
// the caller's replacements: the corrected snapshot for idx and any newly
// re-derived snapshots after replaying forward.
func (r *SnapshotRing) ReplaceFrom(idx int, replayed []Snapshot) {
	r.snapshots = append(r.snapshots[:idx], replayed...)
	if len(r.snapshots) > 0 {
		r.phase = r.snapshots[len(r.snapshots)-1].Phase
	}
}

// All returns every currently retained snapshot, oldest first.
func (r *SnapshotRing) All() []Snapshot { return r.snapshots }

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
