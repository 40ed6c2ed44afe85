package timesync

// Instruction tells the REALTIME caller how to reconcile a G packet
// against the filter's current itow, per spec.md §4.4: rewind covariance
// and state-delta integration by the measured lag (capped), defer until
// the filter catches up, or apply directly when already aligned.
type Instruction int

const (
	ApplyNow Instruction = iota
	Rewind
	Defer
	Drop
)

// RealtimePolicy tracks the filter's current itow and decides, for each
// arriving G packet, whether to rewind, defer, or apply immediately.
// Rewind is capped at maxRewind seconds; beyond that the fix is treated
// as too stale and dropped by the caller (StateNotInitialized/
// TimeOutOfOrder bookkeeping lives in the fusion controller).
type RealtimePolicy struct {
	maxRewind float64
}

// NewRealtimePolicy returns a policy capping rewind at maxRewind seconds.
func NewRealtimePolicy(maxRewind float64) *RealtimePolicy {
	return &RealtimePolicy{maxRewind: maxRewind}
}

// Decide compares a G packet's itow against the filter's current itow and
// returns the instruction plus, for Rewind, the lag in seconds.
func (p *RealtimePolicy) Decide(filterITOW, gITOW float64) (Instruction, float64) {
	lag := filterITOW - gITOW
	switch {
	case lag <= 0:
		if gITOW > filterITOW {
			return Defer, 0
		}
		return ApplyNow, 0
	case lag <= p.maxRewind:
		return Rewind, lag
	default:
		return Drop, lag
	}
}
