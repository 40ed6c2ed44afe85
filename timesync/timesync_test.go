package timesync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westphae/insgps/ferr"
	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/matrix"
	"github.com/westphae/insgps/packet"
)

func TestNewModeRejectsConflict(t *testing.T) {
	_, err := NewMode(true, true)
	require.Error(t, err)
	kind, ok := ferr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ferr.ConfigConflict, kind)
}

func TestNewModeSelectsDiscipline(t *testing.T) {
	m, err := NewMode(true, false)
	require.NoError(t, err)
	assert.Equal(t, BackPropagation, m)

	m, err = NewMode(false, true)
	require.NoError(t, err)
	assert.Equal(t, Realtime, m)

	m, err = NewMode(false, false)
	require.NoError(t, err)
	assert.Equal(t, Offline, m)
}

func aPacket(itow float64) packet.Packet {
	return packet.Packet{Kind: packet.KindA, A: packet.A{ITOW: itow}}
}

func TestReorderBufferSortsOutOfOrderPackets(t *testing.T) {
	rb := NewReorderBuffer()
	rb.Push(aPacket(3))
	rb.Push(aPacket(1))
	rb.Push(aPacket(2))
	out := rb.Drain()
	require.Len(t, out, 3)
	assert.Equal(t, 1.0, out[0].ITOW())
	assert.Equal(t, 2.0, out[1].ITOW())
	assert.Equal(t, 3.0, out[2].ITOW())
}

func TestReorderBufferHandlesWeekRollover(t *testing.T) {
	rb := NewReorderBuffer()
	rb.Push(aPacket(secondsPerWeek - 5))
	rb.Push(aPacket(2)) // wraps to next week
	out := rb.Drain()
	require.Len(t, out, 2)
	assert.Equal(t, float64(secondsPerWeek-5), out[0].ITOW())
}

func TestSnapshotRingNearestAndTrim(t *testing.T) {
	ring := NewSnapshotRing(1.0)
	s := ins.Initialize(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	cov := matrix.Eye(9)
	ring.Push(0.0, JustInitialized, s, cov)
	ring.Push(0.5, TimeUpdated, s, cov)
	ring.Push(2.0, TimeUpdated, s, cov) // trims the itow=0 snapshot (outside 1s depth)

	idx, ok := ring.Nearest(1.9)
	require.True(t, ok)
	assert.Equal(t, 2.0, ring.All()[idx].ITOW)
	for _, snap := range ring.All() {
		assert.GreaterOrEqual(t, snap.ITOW, 1.0)
	}
}

func TestRealtimePolicyDecisions(t *testing.T) {
	p := NewRealtimePolicy(0.5)

	instr, _ := p.Decide(10, 10)
	assert.Equal(t, ApplyNow, instr)

	instr, lag := p.Decide(10, 9.8)
	assert.Equal(t, Rewind, instr)
	assert.InDelta(t, 0.2, lag, 1e-9)

	instr, _ = p.Decide(10, 5)
	assert.Equal(t, Drop, instr)

	instr, _ = p.Decide(10, 12)
	assert.Equal(t, Defer, instr)
}
