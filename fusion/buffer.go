package fusion

import (
	"sort"

	"github.com/westphae/insgps/packet"
)

// aBuffer is a fixed-capacity FIFO ring of recent A packets (cap ≥ 256 per
// spec.md §4.5), used to average a stationary accelerometer reading at
// initialization and to replay buffered inertial data up to an accepted
// GPS fix's itow.
type aBuffer struct {
	data []packet.A
	cap  int
}

func newABuffer(cap int) *aBuffer {
	if cap < 256 {
		cap = 256
	}
	return &aBuffer{cap: cap}
}

func (b *aBuffer) Push(a packet.A) {
	b.data = append(b.data, a)
	if len(b.data) > b.cap {
		b.data = b.data[len(b.data)-b.cap:]
	}
}

func (b *aBuffer) Len() int { return len(b.data) }

// Front returns the oldest buffered packet.
func (b *aBuffer) Front() (packet.A, bool) {
	if len(b.data) == 0 {
		return packet.A{}, false
	}
	return b.data[0], true
}

// Mean returns the average accel vector over every buffered sample.
func (b *aBuffer) Mean() (ax, ay, az float64) {
	n := float64(len(b.data))
	if n == 0 {
		return 0, 0, 0
	}
	for _, a := range b.data {
		ax += a.Accel.X
		ay += a.Accel.Y
		az += a.Accel.Z
	}
	return ax / n, ay / n, az / n
}

// MeanOmegaNear averages angular rate over the n buffered samples nearest
// itow, per spec.md §4.5's "average the most recent 16 ω_b samples around
// G.itow" used to build the GPS velocity lever-arm correction.
func (b *aBuffer) MeanOmegaNear(itow float64, n int) (wx, wy, wz float64) {
	if len(b.data) == 0 {
		return 0, 0, 0
	}
	ix := sort.Search(len(b.data), func(i int) bool { return b.data[i].ITOW >= itow })
	lo := ix - n/2
	hi := lo + n
	if lo < 0 {
		lo, hi = 0, n
	}
	if hi > len(b.data) {
		hi = len(b.data)
		lo = hi - n
		if lo < 0 {
			lo = 0
		}
	}
	window := b.data[lo:hi]
	count := float64(len(window))
	if count == 0 {
		return 0, 0, 0
	}
	for _, a := range window {
		wx += a.Omega.X
		wy += a.Omega.Y
		wz += a.Omega.Z
	}
	return wx / count, wy / count, wz / count
}

// After returns every buffered sample with itow strictly after the given
// itow, in arrival order, for replaying mechanization up to a GPS fix.
func (b *aBuffer) After(itow float64) []packet.A {
	var out []packet.A
	for _, a := range b.data {
		if a.ITOW > itow {
			out = append(out, a)
		}
	}
	return out
}

// mBuffer is a fixed-capacity FIFO ring of recent magnetometer packets
// (cap ≥ 16 per spec.md §4.5), used for magnetic yaw estimation.
type mBuffer struct {
	data []packet.M
	cap  int
}

func newMBuffer(cap int) *mBuffer {
	if cap < 16 {
		cap = 16
	}
	return &mBuffer{cap: cap}
}

func (b *mBuffer) Push(m packet.M) {
	b.data = append(b.data, m)
	if len(b.data) > b.cap {
		b.data = b.data[len(b.data)-b.cap:]
	}
}

func (b *mBuffer) Len() int { return len(b.data) }

// InterpolationPair returns the two most recent samples (for linear
// interpolation), and whether two are available.
func (b *mBuffer) InterpolationPair() (prev, last packet.M, ok bool) {
	n := len(b.data)
	if n < 2 {
		return packet.M{}, packet.M{}, false
	}
	return b.data[n-2], b.data[n-1], true
}

// LastSample returns the single most recent sample, if any.
func (b *mBuffer) LastSample() (packet.M, bool) {
	n := len(b.data)
	if n == 0 {
		return packet.M{}, false
	}
	return b.data[n-1], true
}
