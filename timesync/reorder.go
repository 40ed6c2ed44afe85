package timesync

import (
	"container/heap"

	"github.com/westphae/insgps/packet"
)

const secondsPerWeek = 7 * 24 * 3600

// ReorderBuffer sorts packets by itow, correcting the one-week rollover
// spec.md §4.4 calls out (a new itow that drops by roughly a full week is
// treated as the next week's count, not as time running backward). Used
// by OFFLINE directly, and by BACK_PROPAGATION to obtain the same
// monotonic delivery order before the snapshot ring gets involved.
type ReorderBuffer struct {
	pq       packetHeap
	lastITOW float64
	haveLast bool
	watermark float64
}

// NewReorderBuffer returns an empty buffer.
func NewReorderBuffer() *ReorderBuffer {
	rb := &ReorderBuffer{}
	heap.Init(&rb.pq)
	return rb
}

// Push inserts a packet, correcting its itow for week rollover relative to
// the newest (rollover-corrected) itow pushed so far, so every packet
// after the rollover, not only the first, sorts into the next week.
func (rb *ReorderBuffer) Push(p packet.Packet) {
	raw := p.ITOW()
	corrected := raw
	if rb.haveLast && rb.watermark-raw > secondsPerWeek/2 {
		corrected = raw + secondsPerWeek
	}
	rb.lastITOW = raw
	rb.haveLast = true
	if corrected > rb.watermark {
		rb.watermark = corrected
	}
	heap.Push(&rb.pq, itemOf(p, corrected))
}

// Ready pops and returns, in itow order, every buffered packet old enough
// relative to the current watermark that no future rollover-corrected
// arrival could still precede it (i.e. whose itow <= watermark - horizon).
// Call Drain at end-of-stream to flush everything regardless of horizon.
func (rb *ReorderBuffer) Ready(horizon float64) []packet.Packet {
	var out []packet.Packet
	for rb.pq.Len() > 0 && rb.pq[0].itow <= rb.watermark-horizon {
		it := heap.Pop(&rb.pq).(item)
		out = append(out, it.p)
	}
	return out
}

// Drain pops every remaining buffered packet in itow order, regardless of
// horizon; used at end-of-stream.
func (rb *ReorderBuffer) Drain() []packet.Packet {
	var out []packet.Packet
	for rb.pq.Len() > 0 {
		it := heap.Pop(&rb.pq).(item)
		out = append(out, it.p)
	}
	return out
}

// Len reports the number of packets currently buffered.
func (rb *ReorderBuffer) Len() int { return rb.pq.Len() }

type item struct {
	p    packet.Packet
	itow float64
}

func itemOf(p packet.Packet, itow float64) item { return item{p: p, itow: itow} }

type packetHeap []item

func (h packetHeap) Len() int            { return len(h) }
func (h packetHeap) Less(i, j int) bool  { return h[i].itow < h[j].itow }
func (h packetHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i] }
func (h *packetHeap) Push(x interface{}) { *h = append(*h, x.(item)) }
func (h *packetHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
