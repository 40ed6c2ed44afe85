package fusion

import (
	"math"

	"github.com/westphae/insgps/packet"
)

// passesContinualGate reports whether a G fix is accurate enough to
// correct an already-initialized filter (spec.md §4.5).
func (c *Controller) passesContinualGate(g packet.G) bool {
	return g.Solution.Sigma2D < c.cfg.ContAcc2D
}

// passesInitGate reports whether a G fix is accurate enough to seed
// initialization, and whether it arrives in sync with the buffered A
// window: |A_front.itow − G.itow| < 0.1 · len(A_buffer), per
// _examples/original_source/tool/INS_GPS.cpp's
// "recent_a.buf.size() >= min_a_packets_for_init &&
// abs(recent_a.buf.front().itow - g_packet.itow) < (0.1 * recent_a.buf.size())"
// — the 0.1 factor there scales the buffered packet *count*, not the
// buffer's time span.
func (c *Controller) passesInitGate(g packet.G) bool {
	if g.Solution.Sigma2D > c.cfg.InitAcc2D || g.Solution.SigmaH > c.cfg.InitAccV {
		return false
	}
	front, ok := c.aBuf.Front()
	if !ok {
		return false
	}
	margin := 0.1 * float64(c.aBuf.Len())
	return math.Abs(front.ITOW-g.ITOW) < margin
}
