package fusion

import (
	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/packet"
)

// initializeFromGPS implements spec.md §4.5's initialization: average the
// buffered A's accel vector for roll/pitch, pick yaw from (a) user
// override, (b) magnetic estimate if the M buffer is non-empty, else 0,
// seed position/velocity from the accepted G, then replay buffered A's in
// time order up to G.itow.
func (c *Controller) initializeFromGPS(g packet.G) {
	ax, ay, az := c.aBuf.Mean()
	roll, pitch := ins.AttitudeFromAccel(ax, ay, az)

	yaw := 0.0
	switch {
	case c.cfg.InitAttitudeDeg != nil:
		// --init_attitude_deg overrides the full accel-derived attitude,
		// not just yaw, per spec.md §6.
		att := c.cfg.InitAttitudeDeg
		yaw, pitch, roll = att[0], att[1], att[2]
	case c.cfg.InitYawOverride != nil:
		yaw = *c.cfg.InitYawOverride
	case c.cfg.UseMagnet && c.mBuf.Len() > 0:
		if sample, ok := c.mBuf.LastSample(); ok {
			seed := ins.Initialize(g.Solution.Lat, g.Solution.Lon, g.Solution.H,
				g.Solution.Vn, g.Solution.Ve, g.Solution.Vd, roll, pitch, 0, g.ITOW)
			if est, ok := magneticYawEstimate(seed, sample.Mag, c.cfg.MagModel); ok {
				yaw = est
			}
		}
	}

	// Seed the state at the oldest buffered A's itow using the accepted
	// fix's position/velocity (the fix is assumed constant over the short
	// buffered window), then replay every buffered A forward to bring the
	// state up to G.itow, per spec.md §4.5.
	seedITOW := g.ITOW
	if front, ok := c.aBuf.Front(); ok && front.ITOW < g.ITOW {
		seedITOW = front.ITOW
	}
	s := ins.Initialize(g.Solution.Lat, g.Solution.Lon, g.Solution.H,
		g.Solution.Vn, g.Solution.Ve, g.Solution.Vd, roll, pitch, yaw, seedITOW)
	if c.cfg.UseBias {
		s = s.WithBias(c.cfg.AccelCalibration.BiasBase, c.cfg.GyroCalibration.BiasBase)
	}
	c.state = s
	c.cov = c.initialCovariance()
	c.initialized = true

	for _, a := range c.aBuf.After(seedITOW) {
		if a.ITOW <= g.ITOW {
			c.timeUpdate(a)
		}
	}
}
