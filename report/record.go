// Package report implements the post-fit output stage (C6): state +
// covariance in, labelled output records out, per spec.md §4.6. The
// default writer is a CSV-style text stream grounded on the teacher's
// ahrs.AHRSLogger (header-then-rows, os.File target); a second writer
// reuses the teacher's own github.com/gorilla/websocket dependency
// (ahrsweb/room.go's broadcast-room pattern) to stream records live.
package report

// Record is one tagged output row: mode tag (TU/MU/BP_TU/BP_MU),
// timestamp, position/velocity/attitude, and optional bias and one-sigma
// rows, per spec.md §4.6.
type Record struct {
	Tag   string
	ITOW  float64
	Year, Month, Day       int
	Hour, Minute           int
	Second                 float64
	HasCalendar            bool

	LatDeg, LonDeg, HeightM float64
	Vn, Ve, Vd              float64
	YawDeg, PitchDeg, RollDeg float64

	HasBias   bool
	AccelBias [3]float64
	GyroBias  [3]float64

	HasStdDev bool
	StdDev    []float64 // 9 core entries, +6 bias entries when HasBias
}
