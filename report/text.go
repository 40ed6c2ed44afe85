package report

import (
	"fmt"
	"os"
	"strings"
)

// TextWriter is the default C6 sink: a header-then-rows comma-separated
// stream to a file, grounded on ahrs.AHRSLogger's pattern of writing a
// joined header line once and then formatting each row through a single
// pre-built Sprintf-style format string rather than re-joining per row.
// Unlike AHRSLogger's map-driven column set, TextWriter's columns are
// fixed by Record's shape, decided from the first Record it sees (whether
// that one carries bias and/or stddev columns) and held fixed after.
type TextWriter struct {
	f           *os.File
	header      []string
	format      string
	wroteHeader bool
	hasBias     bool
	hasStdDev   bool
	stdDevLen   int
}

// NewTextWriter creates (or truncates) filename and returns a TextWriter
// ready to receive Records.
func NewTextWriter(filename string) (*TextWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &TextWriter{f: f}, nil
}

func (w *TextWriter) columns(r Record) []string {
	cols := []string{"tag", "itow", "lat_deg", "lon_deg", "height_m", "vn", "ve", "vd", "yaw_deg", "pitch_deg", "roll_deg"}
	if r.HasCalendar {
		cols = append(cols, "year", "month", "day", "hour", "minute", "second")
	}
	if r.HasBias {
		cols = append(cols, "accel_bias_x", "accel_bias_y", "accel_bias_z", "gyro_bias_x", "gyro_bias_y", "gyro_bias_z")
	}
	if r.HasStdDev {
		for i := range r.StdDev {
			cols = append(cols, fmt.Sprintf("sigma_%d", i))
		}
	}
	return cols
}

func (w *TextWriter) values(r Record) []interface{} {
	vals := []interface{}{r.Tag, r.ITOW, r.LatDeg, r.LonDeg, r.HeightM, r.Vn, r.Ve, r.Vd, r.YawDeg, r.PitchDeg, r.RollDeg}
	if r.HasCalendar {
		vals = append(vals, r.Year, r.Month, r.Day, r.Hour, r.Minute, r.Second)
	}
	if r.HasBias {
		vals = append(vals,
			r.AccelBias[0], r.AccelBias[1], r.AccelBias[2],
			r.GyroBias[0], r.GyroBias[1], r.GyroBias[2])
	}
	if r.HasStdDev {
		for _, v := range r.StdDev {
			vals = append(vals, v)
		}
	}
	return vals
}

// Write appends one formatted row, writing the header line first if this
// is the first Record this writer has seen.
func (w *TextWriter) Write(r Record) {
	if !w.wroteHeader {
		w.header = w.columns(r)
		w.hasBias, w.hasStdDev, w.stdDevLen = r.HasBias, r.HasStdDev, len(r.StdDev)
		fmt.Fprint(w.f, strings.Join(w.header, ","), "\n")
		w.format = buildRowFormat(w.header)
		w.wroteHeader = true
	}
	r.HasBias = w.hasBias
	r.HasStdDev = w.hasStdDev
	for len(r.StdDev) < w.stdDevLen {
		r.StdDev = append(r.StdDev, 0)
	}
	fmt.Fprintf(w.f, w.format, w.values(r)...)
}

// Close closes the underlying file; rows are written to it unbuffered.
func (w *TextWriter) Close() error { return w.f.Close() }

// buildRowFormat returns a "%s,%v,%v,...\n" format string sized for the
// given column list; the first column (tag) is a string, every other
// column is a float or int, both of which %v-style verb "%v" handles.
func buildRowFormat(header []string) string {
	parts := make([]string, len(header))
	for i := range header {
		if i == 0 {
			parts[i] = "%s"
			continue
		}
		parts[i] = "%v"
	}
	return strings.Join(parts, ",") + "\n"
}
