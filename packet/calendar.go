package packet

import "time"

// gpsEpoch is the start of GPS time: 1980-01-06 00:00:00 UTC.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// CalendarConverter turns (week number, itow) plus a configured leap-second
// count and hour offset into a calendar timestamp, fed by a T packet's
// optional week_number/leap_seconds fields per spec.md §6.
type CalendarConverter struct {
	WeekNumber    int
	LeapSeconds   int
	HourOffsetSec float64
}

// Apply folds a T packet's optional fields into the converter's state.
func (c *CalendarConverter) Apply(t T) {
	if t.HasWeekNumber {
		c.WeekNumber = t.WeekNumber
	}
	if t.HasLeapSeconds {
		c.LeapSeconds = t.LeapSeconds
	}
}

// Calendar converts a GPS seconds-of-week timestamp to UTC, using the
// converter's current week number and leap-second correction, then
// applying the configured hour offset (--calendar_time[=±hr]).
func (c *CalendarConverter) Calendar(itow float64) time.Time {
	secs := float64(c.WeekNumber)*7*24*3600 + itow - float64(c.LeapSeconds)
	t := gpsEpoch.Add(time.Duration(secs * float64(time.Second)))
	return t.Add(time.Duration(c.HourOffsetSec * float64(time.Second)))
}
