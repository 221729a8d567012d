package util

import (
	"time"

	"github.com/jinzhu/now"
)

// Datetime related utility functions. Event timestamps are unix microseconds
// (GA4 export convention), all day bucketing is UTC.
const (
	DATETIME_FORMAT_YYYYMMDD_HYPHEN string = "2006-01-02"
	DATETIME_FORMAT_DB              string = "2006-01-02 15:04:05"

	SecsInADay      = int64(86400)
	MicrosPerSecond = int64(1000000)
	MicrosInADay    = SecsInADay * MicrosPerSecond
)

// TimeNowZ Return current time in UTC. Should be used everywhere to avoid local timezone.
func TimeNowZ() time.Time {
	return time.Now().UTC()
}

// TimeNowUnixMicro Returns current epoch time in microseconds.
func TimeNowUnixMicro() int64 {
	return TimeNowZ().UnixNano() / int64(time.Microsecond)
}

func TimeFromMicros(timestamp int64) time.Time {
	return time.Unix(timestamp/MicrosPerSecond, (timestamp%MicrosPerSecond)*int64(time.Microsecond)).UTC()
}

// GetDateOnlyFromMicrosZ Returns UTC date in YYYY-MM-DD format for an event timestamp.
func GetDateOnlyFromMicrosZ(timestamp int64) string {
	return TimeFromMicros(timestamp).Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN)
}

// GetBeginningOfDayMicrosZ Returns beginning of UTC day for an event timestamp, in micros.
func GetBeginningOfDayMicrosZ(timestamp int64) int64 {
	dayStart := now.New(TimeFromMicros(timestamp)).BeginningOfDay()
	return dayStart.Unix() * MicrosPerSecond
}

// DaysBetweenMicrosZ Whole UTC calendar days between two event timestamps.
func DaysBetweenMicrosZ(from, to int64) int64 {
	return (GetBeginningOfDayMicrosZ(to) - GetBeginningOfDayMicrosZ(from)) / MicrosInADay
}
