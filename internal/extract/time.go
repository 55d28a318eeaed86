package extract

import (
	"time"

	"github.com/justestif/go-sparkify-etl/internal/records"
)

// TimeFromMillis derives a time dimension row from an epoch timestamp in
// milliseconds. All fields are computed in UTC.
func TimeFromMillis(ms int64) records.Time {
	t := time.UnixMilli(ms).UTC()
	_, week := t.ISOWeek()
	return records.Time{
		StartTime: t,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}
