package metrics

import (
	"fmt"
	"time"

	"restaurant-system/internal/models"
)

const dayLayout = "2006-01-02"

// normalize widens [start, end] to whole days in loc
func normalize(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	return startOfDay(start, loc), endOfDay(end, loc)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// ParseDate accepts YYYY-MM-DD, read in loc, or an RFC 3339 timestamp
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dayLayout, value, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD or RFC 3339", models.ErrInvalidInput, value)
}
