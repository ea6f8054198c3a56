package forecast

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

const dateLayout = "2006-01-02"

// ErrInvalidTimezone is returned when the shop timezone is not a known IANA zone.
var ErrInvalidTimezone = errors.New("invalid timezone")

// Calendar evaluates instants in a shop's timezone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the IANA zone named tz.
func NewCalendar(tz string) (*Calendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, tz, err)
	}
	return &Calendar{loc: loc}, nil
}

// DateKey returns the YYYY-MM-DD date t falls on in the calendar's zone.
func (c *Calendar) DateKey(t time.Time) string {
	return t.In(c.loc).Format(dateLayout)
}

// Weekday returns 0 (Sunday) through 6 (Saturday) for t in the calendar's zone.
func (c *Calendar) Weekday(t time.Time) int {
	return int(t.In(c.loc).Weekday())
}

// Today returns the date key of now.
func (c *Calendar) Today(now time.Time) string {
	return c.DateKey(now)
}

// AddDays adds n calendar days to a YYYY-MM-DD date. The date is anchored
// at noon UTC so daylight-saving shifts never move it across a day boundary.
func AddDays(date string, n int) (string, error) {
	d, err := parseDay(date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, n).Format(dateLayout), nil
}

// WeekdayOf returns the day of week of a YYYY-MM-DD date key.
func WeekdayOf(date string) (int, error) {
	d, err := parseDay(date)
	if err != nil {
		return 0, err
	}
	return int(d.Weekday()), nil
}

func parseDay(date string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return d.Add(12 * time.Hour), nil
}
