package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Time formats used by the remote service. Article dates follow the ctime
// shape ("Sat Oct  4 21:16:48 2025", single-digit days space-padded), which
// is exactly time.ANSIC. Comment times carry no year.
const (
	PostTimeLayout    = time.ANSIC
	CommentTimeLayout = "01/02 15:04"
	DayLayout         = "2006-01-02"
)

// Time parsing errors.
var (
	ErrInvalidClock = errors.New("invalid clock time, want HH:MM")
	ErrInvalidDay   = errors.New("invalid date, want YYYY-MM-DD")
)

// ParsePostTime parses a remote article timestamp. The remote clock is
// treated as the process-local zone.
func ParsePostTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(PostTimeLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse article date %q: %w", s, err)
	}

	return t, nil
}

// FormatPostTime renders a timestamp the way the remote service does.
func FormatPostTime(t time.Time) string {
	return t.Format(PostTimeLayout)
}

// Time parses the article's Date field.
func (a *Article) Time() (time.Time, error) {
	return ParsePostTime(a.Date)
}

// ParseDay parses a YYYY-MM-DD calendar date in the local zone.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}

	return t, nil
}

// DayOf truncates a timestamp to midnight of its calendar date.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Clock is a time of day, stored as minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" (00:00 - 23:59).
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	return Clock(hour*60 + minute), nil
}

// Hour returns the hour component.
func (c Clock) Hour() int {
	return int(c) / 60
}

// Minute returns the minute component.
func (c Clock) Minute() int {
	return int(c) % 60
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// OnDay anchors the clock to the calendar date of the given timestamp.
func (c Clock) OnDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location())
}
