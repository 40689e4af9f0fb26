package timetable

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	MinWeekID = 0
	MaxWeekID = 52

	// SyntheticClassID marks weeks that do not belong to a real class (teacher timetables).
	SyntheticClassID = -1

	dateLayout    = "2006-01-02"
	payloadLayout = "2. 1. 2006"
	clockLayout   = "15:04"
)

// Date is a calendar date without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(layout, s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// At returns the instant of clock c on date d in loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

func (d Date) AddDays(n int) Date { return DateOf(d.time().AddDate(0, 0, n)) }
func (d Date) Before(o Date) bool { return d.time().Before(o.time()) }
func (d Date) After(o Date) bool { return d.time().After(o.time()) }
func (d Date) Equal(o Date) bool { return d == o }
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }
func (d Date) IsZero() bool { return d == Date{} }
func (d Date) String() string { return d.time().Format(dateLayout) }
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(dateLayout, s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

var Midnight = Clock{}

// ParseClock parses "H:mm" (or "HH:mm").
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return Clock{}, err
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) Before(o Clock) bool { return c.minutes() < o.minutes() }
func (c Clock) Compare(o Clock) int { return c.minutes() - o.minutes() }
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeRange is the start and end of a period.
// The zero value (midnight to midnight) is UnknownTimeRange: the time could not be read from the markup.
type TimeRange struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

var UnknownTimeRange = TimeRange{Start: Midnight, End: Midnight}

// Known reports whether r is a real time range (not UnknownTimeRange).
func (r TimeRange) Known() bool {
	return r != UnknownTimeRange
}

func (r TimeRange) String() string {
	if !r.Known() {
		return "?"
	}
	return r.Start.String() + "-" + r.End.String()
}
