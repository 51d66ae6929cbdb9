package intake

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date is a civil date with no time zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date, normalizing overflow the way time.Date does
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar date in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

func (d Date) After(o Date) bool { return d.Time().After(o.Time()) }

func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day) }

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// Month-first layouts exported by the student information systems we ingest. Day-first
// layouts are deliberately absent: 03/04/2024 is always March 4.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1-2-2006",
	"2006/1/2",
	"1/2/06",
	"1-2-06",
}

var timeSuffixes = []string{
	"",
	" 15:04",
	" 15:04:05",
	" 3:04 PM",
	" 3:04:05 PM",
	" 3:04PM",
	"T15:04:05",
}

// ParseDate parses a civil date, ignoring any time-of-day part. An RFC 3339 value
// keeps the calendar date it was written with, whatever its offset.
func ParseDate(raw string) (Date, error) {
	t, err := parseTime(raw)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// ParseDateTime parses the date and optional time formats above, plus RFC 3339,
// normalized to UTC
func ParseDateTime(raw string) (time.Time, error) {
	t, err := parseTime(raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		for _, suffix := range timeSuffixes {
			if t, err := time.Parse(layout+suffix, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
