package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time stored as minutes since midnight.  It maps
// to a MySQL TIME column; seconds are truncated.
type TimeOfDay int

// MinutesPerDay bounds TimeOfDay values; 24:00 is a valid interval end.
const MinutesPerDay = 24 * 60

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// Add returns the time of day the given number of minutes later.  The result may reach
// MinutesPerDay but is not wrapped.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

// String renders HH:MM:SS, the MySQL TIME format.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:00", int(t)/60, int(t)%60)
}

// Short renders HH:MM for messages.
func (t TimeOfDay) Short() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On combines the time of day with a calendar date in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(t) * time.Minute)
}

// Value implements driver.Valuer.
func (t TimeOfDay) Value() (driver.Value, error) { return t.String(), nil }

// Scan implements sql.Scanner.  The MySQL driver returns TIME columns as
// bytes even with parseTime enabled.
func (t *TimeOfDay) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	case time.Time:
		*t = TimeOfDay(v.Hour()*60 + v.Minute())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON renders HH:MM.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Short() + `"`), nil
}

// UnmarshalJSON accepts HH:MM or HH:MM:SS.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	parsed, err := ParseTimeOfDay(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DateLayout is the wire and column format of calendar dates.
const DateLayout = "2006-01-02"

// CivilDate strips the clock from t, keeping its calendar date in its own
// location, and returns that date at midnight UTC.  All stored dates use
// this form so they compare with ==.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}
