// Package calendar answers working-day questions against a fixed holiday table.
package calendar

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ISOLayout is the date layout used for holiday keys and ISO headers.
const ISOLayout = "2006-01-02"

// HolidayTable is a versioned list of statutory holidays for one region.
type HolidayTable struct {
	Region  string   `toml:"region"`
	Version string   `toml:"version"`
	Dates   []string `toml:"dates"`
}

// LoadError represents an error that occurred while loading a holiday table.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading holiday table from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Calendar is immutable once built and safe for concurrent use.
type Calendar struct {
	region   string
	version  string
	holidays map[string]struct{}
}

// New builds a calendar from a holiday table. Every date must be ISO formatted.
func New(table HolidayTable) (*Calendar, error) {
	holidays := make(map[string]struct{}, len(table.Dates))
	for _, d := range table.Dates {
		t, err := ParseISO(d)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", d, err)
		}
		holidays[FormatISO(t)] = struct{}{}
	}
	return &Calendar{
		region:   table.Region,
		version:  table.Version,
		holidays: holidays,
	}, nil
}

// Default returns the calendar backed by the built-in holiday table.
func Default() *Calendar {
	cal, err := New(DefaultTable())
	if err != nil {
		// the built-in table is validated by tests
		panic(err)
	}
	return cal
}

// LoadTable reads a holiday table from a TOML file:
//
//	region = "CA-ON"
//	version = "2027"
//	dates = ["2027-01-01", "2027-02-15"]
func LoadTable(path string) (HolidayTable, error) {
	var table HolidayTable
	data, err := os.ReadFile(path)
	if err != nil {
		return table, &LoadError{Path: path, Err: err}
	}
	if _, err := toml.Decode(string(data), &table); err != nil {
		return table, &LoadError{Path: path, Err: err}
	}
	if len(table.Dates) == 0 {
		return table, &LoadError{Path: path, Err: errors.New("no holiday dates listed")}
	}
	return table, nil
}

// Region returns the region code of the loaded table.
func (c *Calendar) Region() string { return c.region }

// Version returns the version label of the loaded table.
func (c *Calendar) Version() string { return c.version }

// IsHoliday reports whether t is a listed holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[FormatISO(t)]
	return ok
}

// IsWorkingDay is false on Saturday, Sunday and listed holidays. The weekday
// is taken in UTC so the answer never depends on the host timezone.
func (c *Calendar) IsWorkingDay(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(t)
}

// CountWorkingDays counts working days in (start, end]. It returns 0 when
// end is not after start.
func (c *Calendar) CountWorkingDays(start, end time.Time) int {
	s := Day(start)
	e := Day(end)
	if !e.After(s) {
		return 0
	}
	count := 0
	for d := s.AddDate(0, 0, 1); !d.After(e); d = d.AddDate(0, 0, 1) {
		if c.IsWorkingDay(d) {
			count++
		}
	}
	return count
}

// ParseISO parses a YYYY-MM-DD string into a UTC midnight time.
func ParseISO(s string) (time.Time, error) {
	return time.Parse(ISOLayout, strings.TrimSpace(s))
}

// FormatISO renders t as YYYY-MM-DD in UTC.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (negative if b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
