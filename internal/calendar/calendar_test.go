package calendar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := ParseISO(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDefaultTableIsValid(t *testing.T) {
	table := DefaultTable()
	cal, err := New(table)
	require.NoError(t, err)
	assert.Len(t, table.Dates, 27)
	assert.Equal(t, DefaultRegion, cal.Region())
	assert.Equal(t, DefaultVersion, cal.Version())
}

func TestCalendar_IsWorkingDay(t *testing.T) {
	cal := Default()

	tests := []struct {
		name string
		date string
		want bool
	}{
		{"New Year holiday on a Monday", "2024-01-01", false},
		{"Saturday", "2024-01-06", false},
		{"Sunday", "2024-01-07", false},
		{"Plain Monday", "2024-01-08", true},
		{"Good Friday", "2024-03-29", false},
		{"Christmas 2025", "2025-12-25", false},
		{"Year outside table is weekend-only", "2027-01-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsWorkingDay(day(tt.date)))
		})
	}
}

func TestCalendar_IsWorkingDayIgnoresLocalZone(t *testing.T) {
	cal := Default()
	// 2024-01-08 00:00 UTC is still Sunday evening in Toronto
	toronto := time.FixedZone("EST", -5*3600)
	local := day("2024-01-08").In(toronto)
	assert.True(t, cal.IsWorkingDay(local))
}

func TestCalendar_CountWorkingDays(t *testing.T) {
	cal := Default()

	tests := []struct {
		name       string
		start, end string
		want       int
	}{
		{"Same day", "2024-06-03", "2024-06-03", 0},
		{"End before start", "2024-06-07", "2024-06-03", 0},
		{"Start excluded end included", "2024-06-03", "2024-06-04", 1},
		{"Mon to Fri", "2024-06-03", "2024-06-07", 4},
		{"Full week", "2024-06-03", "2024-06-10", 5},
		{"Across weekend and holiday", "2023-12-29", "2024-01-02", 1},
		{"Holiday week", "2024-01-01", "2024-01-08", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.CountWorkingDays(day(tt.start), day(tt.end)))
		})
	}
}

func TestCalendar_CountWorkingDaysNeverNegative(t *testing.T) {
	cal := Default()
	start := day("2024-01-01")
	for i := -30; i <= 0; i++ {
		assert.Zero(t, cal.CountWorkingDays(start, start.AddDate(0, 0, i)))
	}
}

func TestCalendar_CustomTable(t *testing.T) {
	cal, err := New(HolidayTable{Region: "TEST", Version: "1", Dates: []string{"2024-06-05"}})
	require.NoError(t, err)

	assert.False(t, cal.IsWorkingDay(day("2024-06-05")))
	assert.Equal(t, 3, cal.CountWorkingDays(day("2024-06-03"), day("2024-06-07")))
}

func TestNew_RejectsBadDates(t *testing.T) {
	_, err := New(HolidayTable{Dates: []string{"25/12/2024"}})
	assert.Error(t, err)
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holidays.toml")
	content := "region = \"CA-BC\"\nversion = \"2027\"\ndates = [\"2027-01-01\", \"2027-07-01\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, "CA-BC", table.Region)
	assert.Equal(t, []string{"2027-01-01", "2027-07-01"}, table.Dates)

	cal, err := New(table)
	require.NoError(t, err)
	assert.False(t, cal.IsWorkingDay(day("2027-01-01")))
}

func TestLoadTable_Errors(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "missing.toml"))
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	path := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(path, []byte("region = \"X\"\n"), 0o644))
	_, err = LoadTable(path)
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 7, DaysBetween(day("2024-06-03"), day("2024-06-10")))
	assert.Equal(t, -2, DaysBetween(day("2024-06-05"), day("2024-06-03")))
}
