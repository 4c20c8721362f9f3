package calendar

// DefaultRegion and DefaultVersion identify the built-in holiday table.
const (
	DefaultRegion  = "CA-ON"
	DefaultVersion = "2024-2026"
)

// defaultHolidays lists statutory holidays observed by the stores the tool
// was first built for. Years outside this table get weekend-only treatment.
var defaultHolidays = []string{
	"2024-01-01", "2024-02-19", "2024-03-29", "2024-05-20", "2024-07-01",
	"2024-09-02", "2024-10-14", "2024-12-25", "2024-12-26",

	"2025-01-01", "2025-02-17", "2025-04-18", "2025-05-19", "2025-07-01",
	"2025-09-01", "2025-10-13", "2025-12-25", "2025-12-26",

	"2026-01-01", "2026-02-16", "2026-04-03", "2026-05-18", "2026-07-01",
	"2026-09-07", "2026-10-12", "2026-12-25", "2026-12-28",
}

// DefaultTable returns a copy of the built-in holiday table.
func DefaultTable() HolidayTable {
	return HolidayTable{
		Region:  DefaultRegion,
		Version: DefaultVersion,
		Dates:   append([]string(nil), defaultHolidays...),
	}
}
