package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/domain"
)

var (
	isoHeader   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	shortHeader = regexp.MustCompile(`(?i)^(\d{1,2})[-/\s](jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)$`)

	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// ResolveOptions controls year inference for short DD-Mon headers.
type ResolveOptions struct {
	// ReferenceYear is the year given to the first short header. Zero means
	// the year of Today.
	ReferenceYear int
	// Today bounds inferred dates; if the last one falls after it, every
	// inferred year moves back by one. Zero means time.Now.
	Today time.Time
}

func (o ResolveOptions) withDefaults() ResolveOptions {
	if o.Today.IsZero() {
		o.Today = time.Now()
	}
	o.Today = calendar.Day(o.Today)
	if o.ReferenceYear == 0 {
		o.ReferenceYear = o.Today.Year()
	}
	return o
}

type shortDate struct {
	index int
	day   int
	month time.Month
}

// ResolveCounts maps a cycle-count header onto column roles. The identifier
// is the column named "sku", otherwise the first column.
func ResolveCounts(header []string, opts ResolveOptions) domain.ColumnRoles {
	opts = opts.withDefaults()
	roles := domain.ColumnRoles{Identifier: -1, Description: -1, Vendor: -1, LeadTime: -1}
	if len(header) == 0 {
		return roles
	}

	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	roles.Identifier = 0
	for i, h := range lower {
		if h == "sku" {
			roles.Identifier = i
			break
		}
	}
	roles.Description = findColumn(lower, roles.Identifier, func(h string) bool {
		return strings.Contains(h, "desc")
	})
	roles.Vendor = findColumn(lower, roles.Identifier, func(h string) bool {
		return strings.Contains(h, "vendor") || strings.Contains(h, "supplier")
	})
	roles.LeadTime = findColumn(lower, roles.Identifier, func(h string) bool {
		return strings.Contains(h, "lead") && strings.Contains(h, "week")
	})

	var shorts []shortDate
	for i, h := range header {
		if i == roles.Identifier || i == roles.Description || i == roles.Vendor || i == roles.LeadTime {
			continue
		}
		label := strings.TrimSpace(h)
		if isoHeader.MatchString(label) {
			if d, err := calendar.ParseISO(label); err == nil {
				roles.DateColumns = append(roles.DateColumns, domain.DateColumn{Index: i, Label: label, Date: d})
			}
			continue
		}
		if m := shortHeader.FindStringSubmatch(label); m != nil {
			day, _ := strconv.Atoi(m[1])
			shorts = append(shorts, shortDate{index: i, day: day, month: months[strings.ToLower(m[2])]})
		}
	}

	roles.DateColumns = append(roles.DateColumns, inferYears(header, shorts, opts)...)
	sortByIndex(roles.DateColumns)
	return roles
}

// inferYears walks short headers in file order starting at the reference
// year and moves to the next year whenever the month goes backwards.
func inferYears(header []string, shorts []shortDate, opts ResolveOptions) []domain.DateColumn {
	if len(shorts) == 0 {
		return nil
	}
	build := func(startYear int) []domain.DateColumn {
		out := make([]domain.DateColumn, 0, len(shorts))
		year := startYear
		var prev time.Month
		for i, s := range shorts {
			if i > 0 && s.month < prev {
				year++
			}
			prev = s.month
			d := time.Date(year, s.month, s.day, 0, 0, 0, 0, time.UTC)
			if d.Month() != s.month {
				// 31-Feb and the like
				continue
			}
			out = append(out, domain.DateColumn{Index: s.index, Label: strings.TrimSpace(header[s.index]), Date: d})
		}
		return out
	}

	cols := build(opts.ReferenceYear)
	if len(cols) > 0 && cols[len(cols)-1].Date.After(opts.Today) {
		cols = build(opts.ReferenceYear - 1)
	}
	return cols
}

func findColumn(lower []string, skip int, match func(string) bool) int {
	for i, h := range lower {
		if i != skip && match(h) {
			return i
		}
	}
	return -1
}

func sortByIndex(cols []domain.DateColumn) {
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Index < cols[j].Index })
}

// Counts resolves a table into a dataset ready for the engine.
func Counts(name string, t Table, opts ResolveOptions) domain.Dataset {
	return domain.Dataset{
		Name:  name,
		Roles: ResolveCounts(t.Header, opts),
		Rows:  t.Rows,
	}
}

// LoadCounts reads and resolves a cycle-count export.
func LoadCounts(path string, opts ResolveOptions) (domain.Dataset, error) {
	t, err := ReadFile(path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("load counts: %w", err)
	}
	return Counts(filepath.Base(path), t, opts), nil
}
