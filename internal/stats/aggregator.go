// Package stats computes totals and per-category breakdowns over the
// expense ledger for month, week, year and timeline windows. Every call
// recomputes from the store; nothing is cached.
package stats

import (
	"sort"
	"time"

	"smart-expense-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// LedgerStore is the read path the aggregator needs: every entry of one
// kind for one user inside an inclusive date window.
type LedgerStore interface {
	EntriesInRange(userID string, start, end time.Time, kind models.Kind) ([]models.Entry, error)
}

// Aggregator answers statistics queries scoped to a single user and kind.
type Aggregator struct {
	store LedgerStore
}

// New returns an Aggregator reading from store.
func New(store LedgerStore) *Aggregator {
	return &Aggregator{store: store}
}

// CategoryTotal is one category's share of a window: summed amount and
// number of entries.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Period selects the bucketing of a timeline query.
type Period string

const (
	PeriodYear  Period = "year"
	PeriodMonth Period = "month"
	PeriodWeek  Period = "week"
)

// Valid reports whether p is a recognized timeline period.
func (p Period) Valid() bool {
	return p == PeriodYear || p == PeriodMonth || p == PeriodWeek
}

// TimelineBucket is one time slot of a timeline query. Which components are
// set depends on the period: year buckets carry (year, month), month
// buckets (year, month, day), week buckets (year, iso week, day).
type TimelineBucket struct {
	Year  int             `json:"year"`
	Month *int            `json:"month,omitempty"`
	Week  *int            `json:"week,omitempty"`
	Day   *int            `json:"day,omitempty"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// MonthWindow returns the inclusive bounds of a calendar month: midnight on
// the first day through the last instant of the last day.
func MonthWindow(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// YearWindow returns the inclusive bounds of a calendar year.
func YearWindow(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

// MonthlyTotal sums all amounts of the given kind inside the calendar
// month. Zero when nothing matches.
func (a *Aggregator) MonthlyTotal(userID string, month time.Month, year int, kind models.Kind) (decimal.Decimal, error) {
	start, end := MonthWindow(year, month)
	entries, err := a.store.EntriesInRange(userID, start, end, kind)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total, nil
}

// MonthlyCategoryTotals groups the calendar month's entries of one kind by
// category, sorted by total descending.
func (a *Aggregator) MonthlyCategoryTotals(userID string, month time.Month, year int, kind models.Kind) ([]CategoryTotal, error) {
	start, end := MonthWindow(year, month)
	return a.RangeCategoryTotals(userID, start, end, kind)
}

// RangeCategoryTotals groups entries of one kind over an arbitrary
// inclusive window by category, sorted by total descending. This backs the
// weekly statistics endpoint, whose window need not align to a calendar
// week.
func (a *Aggregator) RangeCategoryTotals(userID string, start, end time.Time, kind models.Kind) ([]CategoryTotal, error) {
	entries, err := a.store.EntriesInRange(userID, start, end, kind)
	if err != nil {
		return nil, err
	}
	return groupByCategory(entries), nil
}

// YearlyCategoryTotals groups the calendar year's entries of one kind by
// category, sorted by total descending.
func (a *Aggregator) YearlyCategoryTotals(userID string, year int, kind models.Kind) ([]CategoryTotal, error) {
	start, end := YearWindow(year)
	return a.RangeCategoryTotals(userID, start, end, kind)
}

// SumCategoryTotals adds up the totals of a category breakdown. Because
// category groups partition the window's entries, this equals the overall
// total for the same window and kind.
func SumCategoryTotals(totals []CategoryTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, ct := range totals {
		sum = sum.Add(ct.Total)
	}
	return sum
}

// Timeline buckets one kind's entries over time. period=year buckets by
// month across the full year; period=month buckets by day across the given
// month; period=week buckets by (iso week, day) over [weekStart, weekEnd]
// when both are supplied, falling back to the month's bounds when they are
// not (the behavior the original month-bound fallback callers rely on).
// Buckets come back sorted ascending by (year, month, day), skipping
// components a period does not carry.
func (a *Aggregator) Timeline(userID string, period Period, year int, month time.Month, kind models.Kind, weekStart, weekEnd *time.Time) ([]TimelineBucket, error) {
	var start, end time.Time
	switch period {
	case PeriodYear:
		start, end = YearWindow(year)
	case PeriodMonth:
		start, end = MonthWindow(year, month)
	case PeriodWeek:
		if weekStart != nil && weekEnd != nil {
			start, end = *weekStart, *weekEnd
		} else {
			start, end = MonthWindow(year, month)
		}
	default:
		return nil, &models.ValidationError{Field: "period", Reason: "must be year, month or week"}
	}

	entries, err := a.store.EntriesInRange(userID, start, end, kind)
	if err != nil {
		return nil, err
	}

	type key struct{ year, month, week, day int }
	const absent = -1
	buckets := make(map[key]*TimelineBucket)
	for _, e := range entries {
		k := key{year: e.Date.Year(), month: absent, week: absent, day: absent}
		switch period {
		case PeriodYear:
			k.month = int(e.Date.Month())
		case PeriodMonth:
			k.month = int(e.Date.Month())
			k.day = e.Date.Day()
		case PeriodWeek:
			_, wk := e.Date.ISOWeek()
			k.week = wk
			k.day = e.Date.Day()
		}
		b, ok := buckets[k]
		if !ok {
			b = &TimelineBucket{Year: k.year, Total: decimal.Zero}
			if k.month != absent {
				m := k.month
				b.Month = &m
			}
			if k.week != absent {
				w := k.week
				b.Week = &w
			}
			if k.day != absent {
				d := k.day
				b.Day = &d
			}
			buckets[k] = b
		}
		b.Total = b.Total.Add(e.Amount)
		b.Count++
	}

	result := make([]TimelineBucket, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != nil && b.Month != nil && *a.Month != *b.Month {
			return *a.Month < *b.Month
		}
		if a.Day != nil && b.Day != nil && *a.Day != *b.Day {
			return *a.Day < *b.Day
		}
		return false
	})
	return result, nil
}

func groupByCategory(entries []models.Entry) []CategoryTotal {
	groups := make(map[string]*CategoryTotal)
	for _, e := range entries {
		g, ok := groups[e.Category]
		if !ok {
			g = &CategoryTotal{Category: e.Category, Total: decimal.Zero}
			groups[e.Category] = g
		}
		g.Total = g.Total.Add(e.Amount)
		g.Count++
	}

	totals := make([]CategoryTotal, 0, len(groups))
	for _, g := range groups {
		totals = append(totals, *g)
	}
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Total.GreaterThan(totals[j].Total)
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}
