package core

import (
	"fmt"
	"time"
)

// Month identifies a calendar month, the unit invoices and projections
// aggregate over.
type Month struct {
	Year int
	Mon  time.Month
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// ParseMonth parses the YYYY-MM form used throughout the CLI and the
// stored settings.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Mon
}

// Index maps the month onto a continuous scale so distances between
// months reduce to a subtraction.
func (m Month) Index() int {
	return m.Year*12 + int(m.Mon) - 1
}

func (m Month) Add(n int) Month {
	idx := m.Index() + n
	return Month{Year: idx / 12, Mon: time.Month(idx%12 + 1)}
}

// MonthsBetween returns how many calendar months separate from and to;
// positive when to is later.
func MonthsBetween(from, to Month) int {
	return to.Index() - from.Index()
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, mon time.Month) int {
	return time.Date(year, mon+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped advances t by n months, clamping the day of month to
// the last valid day instead of letting it overflow into the following
// month (Jan 31 + 1 month is Feb 29 on leap years, never Mar 2/3).
func AddMonthsClamped(t time.Time, n int) time.Time {
	target := MonthOf(t).Add(n)
	day := t.Day()
	if last := DaysIn(target.Year, target.Mon); day > last {
		day = last
	}
	return time.Date(target.Year, target.Mon, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYearsClamped advances t by n years with the same day clamping
// (Feb 29 lands on Feb 28 in non-leap years).
func AddYearsClamped(t time.Time, n int) time.Time {
	return AddMonthsClamped(t, n*12)
}

// StartOfDay truncates t to midnight in its own location. The initial
// status rule compares whole days, never instants.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
