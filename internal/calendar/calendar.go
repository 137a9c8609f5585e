// Package calendar provides exact, leap-year-correct civil date arithmetic in
// whole days. All navigation math in stripes is done in integer day units, so
// nothing here ever carries a time of day or a timezone.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrDayIndexRange is returned by FromDayIndex when the index falls outside
// the given year.
var ErrDayIndexRange = errors.New("day index out of range for year")

const layout = "2006-01-02"

// Date is a civil calendar date. The zero value is not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the normalized date for year, month and day. Out-of-range
// components roll over the way time.Date does (Feb 30 becomes Mar 1 or 2).
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Parse reads a YYYY-MM-DD date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: parse %q: %w", s, err)
	}
	return FromTime(t), nil
}

// FromTime truncates t to its civil date in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format(layout)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns d shifted by n days; n may be negative.
func (d Date) AddDays(n int) Date {
	return New(d.Year, d.Month, d.Day+n)
}

// SubtractDays returns d shifted back by n days.
func (d Date) SubtractDays(n int) Date {
	return d.AddDays(-n)
}

// Compare returns -1, 0 or +1 as a is before, equal to, or after b.
func Compare(a, b Date) int {
	switch {
	case a.Year != b.Year:
		return sign(a.Year - b.Year)
	case a.Month != b.Month:
		return sign(int(a.Month) - int(b.Month))
	default:
		return sign(a.Day - b.Day)
	}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return Compare(d, o) < 0 }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return Compare(d, o) > 0 }

// DaysBetween returns the signed number of days from a to b.
func DaysBetween(a, b Date) int {
	// Both are UTC midnights, so the duration is an exact multiple of 24h.
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// YearStart returns January 1st of year.
func YearStart(year int) Date {
	return Date{Year: year, Month: time.January, Day: 1}
}

// YearEnd returns December 31st of year.
func YearEnd(year int) Date {
	return Date{Year: year, Month: time.December, Day: 31}
}

// DayIndex returns the zero-based day of the year for d (Jan 1 is 0).
func DayIndex(d Date) int {
	return d.Time().YearDay() - 1
}

// FromDayIndex is the inverse of DayIndex.
func FromDayIndex(year, index int) (Date, error) {
	if index < 0 || index >= DaysInYear(year) {
		return Date{}, fmt.Errorf("calendar: %d in %d: %w", index, year, ErrDayIndexRange)
	}
	return YearStart(year).AddDays(index), nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
