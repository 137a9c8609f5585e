package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestDaysInYear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year int
		want int
	}{
		{2000, 366},
		{1900, 365},
		{2024, 366},
		{2023, 365},
		{2100, 365},
		{2400, 366},
	}
	for _, tt := range tests {
		if got := DaysInYear(tt.year); got != tt.want {
			t.Errorf("DaysInYear(%d) = %d, want %d", tt.year, got, tt.want)
		}
	}
}

func TestDaysInYear_MatchesRule(t *testing.T) {
	t.Parallel()

	for y := 1800; y <= 2400; y++ {
		want := 365
		if y%4 == 0 && (y%100 != 0 || y%400 == 0) {
			want = 366
		}
		if got := DaysInYear(y); got != want {
			t.Fatalf("DaysInYear(%d) = %d, want %d", y, got, want)
		}
		// Cross-check against the time package.
		if got := DaysBetween(YearStart(y), YearStart(y+1)); got != want {
			t.Fatalf("DaysBetween(Jan 1 %d, Jan 1 %d) = %d, want %d", y, y+1, got, want)
		}
	}
}

func TestDayIndexRoundTrip(t *testing.T) {
	t.Parallel()

	for _, year := range []int{1900, 2000, 2023, 2024} {
		for idx := 0; idx < DaysInYear(year); idx++ {
			d, err := FromDayIndex(year, idx)
			if err != nil {
				t.Fatalf("FromDayIndex(%d, %d): %v", year, idx, err)
			}
			if got := DayIndex(d); got != idx {
				t.Fatalf("DayIndex(%s) = %d, want %d", d, got, idx)
			}
		}
	}
}

func TestFromDayIndex_LeapDay(t *testing.T) {
	t.Parallel()

	d, err := FromDayIndex(2024, 59)
	if err != nil {
		t.Fatalf("FromDayIndex: %v", err)
	}
	want := Date{Year: 2024, Month: time.February, Day: 29}
	if d != want {
		t.Errorf("FromDayIndex(2024, 59) = %s, want %s", d, want)
	}
	if got := DayIndex(want); got != 59 {
		t.Errorf("DayIndex(%s) = %d, want 59", want, got)
	}
}

func TestFromDayIndex_OutOfRange(t *testing.T) {
	t.Parallel()

	for _, idx := range []int{-1, 365} {
		if _, err := FromDayIndex(2023, idx); !errors.Is(err, ErrDayIndexRange) {
			t.Errorf("FromDayIndex(2023, %d) err = %v, want ErrDayIndexRange", idx, err)
		}
	}
	if _, err := FromDayIndex(2024, 365); err != nil {
		t.Errorf("FromDayIndex(2024, 365) unexpected error: %v", err)
	}
}

func TestAddDaysAndCompare(t *testing.T) {
	t.Parallel()

	d := New(2023, time.December, 31)
	next := d.AddDays(1)
	if next != New(2024, time.January, 1) {
		t.Errorf("AddDays(1) = %s, want 2024-01-01", next)
	}
	if back := next.SubtractDays(1); back != d {
		t.Errorf("SubtractDays(1) = %s, want %s", back, d)
	}
	if Compare(d, next) != -1 || Compare(next, d) != 1 || Compare(d, d) != 0 {
		t.Error("Compare ordering is wrong")
	}
	if !d.Before(next) || !next.After(d) {
		t.Error("Before/After disagree with Compare")
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	d, err := Parse("2024-02-29")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("String() = %q", d.String())
	}
	if _, err := Parse("2023-02-29"); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestPosition(t *testing.T) {
	t.Parallel()

	epoch := New(2005, time.January, 1)
	d := New(2006, time.January, 1)
	p := PositionOf(epoch, d)
	if p != 365 {
		t.Errorf("PositionOf = %d, want 365", p)
	}
	if got := p.Date(epoch); got != d {
		t.Errorf("Date() = %s, want %s", got, d)
	}
	if got := Position(-3).Clamp(0, 10); got != 0 {
		t.Errorf("Clamp low = %d", got)
	}
	if got := Position(12).Clamp(0, 10); got != 10 {
		t.Errorf("Clamp high = %d", got)
	}
}
