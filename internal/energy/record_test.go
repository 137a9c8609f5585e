package energy

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/papapumpkin/stripes/internal/calendar"
)

// testRecord builds a valid record where every unit runs at a constant
// capacity factor except the final lastAbsent days, which are missing.
func testRecord(year int, facility string, lastAbsent int, codes ...string) *YearRecord {
	days := calendar.DaysInYear(year)
	rec := &YearRecord{Year: year}
	for i, code := range codes {
		s := NewSeries(days)
		for d := 0; d < days-lastAbsent; d++ {
			s[d] = float64(50 + i)
		}
		rec.Units = append(rec.Units, Unit{Code: code, Facility: facility, Fueltech: "coal_black", Values: s})
	}
	return rec
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*YearRecord)
		wantErr bool
	}{
		{"valid", func(*YearRecord) {}, false},
		{"short series", func(r *YearRecord) { r.Units[0].Values = r.Units[0].Values[:300] }, true},
		{"value above 100", func(r *YearRecord) { r.Units[0].Values[10] = 100.5 }, true},
		{"negative value", func(r *YearRecord) { r.Units[0].Values[10] = -1 }, true},
		{"absent values ok", func(r *YearRecord) { r.Units[0].Values[10] = math.NaN() }, false},
		{"missing facility", func(r *YearRecord) { r.Units[0].Facility = "" }, true},
		{"zero year", func(r *YearRecord) { r.Year = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := testRecord(2023, "Eraring", 0, "ER01", "ER02")
			tt.mutate(rec)
			err := rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v does not wrap ErrMalformed", err)
			}
		})
	}
}

func TestValidate_LeapYearLength(t *testing.T) {
	t.Parallel()

	rec := testRecord(2024, "Eraring", 0, "ER01")
	if len(rec.Units[0].Values) != 366 {
		t.Fatalf("len = %d, want 366", len(rec.Units[0].Values))
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFacility(t *testing.T) {
	t.Parallel()

	rec := testRecord(2023, "Eraring", 0, "ER01", "ER02")
	rec.Units = append(rec.Units, testRecord(2023, "Bayswater", 0, "BW01").Units...)

	units, err := rec.Facility("eraring")
	if err != nil {
		t.Fatalf("Facility: %v", err)
	}
	if len(units) != 2 {
		t.Errorf("got %d units, want 2", len(units))
	}

	_, err = rec.Facility("Liddell")
	var nf *DataNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want *DataNotFoundError", err)
	}
	if nf.Facility != "Liddell" || nf.Year != 2023 {
		t.Errorf("unexpected error fields: %+v", nf)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("DataNotFoundError should match ErrNotFound")
	}

	if got := rec.Facilities(); len(got) != 2 || got[0] != "Bayswater" {
		t.Errorf("Facilities() = %v", got)
	}
}

func TestLastDataDay(t *testing.T) {
	t.Parallel()

	rec := testRecord(2024, "Eraring", 10, "ER01")
	idx, ok := rec.LastDataDay()
	if !ok || idx != 355 {
		t.Errorf("LastDataDay() = %d, %v; want 355, true", idx, ok)
	}

	empty := testRecord(2024, "Eraring", 366, "ER01")
	if _, ok := empty.LastDataDay(); ok {
		t.Error("expected no data day for an all-absent record")
	}
}

func TestSeriesJSONNulls(t *testing.T) {
	t.Parallel()

	var s Series
	if err := json.Unmarshal([]byte(`[1.5,null,99]`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v, ok := s.At(1); ok {
		t.Errorf("At(1) = %v, want absent", v)
	}
	if v, ok := s.At(2); !ok || v != 99 {
		t.Errorf("At(2) = %v, %v", v, ok)
	}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `[1.5,null,99]` {
		t.Errorf("Marshal = %s", out)
	}
	if s.Present() != 2 {
		t.Errorf("Present() = %d, want 2", s.Present())
	}
}

func TestFetchErrorTemporary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   bool
	}{
		{0, true},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
	}
	for _, tt := range tests {
		e := &FetchError{Year: 2023, Source: "http", StatusCode: tt.status}
		if got := e.Temporary(); got != tt.want {
			t.Errorf("status %d: Temporary() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
