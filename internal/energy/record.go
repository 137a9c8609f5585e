package energy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/papapumpkin/stripes/internal/calendar"
)

// Unit is one generating unit's daily capacity factors for a year.
type Unit struct {
	Code       string  `json:"code" msgpack:"code"`
	Facility   string  `json:"facility" msgpack:"facility"`
	Fueltech   string  `json:"fueltech,omitempty" msgpack:"fueltech"`
	CapacityMW float64 `json:"capacity_mw,omitempty" msgpack:"capacity_mw"`
	Values     Series  `json:"values" msgpack:"values"`
}

// YearRecord holds every unit's series for one calendar year. Records are
// treated as immutable once stored; a refetch replaces the whole record.
type YearRecord struct {
	Year      int       `json:"year" msgpack:"year"`
	Units     []Unit    `json:"units" msgpack:"units"`
	FetchedAt time.Time `json:"fetched_at,omitempty" msgpack:"fetched_at"`
}

// Fetcher retrieves a full year of data from an external source.
type Fetcher interface {
	FetchYear(ctx context.Context, year int) (*YearRecord, error)
}

// Spanner is implemented by sources that can report the window of dates for
// which they hold data.
type Spanner interface {
	Span(ctx context.Context) (first, last calendar.Date, err error)
}

// Validate checks series lengths against the year's day count and value
// ranges. Capacity factors are percentages in [0,100].
func (r *YearRecord) Validate() error {
	if r.Year <= 0 {
		return fmt.Errorf("energy: year %d: %w", r.Year, ErrMalformed)
	}
	days := calendar.DaysInYear(r.Year)
	for _, u := range r.Units {
		if u.Code == "" || u.Facility == "" {
			return fmt.Errorf("energy: %d: unit missing code or facility: %w", r.Year, ErrMalformed)
		}
		if len(u.Values) != days {
			return fmt.Errorf("energy: %d: unit %s has %d values, want %d: %w",
				r.Year, u.Code, len(u.Values), days, ErrMalformed)
		}
		for i, v := range u.Values {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v > 100 {
				return fmt.Errorf("energy: %d: unit %s day %d value %.2f outside [0,100]: %w",
					r.Year, u.Code, i, v, ErrMalformed)
			}
		}
	}
	return nil
}

// Facility returns the units belonging to name, in their stored order.
func (r *YearRecord) Facility(name string) ([]Unit, error) {
	var units []Unit
	for _, u := range r.Units {
		if strings.EqualFold(u.Facility, name) {
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		return nil, &DataNotFoundError{Year: r.Year, Facility: name}
	}
	return units, nil
}

// Facilities lists the distinct facility names in the record, sorted.
func (r *YearRecord) Facilities() []string {
	seen := make(map[string]bool)
	var names []string
	for _, u := range r.Units {
		if !seen[u.Facility] {
			seen[u.Facility] = true
			names = append(names, u.Facility)
		}
	}
	sort.Strings(names)
	return names
}

// LastDataDay returns the highest day index for which any unit has a value.
func (r *YearRecord) LastDataDay() (int, bool) {
	last := -1
	for _, u := range r.Units {
		for i := len(u.Values) - 1; i > last; i-- {
			if !math.IsNaN(u.Values[i]) {
				last = i
				break
			}
		}
	}
	return last, last >= 0
}

// SizeBytes estimates the in-memory footprint used for cache accounting.
func (r *YearRecord) SizeBytes() int64 {
	size := int64(64)
	for _, u := range r.Units {
		size += int64(len(u.Values))*8 + int64(len(u.Code)+len(u.Facility)+len(u.Fueltech)) + 48
	}
	return size
}
