package energy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/papapumpkin/stripes/internal/calendar"
)

// yearFile matches the per-year files a DirSource serves.
var yearFile = regexp.MustCompile(`^(\d{4})\.(json|msgpack)$`)

// DirSource serves year records from a directory of <year>.json or
// <year>.msgpack files. When both exist for a year the JSON file wins.
type DirSource struct {
	Dir string

	log *slog.Logger
	now func() time.Time
}

// NewDirSource creates a DirSource rooted at dir. A nil logger uses slog.Default.
func NewDirSource(dir string, log *slog.Logger) *DirSource {
	if log == nil {
		log = slog.Default()
	}
	return &DirSource{Dir: dir, log: log.With("component", "dirsource"), now: time.Now}
}

// FetchYear reads and validates the file for year.
func (s *DirSource) FetchYear(ctx context.Context, year int) (*YearRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ext := range []string{"json", "msgpack"} {
		path := filepath.Join(s.Dir, fmt.Sprintf("%d.%s", year, ext))
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &FetchError{Year: year, Source: "dir", Err: err}
		}
		rec, err := decodeYear(data, ext)
		if err != nil {
			return nil, fmt.Errorf("energy: decode %s: %w: %v", path, ErrMalformed, err)
		}
		if rec.Year != year {
			return nil, fmt.Errorf("energy: %s holds year %d: %w", path, rec.Year, ErrMalformed)
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		rec.FetchedAt = s.now()
		s.log.Debug("dirsource: loaded year", "year", year, "units", len(rec.Units), "file", path)
		return rec, nil
	}
	return nil, &DataNotFoundError{Year: year}
}

// Years lists the years that have a data file, ascending.
func (s *DirSource) Years() ([]int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("energy: read dir %s: %w", s.Dir, err)
	}
	seen := make(map[int]bool)
	var years []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		year, ok := YearOfFile(e.Name())
		if !ok || seen[year] {
			continue
		}
		seen[year] = true
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// Span reports Jan 1 of the earliest year on disk and the last day with data
// in the latest year.
func (s *DirSource) Span(ctx context.Context) (calendar.Date, calendar.Date, error) {
	years, err := s.Years()
	if err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}
	if len(years) == 0 {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("energy: no year files in %s: %w", s.Dir, ErrNotFound)
	}
	first := calendar.YearStart(years[0])
	// Walk back from the newest year until one has data.
	for i := len(years) - 1; i >= 0; i-- {
		rec, err := s.FetchYear(ctx, years[i])
		if err != nil {
			return calendar.Date{}, calendar.Date{}, err
		}
		if idx, ok := rec.LastDataDay(); ok {
			last, err := calendar.FromDayIndex(rec.Year, idx)
			if err != nil {
				return calendar.Date{}, calendar.Date{}, err
			}
			return first, last, nil
		}
	}
	return calendar.Date{}, calendar.Date{}, fmt.Errorf("energy: no data values in %s: %w", s.Dir, ErrNotFound)
}

// WriteYear stores rec as JSON, replacing any existing file for its year.
func (s *DirSource) WriteYear(rec *YearRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("energy: encode %d: %w", rec.Year, err)
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("%d.json", rec.Year))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("energy: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("energy: rename %s: %w", tmp, err)
	}
	return nil
}

// YearOfFile extracts the year from a data file name such as "2023.json".
func YearOfFile(name string) (int, bool) {
	m := yearFile.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

func decodeYear(data []byte, ext string) (*YearRecord, error) {
	var rec YearRecord
	switch ext {
	case "msgpack":
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&rec); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
