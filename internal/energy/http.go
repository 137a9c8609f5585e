package energy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/papapumpkin/stripes/internal/calendar"
)

// maxResponseBytes caps a single year payload. A full year for every NEM coal
// unit is well under this.
const maxResponseBytes = 32 << 20

// HTTPSource fetches year records from a JSON API exposing
// GET {base}/years/{year} and GET {base}/span.
type HTTPSource struct {
	Client *http.Client

	base *url.URL
	log  *slog.Logger
	now  func() time.Time
}

// NewHTTPSource validates baseURL and builds a source with the given client
// timeout. The per-attempt deadline of the request queue applies on top.
func NewHTTPSource(baseURL string, timeout time.Duration, log *slog.Logger) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("energy: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("energy: base url scheme %q not supported", u.Scheme)
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPSource{
		Client: &http.Client{Timeout: timeout},
		base:   u,
		// Log only scheme, host and path; query strings may carry API keys.
		log: log.With("component", "httpsource", "base", u.Scheme+"://"+u.Host+u.Path),
		now: time.Now,
	}, nil
}

// FetchYear downloads and validates one year.
func (s *HTTPSource) FetchYear(ctx context.Context, year int) (*YearRecord, error) {
	var rec YearRecord
	if err := s.getJSON(ctx, year, "years/"+strconv.Itoa(year), &rec); err != nil {
		return nil, err
	}
	if rec.Year != year {
		return nil, fmt.Errorf("energy: response for %d holds year %d: %w", year, rec.Year, ErrMalformed)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	rec.FetchedAt = s.now()
	return &rec, nil
}

// Span asks the API for its available data window.
func (s *HTTPSource) Span(ctx context.Context) (calendar.Date, calendar.Date, error) {
	var body struct {
		First string `json:"first"`
		Last  string `json:"last"`
	}
	if err := s.getJSON(ctx, 0, "span", &body); err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}
	first, err := calendar.Parse(body.First)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("energy: span first: %w", ErrMalformed)
	}
	last, err := calendar.Parse(body.Last)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("energy: span last: %w", ErrMalformed)
	}
	return first, last, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, year int, path string, out any) error {
	target := s.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("energy: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return &FetchError{Year: year, Source: "http", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &DataNotFoundError{Year: year}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		s.log.Warn("httpsource: unexpected status", "path", path, "status", resp.StatusCode)
		return &FetchError{Year: year, Source: "http", StatusCode: resp.StatusCode}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("energy: decode %s: %w: %v", path, ErrMalformed, err)
	}
	return nil
}
