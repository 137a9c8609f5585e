package energy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/years/2023", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testRecord(2023, "Eraring", 0, "ER01"))
	})
	mux.HandleFunc("/v1/years/2024", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/v1/years/2025", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	mux.HandleFunc("/v1/years/2021", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"year": 2021, "units": [{"code": "X", "facility": "Y", "values": [1, 2]}]}`))
	})
	mux.HandleFunc("/v1/span", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"first": "2006-01-01", "last": "2024-06-30"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource(t *testing.T) {
	t.Parallel()
	srv := newTestAPI(t)
	src, err := NewHTTPSource(srv.URL+"/v1", 5*time.Second, nil)
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	ctx := context.Background()

	rec, err := src.FetchYear(ctx, 2023)
	if err != nil {
		t.Fatalf("FetchYear(2023): %v", err)
	}
	if len(rec.Units) != 1 || len(rec.Units[0].Values) != 365 {
		t.Errorf("unexpected record shape: %d units", len(rec.Units))
	}

	_, err = src.FetchYear(ctx, 2024)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != 503 || !fe.Temporary() {
		t.Errorf("2024: err = %v, want temporary FetchError 503", err)
	}

	_, err = src.FetchYear(ctx, 2025)
	if !errors.As(err, &fe) || fe.Temporary() {
		t.Errorf("2025: err = %v, want non-temporary FetchError", err)
	}

	if _, err := src.FetchYear(ctx, 2019); !errors.Is(err, ErrNotFound) {
		t.Errorf("2019: err = %v, want ErrNotFound", err)
	}

	if _, err := src.FetchYear(ctx, 2021); !errors.Is(err, ErrMalformed) {
		t.Errorf("2021: err = %v, want ErrMalformed", err)
	}

	first, last, err := src.Span(ctx)
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	if first.String() != "2006-01-01" || last.String() != "2024-06-30" {
		t.Errorf("Span = %s..%s", first, last)
	}
}

func TestHTTPSource_TransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src, err := NewHTTPSource(url, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = src.FetchYear(context.Background(), 2023)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != 0 || !fe.Temporary() {
		t.Errorf("err = %v, want temporary transport FetchError", err)
	}
}

func TestNewHTTPSource_RejectsScheme(t *testing.T) {
	t.Parallel()
	if _, err := NewHTTPSource("ftp://example.com", time.Second, nil); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
