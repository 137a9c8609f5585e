package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/papapumpkin/stripes/internal/cache"
	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/config"
	"github.com/papapumpkin/stripes/internal/energy"
	"github.com/papapumpkin/stripes/internal/queue"
	"github.com/papapumpkin/stripes/internal/telemetry"
	"github.com/papapumpkin/stripes/internal/tile"
)

// source is what every configured backend provides.
type source interface {
	energy.Fetcher
	energy.Spanner
}

// stack is the assembled pipeline behind every command.
type stack struct {
	cfg      config.Config
	log      *slog.Logger
	source   source
	registry *energy.Registry
	queue    *queue.Queue
	manager  *tile.Manager
	events   *telemetry.Emitter
	closers  []io.Closer
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSource builds the configured data source. The returned closer may be
// nil.
func openSource(ctx context.Context, d config.DataConfig, log *slog.Logger) (source, io.Closer, error) {
	switch d.Source {
	case config.SourceSQL:
		s, err := energy.OpenSQLSource(ctx, d.DSN, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.SourceHTTP:
		s, err := energy.NewHTTPSource(d.BaseURL, d.HTTPTimeout, log)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		return energy.NewDirSource(d.Dir, log), nil, nil
	}
}

// build wires config -> source -> queue -> caches -> tile manager. logOut
// receives slog output.
func build(ctx context.Context, cfg config.Config, logOut io.Writer) (*stack, error) {
	log := newLogger(logOut, cfg.Verbose)
	st := &stack{cfg: cfg, log: log}

	if cfg.TelemetryPath != "" {
		em, err := telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return nil, err
		}
		st.events = em
		st.closers = append(st.closers, em)
	}

	reg, err := energy.LoadRegistry(cfg.Data.Registry)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.registry = reg

	src, closer, err := openSource(ctx, cfg.Data, log)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.source = src
	if closer != nil {
		st.closers = append(st.closers, closer)
	}

	name, qcfg := cfg.QueueFor()
	st.queue = queue.New(name, qcfg, queue.WithLogger(log), queue.WithEmitter(st.events))

	st.manager, err = tile.New(tile.Deps{
		Fetcher:  src,
		Queue:    st.queue,
		Years:    cache.NewYearDataCache(cfg.Cache.Years, cfg.Cache.YearTTL),
		Tiles:    cache.NewTileCache(cfg.Cache.Tiles),
		Registry: reg,
		Logger:   log,
		Events:   st.events,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// loadStack loads config and builds the stack, logging to stderr.
func loadStack(ctx context.Context) (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return build(ctx, cfg, os.Stderr)
}

// span asks the source for its data window and checks it against the
// configured epoch.
func (s *stack) span(ctx context.Context) (first, last calendar.Date, err error) {
	first, last, err = s.source.Span(ctx)
	if err != nil {
		return first, last, fmt.Errorf("data span: %w", err)
	}
	if last.Before(s.cfg.EpochDate()) {
		return first, last, fmt.Errorf("latest data %s is before epoch %s", last, s.cfg.EpochDate())
	}
	return first, last, nil
}

// Close stops the manager and queue and releases the source and telemetry
// file.
func (s *stack) Close() error {
	if s.manager != nil {
		s.manager.Close()
	}
	if s.queue != nil {
		s.queue.Close()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
