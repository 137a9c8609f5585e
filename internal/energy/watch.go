package energy

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DataChange reports a year file that was written, created or removed.
type DataChange struct {
	Year    int
	File    string
	Removed bool
}

// DirWatcher monitors a data directory and reports year-file changes, for
// example when a nightly job appends the previous day's values.
type DirWatcher struct {
	Dir     string
	Changes <-chan DataChange

	changes  chan DataChange
	quit     chan struct{}
	done     chan struct{}
	dropped  atomic.Uint64
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger
}

// NewDirWatcher creates a watcher for dir. Call Start to begin watching.
func NewDirWatcher(dir string, log *slog.Logger) (*DirWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	ch := make(chan DataChange, 16)
	return &DirWatcher{
		Dir:      dir,
		Changes:  ch,
		changes:  ch,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
		debounce: 100 * time.Millisecond,
		log:      log.With("component", "dirwatcher"),
	}, nil
}

// Start adds the directory and launches the event loop.
func (w *DirWatcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher, waits for the loop to exit and closes Changes.
// Changes that cannot be delivered once Stop is called are dropped.
func (w *DirWatcher) Stop() {
	close(w.quit)
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *DirWatcher) loop() {
	defer close(w.done)

	// Writers often emit several events per save; coalesce per file.
	type pendingChange struct {
		at      time.Time
		removed bool
	}
	pending := make(map[string]pendingChange)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for file, p := range pending {
					w.emit(file, p.removed)
				}
				return
			}
			if _, ok := YearOfFile(event.Name); !ok {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				pending[event.Name] = pendingChange{at: time.Now(), removed: true}
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				pending[event.Name] = pendingChange{at: time.Now()}
			}

		case <-ticker.C:
			now := time.Now()
			for file, p := range pending {
				if now.Sub(p.at) >= w.debounce {
					w.emit(file, p.removed)
					delete(pending, file)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("dirwatcher: watch error", "error", err)
		}
	}
}

// Dropped returns the number of changes discarded because Stop was called
// while nobody was reading Changes.
func (w *DirWatcher) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *DirWatcher) emit(file string, removed bool) {
	year, _ := YearOfFile(file)
	select {
	case w.changes <- DataChange{Year: year, File: file, Removed: removed}:
	case <-w.quit:
		w.dropped.Add(1)
	}
}
