package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joss/seccompare/internal/logging"
)

// DefaultDebounce is how long a Watcher waits for writes to settle.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports writes made to an on-disk store by other processes,
// so an open view can reload instead of overwriting them later.
//
// Writes are batched: the handler runs once per quiet period of debounce,
// from the watcher's own goroutine.
type Watcher struct {
	watcher  *fsnotify.Watcher
	match    func(name string) bool
	debounce time.Duration
	handler  func()
	log      *logging.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatchStore watches the store at path. For a SQLite file the parent
// directory is watched and only the database and its WAL/SHM companions
// count; for a Badger directory every file in it counts.
func WatchStore(path string, debounce time.Duration, handler func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("watch store: %w", err)
	}

	dir := path
	match := func(string) bool { return true }
	if !info.IsDir() {
		dir = filepath.Dir(path)
		base := filepath.Base(path)
		match = func(name string) bool {
			return strings.HasPrefix(filepath.Base(name), base)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch store: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch store: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		match:    match,
		debounce: debounce,
		handler:  handler,
		log:      logging.New("watch"),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.match(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.handler()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch_error", nil, err)
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
