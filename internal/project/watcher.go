package project

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups bursts of file events (editors often write a file
// several times) into one reload.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports changes to the inputs of a project directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    Paths
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher watches every existing directory of the project layout.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	p := Paths{Root: dir}
	for _, d := range p.Watched() {
		if _, err := os.Stat(d); err != nil {
			continue
		}
		if err := w.Add(d); err != nil {
			w.Close()
			return nil, err
		}
	}
	return &Watcher{watcher: w, paths: p, debounce: DefaultDebounce, logger: logger}, nil
}

// Watch emits the path of the last relevant change after each quiet period.
// The channel closes when ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) <-chan string {
	changes := make(chan string, 1)

	go func() {
		defer close(changes)
		var (
			timer   *time.Timer
			fire    <-chan time.Time
			pending string
		)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.follow(event)
				if !w.relevant(event) {
					continue
				}
				pending = event.Name
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case changes <- pending:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("project watcher error", "error", err)
			}
		}
	}()

	return changes
}

// follow starts watching kind directories created below output/diagrams.
func (w *Watcher) follow(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) || filepath.Dir(event.Name) != filepath.Clean(w.paths.Diagrams()) {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || !info.IsDir() {
		return
	}
	if err := w.watcher.Add(event.Name); err != nil {
		w.logger.Warn("watch diagram directory", "dir", event.Name, "error", err)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if base == "" || base[0] == '.' {
		return false
	}
	// Only the manifest matters in the root directory.
	if filepath.Dir(event.Name) == filepath.Clean(w.paths.Root) {
		return base == ManifestFile
	}
	return true
}
