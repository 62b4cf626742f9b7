// Package watch reports edits to plan files. Editors often save by writing
// a new file and renaming it over the old one, so the watcher follows the
// parent directories and filters events by path.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long edits must settle before a change is reported
const DefaultDelay = 100 * time.Millisecond

// Options configures a Watcher
type Options struct {
	Delay  time.Duration
	Logger *zap.Logger
}

// Watcher reports debounced changes to a fixed set of files
type Watcher struct {
	fs     *fsnotify.Watcher
	files  map[string]struct{}
	delay  time.Duration
	logger *zap.Logger
}

// New watches paths. The files need not exist yet; their directories must.
func New(paths []string, opts Options) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fs:     fs,
		files:  make(map[string]struct{}, len(paths)),
		delay:  opts.Delay,
		logger: opts.Logger,
	}
	if w.delay <= 0 {
		w.delay = DefaultDelay
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fs.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, seen := dirs[dir]; seen {
			continue
		}
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
		w.logger.Debug("watching directory", zap.String("dir", dir))
	}
	return w, nil
}

// Run calls onChange with the changed files, sorted, once they have been
// quiet for the delay. Calls are serialized. An onChange error is logged
// and watching continues. Run closes the watcher and returns nil when ctx
// is done.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, files []string) error) error {
	defer w.fs.Close()

	pending := NewDebouncer(w.delay)
	defer pending.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("file changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
			pending.Add(event.Name)

		case files := <-pending.C():
			if err := onChange(ctx, files); err != nil {
				w.logger.Warn("change handler failed", zap.Strings("files", files), zap.Error(err))
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

// Debouncer collects names and delivers them as one sorted batch once no
// name has been added for its delay
type Debouncer struct {
	delay time.Duration
	out   chan []string

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
}

// NewDebouncer creates a Debouncer
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		out:     make(chan []string, 1),
		pending: make(map[string]struct{}),
	}
}

// C delivers batches
func (d *Debouncer) C() <-chan []string {
	return d.out
}

// Add records name and restarts the delay
func (d *Debouncer) Add(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[name] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(d.pending))
	for name := range d.pending {
		batch = append(batch, name)
	}
	clear(d.pending)
	d.mu.Unlock()

	slices.Sort(batch)
	select {
	case d.out <- batch:
	default:
		// the previous batch is still being handled; fold this one into
		// the next
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.stopped {
			return
		}
		for _, name := range batch {
			d.pending[name] = struct{}{}
		}
		d.timer = time.AfterFunc(d.delay, d.flush)
	}
}

// Stop discards pending names
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
